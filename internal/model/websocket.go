package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage pushes the same fields a status poll would return,
// so a client can switch between the two without remapping.
type WSProgressMessage struct {
	Type                          string    `json:"type"`
	JobID                         string    `json:"jobId"`
	Status                        JobStatus `json:"status"`
	Progress                      int       `json:"progress"`
	CurrentStep                   string    `json:"currentStep,omitempty"`
	CompletedRooms                int       `json:"completedRooms"`
	TotalRooms                    int       `json:"totalRooms"`
	EstimatedTimeRemainingSeconds int       `json:"estimatedTimeRemainingSeconds"`
}

// WSCompleteMessage carries the final snapshot when a job finishes
type WSCompleteMessage struct {
	Type   string      `json:"type"`
	JobID  string      `json:"jobId"`
	Result interface{} `json:"result"`
}

// WSErrorMessage reports a job-level failure
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"jobId"`
	Error WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
