package model

import "time"

// GenerationStartRequest represents the request to start walkthrough generation
type GenerationStartRequest struct {
	ProjectID string          `json:"projectId" validate:"required,uuid"`
	Plan      WalkthroughPlan `json:"plan" validate:"required"`
}

// WalkthroughPlan is the user-confirmed room order plus final-video options.
// Room order in the plan is the room order in the final video.
type WalkthroughPlan struct {
	Rooms       []PlannedRoom  `json:"rooms" validate:"required,min=1,max=20,dive"`
	AspectRatio AspectRatio    `json:"aspectRatio" validate:"required,oneof=16:9 9:16 1:1"`
	Transitions bool           `json:"transitions"`
	Logo        *LogoOverlay   `json:"logo" validate:"omitempty"`
	Subtitles   *SubtitleTrack `json:"subtitles" validate:"omitempty"`
}

// PlannedRoom is one room entry in the confirmed plan
type PlannedRoom struct {
	RoomID   string       `json:"roomId" validate:"required"`
	RoomName string       `json:"roomName" validate:"required,max=80"`
	Images   []string     `json:"images" validate:"required,min=1,max=10,dive,url"`
	Settings RoomSettings `json:"settings" validate:"required"`
}

// GenerationStartResponse represents the response when starting generation
type GenerationStartResponse struct {
	JobID                          string    `json:"jobId"`
	Status                         JobStatus `json:"status"`
	EstimatedCompletionTimeSeconds int       `json:"estimatedCompletionTimeSeconds"`
	CreatedAt                      time.Time `json:"createdAt"`
}

// ProgressSnapshot is the derived progress projection served to polling
// clients. It is recomputed on every query and never persisted.
type ProgressSnapshot struct {
	JobID                         string        `json:"jobId"`
	ProjectID                     string        `json:"projectId"`
	Status                        JobStatus     `json:"status"`
	OverallProgress               int           `json:"overallProgress"`
	CurrentStep                   string        `json:"currentStep"`
	EstimatedTimeRemainingSeconds int           `json:"estimatedTimeRemainingSeconds"`
	IsComplete                    bool          `json:"isComplete"`
	HasFailed                     bool          `json:"hasFailed"`
	CompletedRooms                int           `json:"completedRooms"`
	TotalRooms                    int           `json:"totalRooms"`
	FailedRoomIDs                 []string      `json:"failedRoomIds"`
	Units                         []UnitSummary `json:"units"`
	Error                         *string       `json:"error,omitempty"`
}

// UnitSummary is one room's entry in the progress snapshot
type UnitSummary struct {
	UnitID   string     `json:"unitId"`
	RoomName string     `json:"roomName"`
	Status   UnitStatus `json:"status"`
	Progress int        `json:"progress"`
	Error    *string    `json:"error,omitempty"`
}

// BatchStatusRequest polls several jobs at once
type BatchStatusRequest struct {
	JobIDs []string `json:"jobIds" validate:"required,min=1,max=20"`
}

// BatchStatusResponse returns snapshots for the known job ids
type BatchStatusResponse struct {
	Jobs []ProgressSnapshot `json:"jobs"`
}

// RetryUnitsRequest re-dispatches failed units. An empty list retries
// every failed unit on the job.
type RetryUnitsRequest struct {
	UnitIDs []string `json:"unitIds" validate:"omitempty,max=20"`
}

// CancelResponse represents the response when cancelling a job
type CancelResponse struct {
	Success bool      `json:"success"`
	JobID   string    `json:"jobId"`
	Status  JobStatus `json:"status"`
}

// FinalVideoResponse returns the composed deliverable for a project
type FinalVideoResponse struct {
	ProjectID     string     `json:"projectId"`
	JobID         string     `json:"jobId"`
	Video         FinalVideo `json:"video"`
	FailedRoomIDs []string   `json:"failedRoomIds"`
}

// ClassifyRequest asks for room categories for a set of uploaded photos
type ClassifyRequest struct {
	ImageURLs []string `json:"imageUrls" validate:"required,min=1,max=50,dive,url"`
}

// ClassifyResponse returns per-image classifications in request order
type ClassifyResponse struct {
	Results []Classification `json:"results"`
}

// Classification is the classifier's answer for one image
type Classification struct {
	ImageURL   string       `json:"imageUrl"`
	Category   RoomCategory `json:"category"`
	Confidence float64      `json:"confidence"`
}

// CreateProjectRequest registers a project ownership record
type CreateProjectRequest struct {
	Address string `json:"address" validate:"max=200"`
}
