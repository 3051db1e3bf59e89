package model

import "time"

// GenerationJob is the durable record of one walkthrough generation request.
// It owns its room units for their whole lifecycle; units are never shared
// across jobs.
type GenerationJob struct {
	ID             string          `json:"id"`
	ProjectID      string          `json:"projectId"`
	Status         JobStatus       `json:"status"`
	TotalRooms     int             `json:"totalRooms"`
	CompletedRooms int             `json:"completedRooms"`
	FailedRoomIDs  []string        `json:"failedRoomIds"`
	RoomUnits      []RoomVideoUnit `json:"roomUnits"`
	FinalVideo     *FinalVideo     `json:"finalVideo,omitempty"`
	Error          *string         `json:"error,omitempty"`
	Composition    CompositionSpec `json:"composition"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Unit returns the room unit with the given id, or nil.
func (j *GenerationJob) Unit(unitID string) *RoomVideoUnit {
	for i := range j.RoomUnits {
		if j.RoomUnits[i].ID == unitID {
			return &j.RoomUnits[i]
		}
	}
	return nil
}

// AllUnitsTerminal reports whether every room unit reached a terminal state.
func (j *GenerationJob) AllUnitsTerminal() bool {
	for i := range j.RoomUnits {
		if !j.RoomUnits[i].Status.IsTerminal() {
			return false
		}
	}
	return true
}

// SuccessfulUnits returns completed units in plan order.
func (j *GenerationJob) SuccessfulUnits() []RoomVideoUnit {
	var out []RoomVideoUnit
	for _, u := range j.RoomUnits {
		if u.Status == UnitStatusCompleted {
			out = append(out, u)
		}
	}
	return out
}

// RoomVideoUnit is the unit of work producing one room's clip.
type RoomVideoUnit struct {
	ID           string       `json:"id"`
	RoomID       string       `json:"roomId"`
	RoomName     string       `json:"roomName"`
	Images       []string     `json:"images"`
	Settings     RoomSettings `json:"settings"`
	Status       UnitStatus   `json:"status"`
	Progress     int          `json:"progress"`
	OutputURL    string       `json:"outputUrl,omitempty"`
	ThumbnailURL string       `json:"thumbnailUrl,omitempty"`
	Duration     float64      `json:"duration,omitempty"`
	Error        *string      `json:"error,omitempty"`
	Attempts     int          `json:"attempts"`
}

// RoomSettings controls generation of a single room clip.
type RoomSettings struct {
	DurationSeconds int          `json:"durationSeconds" validate:"required,min=3,max=30"`
	AspectRatio     AspectRatio  `json:"aspectRatio" validate:"required,oneof=16:9 9:16 1:1"`
	Directive       string       `json:"directive" validate:"max=500"`
	Category        RoomCategory `json:"category" validate:"omitempty,oneof=living_room kitchen bedroom bathroom dining_room office garage basement hallway exterior backyard balcony other"`
}

// CompositionSpec holds the final-video options confirmed with the plan.
type CompositionSpec struct {
	AspectRatio AspectRatio    `json:"aspectRatio"`
	Transitions bool           `json:"transitions"`
	Logo        *LogoOverlay   `json:"logo,omitempty"`
	Subtitles   *SubtitleTrack `json:"subtitles,omitempty"`
}

// LogoOverlay places an agency logo in one corner of the final video.
type LogoOverlay struct {
	URL    string        `json:"url" validate:"required,url"`
	Corner OverlayCorner `json:"corner" validate:"required,oneof=top_left top_right bottom_left bottom_right"`
}

// SubtitleTrack labels each room segment, synchronized by even time-division
// across clips.
type SubtitleTrack struct {
	Enabled bool         `json:"enabled"`
	Font    SubtitleFont `json:"font" validate:"omitempty,oneof=classic modern serif"`
}

// FinalVideo is the composed deliverable, present only on completed jobs.
type FinalVideo struct {
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	Duration     float64   `json:"duration"`
	SizeBytes    int64     `json:"sizeBytes"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Project is the ownership record the orchestrator checks before any job
// operation. The relationship is an explicit reference, never derived from
// the job id.
type Project struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Task payloads carried through the queue

// GenerationTaskPayload drives the per-job orchestration task.
type GenerationTaskPayload struct {
	JobID string `json:"jobId"`
}

// RetryTaskPayload re-dispatches a subset of re-opened units.
type RetryTaskPayload struct {
	JobID   string   `json:"jobId"`
	UnitIDs []string `json:"unitIds"`
}
