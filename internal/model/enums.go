package model

// Job status
type JobStatus string

const (
	JobStatusWaiting         JobStatus = "waiting"
	JobStatusProcessingRooms JobStatus = "processing_rooms"
	JobStatusComposingVideo  JobStatus = "composing_video"
	JobStatusCompleted       JobStatus = "completed"
	JobStatusFailed          JobStatus = "failed"
)

// IsTerminal reports whether the job can no longer advance on its own.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Room unit status
type UnitStatus string

const (
	UnitStatusWaiting    UnitStatus = "waiting"
	UnitStatusInProgress UnitStatus = "in-progress"
	UnitStatusCompleted  UnitStatus = "completed"
	UnitStatusFailed     UnitStatus = "failed"
)

func (s UnitStatus) IsTerminal() bool {
	return s == UnitStatusCompleted || s == UnitStatusFailed
}

// Room categories produced by the classifier
type RoomCategory string

const (
	RoomLivingRoom  RoomCategory = "living_room"
	RoomKitchen     RoomCategory = "kitchen"
	RoomBedroom     RoomCategory = "bedroom"
	RoomBathroom    RoomCategory = "bathroom"
	RoomDiningRoom  RoomCategory = "dining_room"
	RoomOffice      RoomCategory = "office"
	RoomGarage      RoomCategory = "garage"
	RoomBasement    RoomCategory = "basement"
	RoomHallway     RoomCategory = "hallway"
	RoomExterior    RoomCategory = "exterior"
	RoomBackyard    RoomCategory = "backyard"
	RoomBalcony     RoomCategory = "balcony"
	RoomOther       RoomCategory = "other"
)

var ValidRoomCategories = []RoomCategory{
	RoomLivingRoom, RoomKitchen, RoomBedroom, RoomBathroom, RoomDiningRoom,
	RoomOffice, RoomGarage, RoomBasement, RoomHallway, RoomExterior,
	RoomBackyard, RoomBalcony, RoomOther,
}

// Aspect ratios supported by the video provider
type AspectRatio string

const (
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
	AspectSquare    AspectRatio = "1:1"
)

// Logo overlay corners
type OverlayCorner string

const (
	CornerTopLeft     OverlayCorner = "top_left"
	CornerTopRight    OverlayCorner = "top_right"
	CornerBottomLeft  OverlayCorner = "bottom_left"
	CornerBottomRight OverlayCorner = "bottom_right"
)

// Subtitle fonts offered by the composition service
type SubtitleFont string

const (
	FontClassic SubtitleFont = "classic"
	FontModern  SubtitleFont = "modern"
	FontSerif   SubtitleFont = "serif"
)
