package service

import (
	"testing"

	"github.com/homereel/api/internal/model"
)

func jobWithUnits(status model.JobStatus, units ...model.RoomVideoUnit) *model.GenerationJob {
	job := &model.GenerationJob{
		ID:         "job-1",
		ProjectID:  "project-1",
		Status:     status,
		TotalRooms: len(units),
		RoomUnits:  units,
	}
	for _, u := range units {
		if u.Status == model.UnitStatusCompleted {
			job.CompletedRooms++
		}
		if u.Status == model.UnitStatusFailed {
			job.FailedRoomIDs = append(job.FailedRoomIDs, u.ID)
		}
	}
	return job
}

func unit(id string, status model.UnitStatus, progress int) model.RoomVideoUnit {
	return model.RoomVideoUnit{ID: id, RoomName: id, Status: status, Progress: progress}
}

func TestBuildSnapshot_WeightedProgress(t *testing.T) {
	job := jobWithUnits(model.JobStatusProcessingRooms,
		unit("kitchen", model.UnitStatusCompleted, 100),
		unit("bedroom", model.UnitStatusInProgress, 40),
		unit("bathroom", model.UnitStatusWaiting, 0),
	)

	snap := BuildSnapshot(job, 90)

	// (100 + 40 + 0) / 3
	if snap.OverallProgress != 46 {
		t.Errorf("expected overall progress 46, got %d", snap.OverallProgress)
	}
	if snap.CurrentStep != "Generating bedroom" {
		t.Errorf("expected step for in-progress room, got %q", snap.CurrentStep)
	}
	// Two non-terminal units at 90s each.
	if snap.EstimatedTimeRemainingSeconds != 180 {
		t.Errorf("expected ETA 180, got %d", snap.EstimatedTimeRemainingSeconds)
	}
	if snap.IsComplete || snap.HasFailed {
		t.Error("running job must not read complete or failed")
	}
}

func TestBuildSnapshot_FailedUnitContributesNothing(t *testing.T) {
	job := jobWithUnits(model.JobStatusProcessingRooms,
		unit("kitchen", model.UnitStatusFailed, 60),
		unit("bedroom", model.UnitStatusCompleted, 100),
	)

	snap := BuildSnapshot(job, 90)

	// Failed units contribute 0 regardless of partial progress at failure.
	if snap.OverallProgress != 50 {
		t.Errorf("expected overall progress 50, got %d", snap.OverallProgress)
	}
	if len(snap.FailedRoomIDs) != 1 || snap.FailedRoomIDs[0] != "kitchen" {
		t.Errorf("expected failedRoomIds [kitchen], got %v", snap.FailedRoomIDs)
	}
}

func TestBuildSnapshot_CompletedJobReadsFull(t *testing.T) {
	job := jobWithUnits(model.JobStatusCompleted,
		unit("kitchen", model.UnitStatusCompleted, 100),
		unit("garage", model.UnitStatusFailed, 0),
	)

	snap := BuildSnapshot(job, 90)

	// Partial success still delivers; the failed room is reported separately.
	if snap.OverallProgress != 100 {
		t.Errorf("completed job must read 100, got %d", snap.OverallProgress)
	}
	if snap.EstimatedTimeRemainingSeconds != 0 {
		t.Errorf("terminal job must have zero ETA, got %d", snap.EstimatedTimeRemainingSeconds)
	}
	if !snap.IsComplete {
		t.Error("expected isComplete")
	}
	if snap.CurrentStep != "Completed" {
		t.Errorf("expected step Completed, got %q", snap.CurrentStep)
	}
}

func TestBuildSnapshot_WaitingJob(t *testing.T) {
	job := jobWithUnits(model.JobStatusWaiting,
		unit("kitchen", model.UnitStatusWaiting, 0),
	)

	snap := BuildSnapshot(job, 90)

	if snap.OverallProgress != 0 {
		t.Errorf("expected 0 progress, got %d", snap.OverallProgress)
	}
	if snap.CurrentStep != "Waiting to start" {
		t.Errorf("expected waiting step, got %q", snap.CurrentStep)
	}
}

func TestBuildSnapshot_ComposingStep(t *testing.T) {
	job := jobWithUnits(model.JobStatusComposingVideo,
		unit("kitchen", model.UnitStatusCompleted, 100),
	)

	snap := BuildSnapshot(job, 90)

	if snap.CurrentStep != "Composing final video" {
		t.Errorf("expected composing step, got %q", snap.CurrentStep)
	}
	if snap.EstimatedTimeRemainingSeconds != 0 {
		t.Errorf("no units pending, expected ETA 0, got %d", snap.EstimatedTimeRemainingSeconds)
	}
}

func TestBuildSnapshot_ClampsProviderProgress(t *testing.T) {
	job := jobWithUnits(model.JobStatusProcessingRooms,
		unit("kitchen", model.UnitStatusInProgress, 140),
	)

	snap := BuildSnapshot(job, 90)

	if snap.OverallProgress != 100 {
		t.Errorf("provider progress above 100 must clamp, got %d", snap.OverallProgress)
	}
}

func TestBuildSnapshot_FailedJob(t *testing.T) {
	msg := "all rooms failed"
	job := jobWithUnits(model.JobStatusFailed,
		unit("kitchen", model.UnitStatusFailed, 0),
	)
	job.Error = &msg

	snap := BuildSnapshot(job, 90)

	if !snap.HasFailed {
		t.Error("expected hasFailed")
	}
	if snap.Error == nil || *snap.Error != msg {
		t.Errorf("expected job error surfaced, got %v", snap.Error)
	}
	if snap.EstimatedTimeRemainingSeconds != 0 {
		t.Errorf("terminal job must have zero ETA, got %d", snap.EstimatedTimeRemainingSeconds)
	}
}
