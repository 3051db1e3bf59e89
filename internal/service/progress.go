package service

import (
	"fmt"

	"github.com/homereel/api/internal/model"
)

// BuildSnapshot projects the current job and unit state into the progress
// summary served to polling clients. It has no side effects and is recomputed
// on every query; the snapshot is never persisted as authoritative.
//
// perUnitSeconds is a fixed per-unit time budget. The ETA is deliberately a
// coarse heuristic (non-terminal units × budget), not a learned estimate.
func BuildSnapshot(job *model.GenerationJob, perUnitSeconds int) *model.ProgressSnapshot {
	units := make([]model.UnitSummary, 0, len(job.RoomUnits))
	progressSum := 0
	nonTerminal := 0

	for _, u := range job.RoomUnits {
		switch u.Status {
		case model.UnitStatusCompleted:
			progressSum += 100
		case model.UnitStatusInProgress:
			// A unit without a known partial progress contributes 0 until
			// terminal, so providers that expose no incremental percentage
			// never overstate overall progress.
			progressSum += clampPercent(u.Progress)
			nonTerminal++
		case model.UnitStatusWaiting:
			nonTerminal++
		}

		units = append(units, model.UnitSummary{
			UnitID:   u.ID,
			RoomName: u.RoomName,
			Status:   u.Status,
			Progress: u.Progress,
			Error:    u.Error,
		})
	}

	overall := 0
	if job.TotalRooms > 0 {
		overall = progressSum / job.TotalRooms
	}
	// A completed job reads 100 even when some rooms failed: the deliverable
	// exists and the failed rooms are surfaced separately.
	if job.Status == model.JobStatusCompleted {
		overall = 100
	}

	eta := nonTerminal * perUnitSeconds
	if job.Status.IsTerminal() {
		eta = 0
	}

	failed := job.FailedRoomIDs
	if failed == nil {
		failed = []string{}
	}

	return &model.ProgressSnapshot{
		JobID:                         job.ID,
		ProjectID:                     job.ProjectID,
		Status:                        job.Status,
		OverallProgress:               overall,
		CurrentStep:                   currentStepLabel(job),
		EstimatedTimeRemainingSeconds: eta,
		IsComplete:                    job.Status == model.JobStatusCompleted,
		HasFailed:                     job.Status == model.JobStatusFailed,
		CompletedRooms:                job.CompletedRooms,
		TotalRooms:                    job.TotalRooms,
		FailedRoomIDs:                 failed,
		Units:                         units,
		Error:                         job.Error,
	}
}

// currentStepLabel names the first unit still in progress, falling back to
// the last unit by order when none is. Jobs in a queue or terminal phase get
// a phase label instead: naming a room on a job that has not started (or has
// already finished) would mislead the client.
func currentStepLabel(job *model.GenerationJob) string {
	switch job.Status {
	case model.JobStatusWaiting:
		return "Waiting to start"
	case model.JobStatusComposingVideo:
		return "Composing final video"
	case model.JobStatusCompleted:
		return "Completed"
	case model.JobStatusFailed:
		return "Failed"
	}

	for _, u := range job.RoomUnits {
		if u.Status == model.UnitStatusInProgress {
			return fmt.Sprintf("Generating %s", u.RoomName)
		}
	}
	if n := len(job.RoomUnits); n > 0 {
		return fmt.Sprintf("Generating %s", job.RoomUnits[n-1].RoomName)
	}
	return "Waiting to start"
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
