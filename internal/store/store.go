// Package store persists generation jobs and project ownership records.
//
// The store is the single source of truth for job state. Every mutation goes
// through UpdateJob, which re-reads the record and applies the caller's
// mutation under optimistic concurrency, so concurrent unit completions never
// clobber each other with stale full-record overwrites.
package store

import (
	"context"

	"github.com/homereel/api/internal/apperr"
	"github.com/homereel/api/internal/model"
)

// JobStore is the persistence abstraction for generation jobs.
type JobStore interface {
	CreateJob(ctx context.Context, job *model.GenerationJob) error
	GetJob(ctx context.Context, jobID string) (*model.GenerationJob, error)
	// GetJobByProject returns the most recent job for a project.
	GetJobByProject(ctx context.Context, projectID string) (*model.GenerationJob, error)
	// UpdateJob applies mutate to the current record and persists the result
	// atomically. If mutate returns an error nothing is written and the error
	// is returned unchanged. The updated record is returned on success.
	UpdateJob(ctx context.Context, jobID string, mutate func(job *model.GenerationJob) error) (*model.GenerationJob, error)
	DeleteJob(ctx context.Context, jobID string) error

	SaveProject(ctx context.Context, project *model.Project) error
	GetProject(ctx context.Context, projectID string) (*model.Project, error)
	// DeleteProject removes the project record and cascades to its jobs.
	DeleteProject(ctx context.Context, projectID string) error
}

// checkInvariants guards the counter invariant on every write. A violation is
// a programming error in a mutation closure, not a caller fault.
func checkInvariants(job *model.GenerationJob) error {
	if job.CompletedRooms+len(job.FailedRoomIDs) > job.TotalRooms {
		return apperr.New(apperr.KindConflict, "job counters exceed total rooms")
	}
	return nil
}
