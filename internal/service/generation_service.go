package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/homereel/api/internal/apperr"
	"github.com/homereel/api/internal/client"
	"github.com/homereel/api/internal/config"
	"github.com/homereel/api/internal/model"
	"github.com/homereel/api/internal/store"
)

// GenerationService owns the job entry points: start, poll, retry, cancel,
// final artifact. Unit execution itself lives in the worker; the service only
// creates and mutates durable state and hands dispatch to the queue.
type GenerationService struct {
	store      store.JobStore
	dispatcher Dispatcher
	storage    client.StorageClient
	cfg        config.GenerationConfig
}

func NewGenerationService(jobStore store.JobStore, dispatcher Dispatcher, storage client.StorageClient, cfg config.GenerationConfig) *GenerationService {
	return &GenerationService{
		store:      jobStore,
		dispatcher: dispatcher,
		storage:    storage,
		cfg:        cfg,
	}
}

// CreateProject registers the ownership record the orchestrator checks.
func (s *GenerationService) CreateProject(ctx context.Context, userID string, req *model.CreateProjectRequest) (*model.Project, error) {
	project := &model.Project{
		ID:        uuid.New().String(),
		OwnerID:   userID,
		Address:   req.Address,
		CreatedAt: time.Now(),
	}
	if err := s.store.SaveProject(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to save project: %w", err)
	}
	return project, nil
}

// DeleteProject removes a project, its jobs and its stored clips. Storage
// deletes are best-effort; the durable records go first.
func (s *GenerationService) DeleteProject(ctx context.Context, userID, projectID string) error {
	if _, err := s.ownedProject(ctx, userID, projectID); err != nil {
		return err
	}

	job, err := s.store.GetJobByProject(ctx, projectID)
	if err == nil && s.storage != nil {
		for _, u := range job.RoomUnits {
			s.deleteStored(ctx, u.OutputURL)
			s.deleteStored(ctx, u.ThumbnailURL)
		}
		if job.FinalVideo != nil {
			s.deleteStored(ctx, job.FinalVideo.URL)
			s.deleteStored(ctx, job.FinalVideo.ThumbnailURL)
		}
	} else if err != nil && !apperr.IsNotFound(err) {
		return err
	}

	return s.store.DeleteProject(ctx, projectID)
}

// StartGeneration validates the confirmed plan, persists a new job with one
// waiting unit per planned room and enqueues dispatch. The call returns as
// soon as the job is durable; the caller polls for completion.
func (s *GenerationService) StartGeneration(ctx context.Context, userID string, req *model.GenerationStartRequest) (*model.GenerationStartResponse, error) {
	if _, err := s.ownedProject(ctx, userID, req.ProjectID); err != nil {
		return nil, err
	}
	if err := validatePlan(&req.Plan); err != nil {
		return nil, err
	}

	now := time.Now()
	job := &model.GenerationJob{
		ID:            uuid.New().String(),
		ProjectID:     req.ProjectID,
		Status:        model.JobStatusWaiting,
		TotalRooms:    len(req.Plan.Rooms),
		FailedRoomIDs: []string{},
		Composition: model.CompositionSpec{
			AspectRatio: req.Plan.AspectRatio,
			Transitions: req.Plan.Transitions,
			Logo:        req.Plan.Logo,
			Subtitles:   req.Plan.Subtitles,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, room := range req.Plan.Rooms {
		settings := room.Settings
		if settings.AspectRatio == "" {
			settings.AspectRatio = req.Plan.AspectRatio
		}
		job.RoomUnits = append(job.RoomUnits, model.RoomVideoUnit{
			ID:       uuid.New().String(),
			RoomID:   room.RoomID,
			RoomName: room.RoomName,
			Images:   room.Images,
			Settings: settings,
			Status:   model.UnitStatusWaiting,
		})
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	if err := s.dispatcher.EnqueueGeneration(ctx, &model.GenerationTaskPayload{JobID: job.ID}); err != nil {
		// Without a queued task the job would never advance; drop the record
		// instead of leaving it stuck in waiting.
		if delErr := s.store.DeleteJob(ctx, job.ID); delErr != nil {
			log.Printf("Failed to clean up job %s after enqueue error: %v", job.ID, delErr)
		}
		return nil, err
	}

	return &model.GenerationStartResponse{
		JobID:                          job.ID,
		Status:                         model.JobStatusWaiting,
		EstimatedCompletionTimeSeconds: job.TotalRooms * s.cfg.PerUnitSeconds,
		CreatedAt:                      now,
	}, nil
}

// GetStatus returns the derived progress snapshot for one job.
func (s *GenerationService) GetStatus(ctx context.Context, userID, jobID string) (*model.ProgressSnapshot, error) {
	job, err := s.ownedJob(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	return BuildSnapshot(job, s.cfg.PerUnitSeconds), nil
}

// GetStatusBatch returns snapshots for the known, owned jobs among jobIDs.
// Unknown and foreign ids are omitted rather than failing the batch.
func (s *GenerationService) GetStatusBatch(ctx context.Context, userID string, jobIDs []string) (*model.BatchStatusResponse, error) {
	resp := &model.BatchStatusResponse{Jobs: []model.ProgressSnapshot{}}
	for _, jobID := range jobIDs {
		job, err := s.ownedJob(ctx, userID, jobID)
		if err != nil {
			if apperr.IsNotFound(err) || apperr.IsForbidden(err) {
				continue
			}
			return nil, err
		}
		resp.Jobs = append(resp.Jobs, *BuildSnapshot(job, s.cfg.PerUnitSeconds))
	}
	return resp, nil
}

// RetryFailedUnits resets the named failed units back to waiting and
// re-dispatches them with their original settings. Units not currently
// failed are left untouched; ignoring an already-successful room is
// intentional idempotence, not an error.
func (s *GenerationService) RetryFailedUnits(ctx context.Context, userID, jobID string, unitIDs []string) (*model.ProgressSnapshot, error) {
	if _, err := s.ownedJob(ctx, userID, jobID); err != nil {
		return nil, err
	}

	var reopened []string
	job, err := s.store.UpdateJob(ctx, jobID, func(job *model.GenerationJob) error {
		reopened = reopened[:0]
		targets := unitIDs
		if len(targets) == 0 {
			// No explicit selection retries every failed unit.
			targets = append([]string(nil), job.FailedRoomIDs...)
		}
		for _, unitID := range targets {
			unit := job.Unit(unitID)
			if unit == nil || unit.Status != model.UnitStatusFailed {
				continue
			}
			unit.Status = model.UnitStatusWaiting
			unit.Progress = 0
			unit.Error = nil
			unit.Attempts = 0
			job.FailedRoomIDs = removeID(job.FailedRoomIDs, unitID)
			reopened = append(reopened, unitID)
		}
		if len(reopened) == 0 {
			return nil
		}
		// Re-opening a unit re-opens the job; a stale final video would no
		// longer match the unit states, so it is rebuilt after the retries.
		job.Status = model.JobStatusProcessingRooms
		job.Error = nil
		job.FinalVideo = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(reopened) > 0 {
		if err := s.dispatcher.EnqueueRetry(ctx, &model.RetryTaskPayload{JobID: jobID, UnitIDs: reopened}); err != nil {
			return nil, err
		}
	}

	return BuildSnapshot(job, s.cfg.PerUnitSeconds), nil
}

// CancelJob marks a non-terminal job failed. In-flight provider calls are not
// aborted; their results are discarded when they arrive.
func (s *GenerationService) CancelJob(ctx context.Context, userID, jobID string) (*model.CancelResponse, error) {
	if _, err := s.ownedJob(ctx, userID, jobID); err != nil {
		return nil, err
	}

	_, err := s.store.UpdateJob(ctx, jobID, func(job *model.GenerationJob) error {
		if job.Status.IsTerminal() {
			return apperr.Conflict("job already finished")
		}
		job.Status = model.JobStatusFailed
		msg := "cancelled by user"
		job.Error = &msg
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &model.CancelResponse{
		Success: true,
		JobID:   jobID,
		Status:  model.JobStatusFailed,
	}, nil
}

// GetFinalVideo returns the composed deliverable for a project.
func (s *GenerationService) GetFinalVideo(ctx context.Context, userID, projectID string) (*model.FinalVideoResponse, error) {
	if _, err := s.ownedProject(ctx, userID, projectID); err != nil {
		return nil, err
	}

	job, err := s.store.GetJobByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusCompleted || job.FinalVideo == nil {
		return nil, apperr.NotFound("final video not found — generation may still be in progress")
	}

	failed := job.FailedRoomIDs
	if failed == nil {
		failed = []string{}
	}
	return &model.FinalVideoResponse{
		ProjectID:     projectID,
		JobID:         job.ID,
		Video:         *job.FinalVideo,
		FailedRoomIDs: failed,
	}, nil
}

// ownedProject loads a project and verifies the caller owns it.
func (s *GenerationService) ownedProject(ctx context.Context, userID, projectID string) (*model.Project, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != userID {
		return nil, apperr.Forbidden("project %s does not belong to caller", projectID)
	}
	return project, nil
}

// ownedJob loads a job and verifies the caller owns its project.
func (s *GenerationService) ownedJob(ctx context.Context, userID, jobID string) (*model.GenerationJob, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedProject(ctx, userID, job.ProjectID); err != nil {
		return nil, err
	}
	return job, nil
}

// validatePlan rejects malformed plans the struct tags cannot express.
func validatePlan(plan *model.WalkthroughPlan) error {
	if len(plan.Rooms) == 0 {
		return apperr.Validation("plan must contain at least one room")
	}
	seen := make(map[string]bool, len(plan.Rooms))
	for _, room := range plan.Rooms {
		if seen[room.RoomID] {
			return apperr.Validation("plan contains room %s twice", room.RoomID)
		}
		seen[room.RoomID] = true
		if len(room.Images) == 0 {
			return apperr.Validation("room %s has no source images", room.RoomID)
		}
	}
	return nil
}

func (s *GenerationService) deleteStored(ctx context.Context, url string) {
	if url == "" || s.storage == nil {
		return
	}
	key := storageKeyFromURL(url)
	if key == "" {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		log.Printf("Failed to delete stored object %s: %v", key, err)
	}
}

// storageKeyFromURL recovers the object key from a public URL. Foreign URLs
// (provider-hosted clips kept in dev mode) yield "" and are skipped.
func storageKeyFromURL(url string) string {
	const marker = "/videos/"
	idx := strings.Index(url, marker)
	if idx < 0 {
		return ""
	}
	return url[idx+1:]
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
