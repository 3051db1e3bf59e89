package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/homereel/api/internal/config"
	"github.com/homereel/api/internal/model"
	"github.com/homereel/api/internal/service"
	"github.com/homereel/api/internal/store"
	"github.com/homereel/api/internal/websocket"
)

// Sentinels steering control flow inside store mutation closures. They abort
// the write without treating it as a failure.
var (
	errJobClosed = errors.New("job reached a terminal state")
	errSkipUnit  = errors.New("unit not eligible for dispatch")
	errNotReady  = errors.New("units still in flight")
)

// GenerationWorker drives one job's state machine end-to-end: fan out room
// units with bounded concurrency, record each transition durably, detect
// completion and trigger composition. Unit failures are isolated: one bad
// room never aborts the others. Every job-level write re-checks terminal
// status so a cancellation is never overwritten by a late completion.
type GenerationWorker struct {
	store    store.JobStore
	executor *Executor
	composer *Composer
	hub      *websocket.Hub
	cfg      config.GenerationConfig
}

func NewGenerationWorker(jobStore store.JobStore, executor *Executor, composer *Composer, hub *websocket.Hub, cfg config.GenerationConfig) *GenerationWorker {
	return &GenerationWorker{
		store:    jobStore,
		executor: executor,
		composer: composer,
		hub:      hub,
		cfg:      cfg,
	}
}

// ProcessTask handles a generation:process task: the full job run.
func (w *GenerationWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.GenerationTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}

	log.Printf("Starting generation job: %s", payload.JobID)

	job, err := w.store.UpdateJob(ctx, payload.JobID, func(job *model.GenerationJob) error {
		if job.Status.IsTerminal() {
			return errJobClosed
		}
		job.Status = model.JobStatusProcessingRooms
		// In-progress units were interrupted by a restart. Reset them to
		// waiting so the dispatch guard picks them up again.
		for i := range job.RoomUnits {
			if job.RoomUnits[i].Status == model.UnitStatusInProgress {
				job.RoomUnits[i].Status = model.UnitStatusWaiting
				job.RoomUnits[i].Progress = 0
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errJobClosed) {
			// Re-delivered after the job already finished or was cancelled.
			return nil
		}
		return err
	}

	var unitIDs []string
	for _, u := range job.RoomUnits {
		if u.Status == model.UnitStatusWaiting {
			unitIDs = append(unitIDs, u.ID)
		}
	}

	w.runUnits(ctx, payload.JobID, unitIDs)
	return w.finalize(ctx, payload.JobID)
}

// ProcessRetryTask handles a generation:retry task: a re-opened subset of
// units, followed by the same completion detection as a full run.
func (w *GenerationWorker) ProcessRetryTask(ctx context.Context, t *asynq.Task) error {
	var payload model.RetryTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal retry payload: %v: %w", err, asynq.SkipRetry)
	}

	log.Printf("Retrying %d unit(s) of job %s", len(payload.UnitIDs), payload.JobID)

	w.runUnits(ctx, payload.JobID, payload.UnitIDs)
	return w.finalize(ctx, payload.JobID)
}

// runUnits executes the given units with bounded parallelism. The bound keeps
// concurrent provider requests under its rate ceiling regardless of room
// count. Submission follows plan order; completion order is unordered.
func (w *GenerationWorker) runUnits(ctx context.Context, jobID string, unitIDs []string) {
	pool := w.cfg.WorkerPool
	if pool < 1 {
		pool = 1
	}

	g := new(errgroup.Group)
	g.SetLimit(pool)
	for _, unitID := range unitIDs {
		unitID := unitID
		g.Go(func() error {
			w.runUnit(ctx, jobID, unitID)
			return nil
		})
	}
	// Unit outcomes are recorded per unit; the group never carries an error.
	_ = g.Wait()
}

// runUnit drives one unit through waiting → in-progress → terminal, with
// every transition persisted before the next is permitted.
func (w *GenerationWorker) runUnit(ctx context.Context, jobID, unitID string) {
	var snapshot model.RoomVideoUnit
	job, err := w.store.UpdateJob(ctx, jobID, func(job *model.GenerationJob) error {
		if job.Status.IsTerminal() {
			return errJobClosed
		}
		unit := job.Unit(unitID)
		if unit == nil || unit.Status != model.UnitStatusWaiting {
			return errSkipUnit
		}
		unit.Status = model.UnitStatusInProgress
		unit.Progress = 0
		unit.Attempts++
		snapshot = *unit
		return nil
	})
	if err != nil {
		if errors.Is(err, errJobClosed) || errors.Is(err, errSkipUnit) {
			return
		}
		log.Printf("Unit %s of job %s: failed to mark in-progress: %v", unitID, jobID, err)
		return
	}

	w.broadcastProgress(job)

	onProgress := func(p int) {
		w.recordUnitProgress(ctx, jobID, unitID, p)
	}

	result, runErr := w.executor.Run(ctx, job.ProjectID, &snapshot, onProgress)
	if runErr != nil {
		w.recordUnitFailure(ctx, jobID, unitID, runErr)
		return
	}
	w.recordUnitSuccess(ctx, jobID, unitID, result)
}

// recordUnitProgress persists provider partial progress, best-effort.
func (w *GenerationWorker) recordUnitProgress(ctx context.Context, jobID, unitID string, progress int) {
	job, err := w.store.UpdateJob(ctx, jobID, func(job *model.GenerationJob) error {
		if job.Status.IsTerminal() {
			return errJobClosed
		}
		unit := job.Unit(unitID)
		if unit == nil || unit.Status != model.UnitStatusInProgress {
			return errSkipUnit
		}
		unit.Progress = progress
		return nil
	})
	if err != nil {
		return
	}
	w.broadcastProgress(job)
}

// recordUnitSuccess marks a unit completed. On a terminal job the outcome is
// kept on the unit for audit, but the job's counters and status are left
// untouched so a cancellation is never resurrected.
func (w *GenerationWorker) recordUnitSuccess(ctx context.Context, jobID, unitID string, result *UnitResult) {
	job, err := w.store.UpdateJob(ctx, jobID, func(job *model.GenerationJob) error {
		unit := job.Unit(unitID)
		if unit == nil || unit.Status != model.UnitStatusInProgress {
			return errSkipUnit
		}
		unit.Status = model.UnitStatusCompleted
		unit.Progress = 100
		unit.OutputURL = result.OutputURL
		unit.ThumbnailURL = result.ThumbnailURL
		unit.Duration = result.Duration
		if !job.Status.IsTerminal() {
			job.CompletedRooms++
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, errSkipUnit) {
			log.Printf("Unit %s of job %s: failed to record success: %v", unitID, jobID, err)
		}
		return
	}

	log.Printf("Unit %s of job %s completed", unitID, jobID)
	w.broadcastProgress(job)
}

// recordUnitFailure marks a unit failed after the executor exhausted its
// retries. The job keeps processing its remaining units.
func (w *GenerationWorker) recordUnitFailure(ctx context.Context, jobID, unitID string, unitErr error) {
	errMsg := unitErr.Error()
	job, err := w.store.UpdateJob(ctx, jobID, func(job *model.GenerationJob) error {
		unit := job.Unit(unitID)
		if unit == nil || unit.Status != model.UnitStatusInProgress {
			return errSkipUnit
		}
		unit.Status = model.UnitStatusFailed
		unit.Error = &errMsg
		if !job.Status.IsTerminal() {
			job.FailedRoomIDs = append(job.FailedRoomIDs, unitID)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, errSkipUnit) {
			log.Printf("Unit %s of job %s: failed to record failure: %v", unitID, jobID, err)
		}
		return
	}

	log.Printf("Unit %s of job %s failed: %s", unitID, jobID, errMsg)
	w.broadcastProgress(job)
}

// finalize advances the job once every unit is terminal: either fail the job
// outright or run composition over the successful units in plan order.
func (w *GenerationWorker) finalize(ctx context.Context, jobID string) error {
	job, err := w.store.UpdateJob(ctx, jobID, func(job *model.GenerationJob) error {
		if job.Status.IsTerminal() {
			return errJobClosed
		}
		if !job.AllUnitsTerminal() {
			return errNotReady
		}

		successes := len(job.SuccessfulUnits())
		minSuccess := w.cfg.MinSuccessRooms
		if minSuccess < 1 {
			minSuccess = 1
		}
		if successes == 0 {
			job.Status = model.JobStatusFailed
			msg := "all rooms failed"
			job.Error = &msg
			return nil
		}
		if successes < minSuccess {
			job.Status = model.JobStatusFailed
			msg := fmt.Sprintf("too few rooms succeeded (%d of %d required)", successes, minSuccess)
			job.Error = &msg
			return nil
		}
		job.Status = model.JobStatusComposingVideo
		return nil
	})
	if err != nil {
		if errors.Is(err, errJobClosed) || errors.Is(err, errNotReady) {
			return nil
		}
		return err
	}

	if job.Status == model.JobStatusFailed {
		log.Printf("Job %s failed: %s", job.ID, *job.Error)
		w.hub.BroadcastError(job.ID, "GENERATION_FAILED", *job.Error)
		return nil
	}

	w.broadcastProgress(job)
	return w.runComposition(ctx, job)
}

// runComposition merges the successful clips and records the outcome.
// A composition failure is fatal to the job and is never retried, so the
// task returns nil either way.
func (w *GenerationWorker) runComposition(ctx context.Context, job *model.GenerationJob) error {
	final, composeErr := w.composer.Compose(ctx, job, job.SuccessfulUnits())

	if composeErr != nil {
		errMsg := fmt.Sprintf("composition failed: %v", composeErr)
		_, err := w.store.UpdateJob(ctx, job.ID, func(job *model.GenerationJob) error {
			if job.Status.IsTerminal() {
				return errJobClosed
			}
			job.Status = model.JobStatusFailed
			job.Error = &errMsg
			return nil
		})
		if err != nil && !errors.Is(err, errJobClosed) {
			log.Printf("Job %s: failed to record composition error: %v", job.ID, err)
		}
		log.Printf("Job %s composition failed: %v", job.ID, composeErr)
		w.hub.BroadcastError(job.ID, "COMPOSITION_FAILED", errMsg)
		return nil
	}

	updated, err := w.store.UpdateJob(ctx, job.ID, func(job *model.GenerationJob) error {
		if job.Status.IsTerminal() {
			return errJobClosed
		}
		job.Status = model.JobStatusCompleted
		job.FinalVideo = final
		return nil
	})
	if err != nil {
		if errors.Is(err, errJobClosed) {
			return nil
		}
		return err
	}

	log.Printf("Job %s completed (%d/%d rooms)", updated.ID, updated.CompletedRooms, updated.TotalRooms)
	w.hub.BroadcastComplete(updated.ID, service.BuildSnapshot(updated, w.cfg.PerUnitSeconds))
	return nil
}

func (w *GenerationWorker) broadcastProgress(job *model.GenerationJob) {
	w.hub.BroadcastProgress(service.BuildSnapshot(job, w.cfg.PerUnitSeconds))
}
