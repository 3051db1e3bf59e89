package worker

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/homereel/api/internal/apperr"
	"github.com/homereel/api/internal/client"
	"github.com/homereel/api/internal/config"
	"github.com/homereel/api/internal/model"
)

// UnitResult is the normalized outcome of one successful room generation.
type UnitResult struct {
	OutputURL    string
	ThumbnailURL string
	Duration     float64
}

// Executor produces one video clip for one room. It normalizes the provider's
// submit-then-poll contract into a single blocking call bounded by a hard
// wall-clock timeout, retries transient failures with exponential backoff and
// persists the provider output to durable storage before reporting success.
type Executor struct {
	video      client.VideoGenerator
	storage    client.StorageClient
	httpClient *http.Client
	cfg        config.GenerationConfig
}

func NewExecutor(video client.VideoGenerator, storage client.StorageClient, cfg config.GenerationConfig) *Executor {
	return &Executor{
		video:      video,
		storage:    storage,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		cfg:        cfg,
	}
}

// Run generates the clip for one unit. onProgress receives the provider's
// partial progress (0-100) while the task runs.
func (e *Executor) Run(ctx context.Context, projectID string, unit *model.RoomVideoUnit, onProgress func(int)) (*UnitResult, error) {
	if e.video == nil || !e.video.IsConfigured() {
		return e.runMock(ctx, unit, onProgress)
	}

	var lastErr error
	backoff := time.Duration(e.cfg.BackoffBase) * time.Millisecond
	maxBackoff := time.Duration(e.cfg.BackoffCap) * time.Millisecond

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		result, err := e.attempt(ctx, projectID, unit, onProgress)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !apperr.IsTransient(err) {
			log.Printf("Unit %s attempt %d rejected, not retrying: %v", unit.ID, attempt, err)
			return nil, err
		}
		log.Printf("Unit %s attempt %d failed: %v", unit.ID, attempt, err)
		if attempt == e.cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, apperr.Wrap(apperr.KindProviderTransient, "generation aborted", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	return nil, fmt.Errorf("unit %s failed after %d attempts: %w", unit.ID, e.cfg.MaxAttempts, lastErr)
}

// attempt is one bounded provider round-trip: submit, poll to terminal,
// persist the output.
func (e *Executor) attempt(ctx context.Context, projectID string, unit *model.RoomVideoUnit, onProgress func(int)) (*UnitResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.UnitTimeout)*time.Second)
	defer cancel()

	submitted, err := e.video.GenerateClip(attemptCtx, &client.GenerateClipRequest{
		PromptText:   buildDirective(unit),
		PromptImages: unit.Images,
		Duration:     unit.Settings.DurationSeconds,
		Ratio:        string(unit.Settings.AspectRatio),
	})
	if err != nil {
		return nil, err
	}

	interval := time.Duration(e.cfg.PollInterval) * time.Second
	maxWait := time.Until(deadlineOf(attemptCtx))
	task, err := e.video.PollTask(attemptCtx, submitted.TaskID, interval, maxWait, onProgress)
	if err != nil {
		return nil, err
	}

	videoURL := task.VideoURL()
	if videoURL == "" {
		return nil, apperr.New(apperr.KindProviderRejected, "provider returned no output")
	}

	outputURL, err := e.persistClip(attemptCtx, projectID, unit.ID, videoURL)
	if err != nil {
		return nil, err
	}

	return &UnitResult{
		OutputURL:    outputURL,
		ThumbnailURL: firstImage(unit),
		Duration:     float64(unit.Settings.DurationSeconds),
	}, nil
}

// persistClip re-uploads the provider's clip to R2 so the record of truth is
// a durable URL, not a provider URL with an unknown lifetime. Without storage
// configured the provider URL is kept (development mode).
func (e *Executor) persistClip(ctx context.Context, projectID, unitID, providerURL string) (string, error) {
	if e.storage == nil {
		return providerURL, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, providerURL, nil)
	if err != nil {
		return "", apperr.Wrap(apperr.KindStorage, "failed to build clip download request", err)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.KindStorage, "failed to download clip", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", apperr.New(apperr.KindStorage, fmt.Sprintf("clip download returned status %d", resp.StatusCode))
	}

	key := fmt.Sprintf("videos/%s/rooms/%s.mp4", projectID, unitID)
	url, err := e.storage.Upload(ctx, key, resp.Body, "video/mp4")
	if err != nil {
		return "", apperr.Wrap(apperr.KindStorage, "failed to upload clip", err)
	}
	return url, nil
}

// runMock walks the same transitions without a provider, for development and
// handler tests.
func (e *Executor) runMock(ctx context.Context, unit *model.RoomVideoUnit, onProgress func(int)) (*UnitResult, error) {
	for _, p := range []int{25, 50, 75} {
		select {
		case <-ctx.Done():
			return nil, apperr.Wrap(apperr.KindProviderTransient, "generation aborted", ctx.Err())
		case <-time.After(50 * time.Millisecond):
		}
		if onProgress != nil {
			onProgress(p)
		}
	}

	return &UnitResult{
		OutputURL:    fmt.Sprintf("https://cdn.homereel.app/videos/mock/rooms/%s.mp4", unit.ID),
		ThumbnailURL: firstImage(unit),
		Duration:     float64(unit.Settings.DurationSeconds),
	}, nil
}

// buildDirective synthesizes the provider prompt from the room context and
// the user's creative direction.
func buildDirective(unit *model.RoomVideoUnit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Smooth cinematic walkthrough of the %s of a residential property.", unit.RoomName)
	if unit.Settings.Category != "" && unit.Settings.Category != model.RoomOther {
		fmt.Fprintf(&b, " Room type: %s.", strings.ReplaceAll(string(unit.Settings.Category), "_", " "))
	}
	b.WriteString(" Steady camera, natural lighting, no people.")
	if d := strings.TrimSpace(unit.Settings.Directive); d != "" {
		b.WriteString(" ")
		b.WriteString(d)
	}
	return b.String()
}

func firstImage(unit *model.RoomVideoUnit) string {
	if len(unit.Images) > 0 {
		return unit.Images[0]
	}
	return ""
}

func deadlineOf(ctx context.Context) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(10 * time.Minute)
}
