package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/homereel/api/internal/apperr"
	"github.com/homereel/api/internal/client"
	"github.com/homereel/api/internal/config"
	"github.com/homereel/api/internal/model"
)

// Composer merges the successful room clips, in plan order, into the final
// deliverable. Composition is never retried: a failure here fails the job and
// the user re-runs it explicitly, so resource exhaustion is not masked by
// invisible retries.
type Composer struct {
	compose client.VideoComposer
	cfg     config.GenerationConfig
}

func NewComposer(compose client.VideoComposer, cfg config.GenerationConfig) *Composer {
	return &Composer{compose: compose, cfg: cfg}
}

// Compose builds the final video from the given units. Calling it with zero
// units is a programming error in the orchestrator; it is reported as a
// composition failure rather than letting a malformed request reach the
// render service.
func (c *Composer) Compose(ctx context.Context, job *model.GenerationJob, units []model.RoomVideoUnit) (*model.FinalVideo, error) {
	if len(units) == 0 {
		return nil, apperr.New(apperr.KindComposition, "composition invoked with zero clips")
	}

	if c.compose == nil || !c.compose.IsConfigured() {
		return c.composeMock(job, units), nil
	}

	req := &client.ComposeRequest{
		AspectRatio:  string(job.Composition.AspectRatio),
		Transitions:  job.Composition.Transitions,
		OutputKey:    fmt.Sprintf("videos/%s/final/%s.mp4", job.ProjectID, job.ID),
		ThumbnailKey: fmt.Sprintf("videos/%s/final/%s.jpg", job.ProjectID, job.ID),
	}
	for _, u := range units {
		req.Clips = append(req.Clips, client.ComposeClip{
			URL:      u.OutputURL,
			Label:    u.RoomName,
			Duration: u.Duration,
		})
	}
	if logo := job.Composition.Logo; logo != nil {
		req.Logo = &client.ComposeLogo{URL: logo.URL, Corner: string(logo.Corner)}
	}
	if subs := job.Composition.Subtitles; subs != nil && subs.Enabled {
		font := subs.Font
		if font == "" {
			font = model.FontClassic
		}
		req.Subtitles = &client.ComposeSubtitles{Font: string(font)}
	}

	resp, err := c.compose.Compose(ctx, req)
	if err != nil {
		return nil, err
	}

	return &model.FinalVideo{
		URL:          resp.OutputURL,
		ThumbnailURL: resp.ThumbnailURL,
		Duration:     resp.Duration,
		SizeBytes:    resp.Size,
		CreatedAt:    time.Now(),
	}, nil
}

// composeMock stands in when the render service is not configured. The
// duration matches the real service's contract: clip durations plus the
// per-transition overhead.
func (c *Composer) composeMock(job *model.GenerationJob, units []model.RoomVideoUnit) *model.FinalVideo {
	var duration float64
	for _, u := range units {
		duration += u.Duration
	}
	if job.Composition.Transitions && c.cfg.TransitionSeconds > 0 && len(units) > 1 {
		duration += c.cfg.TransitionSeconds * float64(len(units)-1)
	}

	return &model.FinalVideo{
		URL:          fmt.Sprintf("https://cdn.homereel.app/videos/mock/final/%s.mp4", units[0].ID),
		ThumbnailURL: units[0].ThumbnailURL,
		Duration:     duration,
		SizeBytes:    int64(duration * 1_500_000),
		CreatedAt:    time.Now(),
	}
}
