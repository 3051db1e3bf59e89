package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/homereel/api/internal/apperr"
	"github.com/homereel/api/internal/config"
)

// VideoComposer defines the interface for final-video composition.
type VideoComposer interface {
	Compose(ctx context.Context, req *ComposeRequest) (*ComposeResponse, error)
	HealthCheck(ctx context.Context) error
	IsConfigured() bool
}

// ComposeClient implements VideoComposer against the ffmpeg render
// microservice. The call is synchronous with a long timeout; the render
// service uploads its own output and returns durable URLs.
type ComposeClient struct {
	httpClient *http.Client
	baseURL    string
}

// ComposeClip is one room segment of the final video, in walkthrough order
type ComposeClip struct {
	URL      string  `json:"url"`
	Label    string  `json:"label"`
	Duration float64 `json:"duration"`
}

// ComposeLogo places a logo overlay in one corner
type ComposeLogo struct {
	URL    string `json:"url"`
	Corner string `json:"corner"`
}

// ComposeSubtitles labels each segment, timed by even division across clips
type ComposeSubtitles struct {
	Font string `json:"font"`
}

// ComposeRequest represents the request for final composition
type ComposeRequest struct {
	Clips        []ComposeClip     `json:"clips"`
	Logo         *ComposeLogo      `json:"logo,omitempty"`
	Subtitles    *ComposeSubtitles `json:"subtitles,omitempty"`
	AspectRatio  string            `json:"aspect_ratio"`
	Transitions  bool              `json:"transitions"`
	OutputKey    string            `json:"output_key"`
	ThumbnailKey string            `json:"thumbnail_key"`
}

// ComposeResponse represents the response from composition
type ComposeResponse struct {
	OutputURL    string  `json:"output_url"`
	ThumbnailURL string  `json:"thumbnail_url"`
	Duration     float64 `json:"duration"`
	Size         int64   `json:"size"`
}

// NewComposeClient creates a new render service client
func NewComposeClient(cfg *config.RenderConfig) *ComposeClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &ComposeClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.ServiceURL,
	}
}

// Compose merges the clips into one final video. Every failure here is a
// composition error: it is fatal to the job and never retried automatically.
func (c *ComposeClient) Compose(ctx context.Context, req *ComposeRequest) (*ComposeResponse, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal compose request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/compose", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	log.Printf("[Render Service] → POST /compose (%d clips)", len(req.Clips))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindComposition, "composition request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindComposition, "failed to read composition response", err)
	}

	log.Printf("[Render Service] ← %d POST /compose", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.New(apperr.KindComposition,
			fmt.Sprintf("render service error (status %d): %s", resp.StatusCode, string(respBody)))
	}

	var result ComposeResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, apperr.Wrap(apperr.KindComposition, "failed to unmarshal composition response", err)
	}

	return &result, nil
}

// HealthCheck pings the render service
func (c *ComposeClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("render service unhealthy (status %d)", resp.StatusCode)
	}
	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *ComposeClient) IsConfigured() bool {
	return c.baseURL != ""
}
