package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/homereel/api/internal/apperr"
	"github.com/homereel/api/internal/config"
)

// VideoGenerator defines the interface for image-to-video generation.
// The provider contract is asynchronous: submit a task, then poll by id.
type VideoGenerator interface {
	GenerateClip(ctx context.Context, req *GenerateClipRequest) (*GenerateClipResponse, error)
	GetTaskStatus(ctx context.Context, taskID string) (*ClipTaskResult, error)
	PollTask(ctx context.Context, taskID string, interval, maxWait time.Duration, onProgress func(int)) (*ClipTaskResult, error)
	IsConfigured() bool
}

// RunwayClient implements VideoGenerator for the Runway image-to-video API.
type RunwayClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// GenerateClipRequest represents an image-to-video submission
type GenerateClipRequest struct {
	PromptText   string   `json:"promptText"`
	PromptImages []string `json:"promptImages"`
	Duration     int      `json:"duration"`
	Ratio        string   `json:"ratio"`
}

// GenerateClipResponse holds the accepted task id
type GenerateClipResponse struct {
	TaskID string `json:"id"`
	Status string `json:"status"`
}

// ClipTaskResult represents the state of a generation task
type ClipTaskResult struct {
	TaskID   string   `json:"id"`
	Status   string   `json:"status"`
	Progress float64  `json:"progress"`
	Output   []string `json:"output,omitempty"`
	Failure  string   `json:"failure,omitempty"`
}

// VideoURL returns the first output artifact of a succeeded task.
func (r *ClipTaskResult) VideoURL() string {
	if len(r.Output) > 0 {
		return r.Output[0]
	}
	return ""
}

// NewRunwayClient creates a new Runway API client
func NewRunwayClient(cfg *config.RunwayConfig) *RunwayClient {
	return &RunwayClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}
}

// GenerateClip submits an image-to-video generation task
func (c *RunwayClient) GenerateClip(ctx context.Context, req *GenerateClipRequest) (*GenerateClipResponse, error) {
	body := map[string]interface{}{
		"model":       c.model,
		"promptText":  req.PromptText,
		"promptImage": req.PromptImages,
		"duration":    req.Duration,
		"ratio":       req.Ratio,
	}
	var result GenerateClipResponse
	if err := c.post(ctx, "/v1/image_to_video", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTaskStatus retrieves the status of a generation task
func (c *RunwayClient) GetTaskStatus(ctx context.Context, taskID string) (*ClipTaskResult, error) {
	endpoint := fmt.Sprintf("/v1/tasks/%s", taskID)
	var result ClipTaskResult
	if err := c.get(ctx, endpoint, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PollTask polls a task until it reaches a terminal state. onProgress, when
// non-nil, receives the provider's partial progress as a 0-100 percentage.
func (c *RunwayClient) PollTask(ctx context.Context, taskID string, interval, maxWait time.Duration, onProgress func(int)) (*ClipTaskResult, error) {
	deadline := time.Now().Add(maxWait)
	attempt := 0

	for time.Now().Before(deadline) {
		attempt++
		result, err := c.GetTaskStatus(ctx, taskID)
		if err != nil {
			log.Printf("[Runway API] Poll #%d (task=%s) — error: %v", attempt, taskID, err)
			return nil, err
		}

		log.Printf("[Runway API] Poll #%d (task=%s) — status: %s", attempt, taskID, result.Status)

		switch result.Status {
		case "SUCCEEDED":
			return result, nil
		case "FAILED", "CANCELLED":
			return nil, apperr.New(apperr.KindProviderRejected,
				fmt.Sprintf("clip generation failed: %s", result.Failure))
		}

		if onProgress != nil && result.Progress > 0 {
			onProgress(int(result.Progress * 100))
		}

		select {
		case <-ctx.Done():
			log.Printf("[Runway API] Poll (task=%s) — context cancelled", taskID)
			return nil, classifyTransportError(ctx.Err())
		case <-time.After(interval):
			continue
		}
	}

	return nil, apperr.New(apperr.KindProviderTransient,
		fmt.Sprintf("clip generation timed out after %v", maxWait))
}

func (c *RunwayClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

func (c *RunwayClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// doRequest executes an HTTP request, classifies failures into the retryable
// and non-retryable taxonomy, and parses the response.
func (c *RunwayClient) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Runway-Version", "2024-11-06")

	log.Printf("[Runway API] → %s %s", req.Method, req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Runway API] ✗ %s %s — request failed: %v", req.Method, req.URL.String(), err)
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.KindProviderTransient, "failed to read provider response", err)
	}

	log.Printf("[Runway API] ← %d %s %s", resp.StatusCode, req.Method, req.URL.String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("runway API error (status %d): %s", resp.StatusCode, string(respBody))
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return apperr.New(apperr.KindProviderTransient, msg)
		case resp.StatusCode >= 500:
			return apperr.New(apperr.KindProviderTransient, msg)
		default:
			return apperr.New(apperr.KindProviderRejected, msg)
		}
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return apperr.Wrap(apperr.KindProviderTransient, "failed to unmarshal provider response", err)
	}

	return nil
}

// classifyTransportError maps network-level failures to the taxonomy.
// Timeouts and cancellations count as transient so the executor may retry.
func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperr.Wrap(apperr.KindProviderTransient, "provider request timed out", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindProviderTransient, "provider request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return apperr.Wrap(apperr.KindProviderTransient, "provider request cancelled", err)
	}
	return apperr.Wrap(apperr.KindProviderTransient, "provider request failed", err)
}

// IsConfigured returns true if the client has valid configuration
func (c *RunwayClient) IsConfigured() bool {
	return c.apiKey != ""
}
