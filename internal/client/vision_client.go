package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/homereel/api/internal/apperr"
	"github.com/homereel/api/internal/config"
	"github.com/homereel/api/internal/model"
)

// RoomClassifier defines the interface for photo room classification.
type RoomClassifier interface {
	Classify(ctx context.Context, imageURL string) (*model.Classification, error)
	ClassifyBatch(ctx context.Context, imageURLs []string, concurrency int) ([]model.Classification, error)
	IsConfigured() bool
}

// VisionClient implements RoomClassifier against the Groq vision API.
type VisionClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// visionContent is one part of a multimodal chat message
type visionContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

type visionMessage struct {
	Role    string          `json:"role"`
	Content []visionContent `json:"content"`
}

type visionCompletionRequest struct {
	Model       string          `json:"model"`
	Messages    []visionMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type visionCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const classifyPrompt = `You are a real-estate photo classifier. Reply with a single JSON object
{"category": "<one of: living_room kitchen bedroom bathroom dining_room office garage basement hallway exterior backyard balcony other>", "confidence": <0.0-1.0>}
and nothing else.`

// NewVisionClient creates a new Groq vision client
func NewVisionClient(cfg *config.GroqConfig) *VisionClient {
	return &VisionClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}
}

// Classify returns the room category for a single photo
func (c *VisionClient) Classify(ctx context.Context, imageURL string) (*model.Classification, error) {
	if !c.IsConfigured() {
		return mockClassification(imageURL), nil
	}

	img := visionContent{Type: "image_url"}
	img.ImageURL = &struct {
		URL string `json:"url"`
	}{URL: imageURL}

	reqBody := visionCompletionRequest{
		Model: c.model,
		Messages: []visionMessage{{
			Role: "user",
			Content: []visionContent{
				{Type: "text", Text: classifyPrompt},
				img,
			},
		}},
		Temperature: 0,
		MaxTokens:   64,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	log.Printf("[Groq Vision] → classify %s", imageURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProviderTransient, "classification request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProviderTransient, "failed to read classification response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("groq API error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, apperr.New(apperr.KindProviderTransient, msg)
		}
		return nil, apperr.New(apperr.KindProviderRejected, msg)
	}

	var completion visionCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return nil, apperr.Wrap(apperr.KindProviderTransient, "failed to unmarshal classification response", err)
	}
	if len(completion.Choices) == 0 {
		return nil, apperr.New(apperr.KindProviderRejected, "classification returned no choices")
	}

	return parseClassification(imageURL, completion.Choices[0].Message.Content)
}

// ClassifyBatch classifies several photos with bounded concurrency, returning
// results in input order.
func (c *VisionClient) ClassifyBatch(ctx context.Context, imageURLs []string, concurrency int) ([]model.Classification, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]model.Classification, len(imageURLs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, url := range imageURLs {
		i, url := i, url
		g.Go(func() error {
			res, err := c.Classify(gctx, url)
			if err != nil {
				return err
			}
			results[i] = *res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// parseClassification extracts the JSON answer from the model output. Models
// occasionally wrap the object in prose, so scan for the braces.
func parseClassification(imageURL, content string) (*model.Classification, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, apperr.New(apperr.KindProviderRejected, "classifier returned no JSON object")
	}

	var parsed struct {
		Category   string  `json:"category"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &parsed); err != nil {
		return nil, apperr.Wrap(apperr.KindProviderRejected, "classifier returned malformed JSON", err)
	}

	category := model.RoomCategory(parsed.Category)
	valid := false
	for _, c := range model.ValidRoomCategories {
		if c == category {
			valid = true
			break
		}
	}
	// Out-of-taxonomy answers collapse to "other" rather than failing
	// the image.
	if !valid {
		category = model.RoomOther
	}

	return &model.Classification{
		ImageURL:   imageURL,
		Category:   category,
		Confidence: parsed.Confidence,
	}, nil
}

// mockClassification gives a stable category for development without an
// API key.
func mockClassification(imageURL string) *model.Classification {
	h := fnv.New32a()
	h.Write([]byte(imageURL))
	category := model.ValidRoomCategories[int(h.Sum32())%len(model.ValidRoomCategories)]
	return &model.Classification{
		ImageURL:   imageURL,
		Category:   category,
		Confidence: 0.5,
	}
}

// IsConfigured returns true if the client has valid configuration
func (c *VisionClient) IsConfigured() bool {
	return c.apiKey != ""
}
