package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/homereel/api/internal/apperr"
	"github.com/homereel/api/internal/config"
)

func runwayClientFor(server *httptest.Server) *RunwayClient {
	return NewRunwayClient(&config.RunwayConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gen3a_turbo",
	})
}

func TestGenerateClip_Submits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/image_to_video" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing bearer auth, got %q", got)
		}
		if got := r.Header.Get("X-Runway-Version"); got == "" {
			t.Error("missing X-Runway-Version header")
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "task-1", "status": "PENDING"}`))
	}))
	defer server.Close()

	c := runwayClientFor(server)
	resp, err := c.GenerateClip(context.Background(), &GenerateClipRequest{
		PromptText:   "a bright kitchen",
		PromptImages: []string{"https://img.example/k.jpg"},
		Duration:     5,
		Ratio:        "16:9",
	})
	if err != nil {
		t.Fatalf("GenerateClip: %v", err)
	}
	if resp.TaskID != "task-1" {
		t.Errorf("expected task-1, got %s", resp.TaskID)
	}
}

func TestDoRequest_ErrorClassification(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		wantKind  apperr.Kind
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, apperr.KindProviderTransient, true},
		{"server error", http.StatusInternalServerError, apperr.KindProviderTransient, true},
		{"bad gateway", http.StatusBadGateway, apperr.KindProviderTransient, true},
		{"bad request", http.StatusBadRequest, apperr.KindProviderRejected, false},
		{"content policy", http.StatusUnprocessableEntity, apperr.KindProviderRejected, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(`{"error": "nope"}`))
			}))
			defer server.Close()

			c := runwayClientFor(server)
			_, err := c.GenerateClip(context.Background(), &GenerateClipRequest{
				PromptImages: []string{"https://img.example/k.jpg"},
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if apperr.KindOf(err) != tc.wantKind {
				t.Errorf("expected kind %s, got %s", tc.wantKind, apperr.KindOf(err))
			}
			if apperr.IsTransient(err) != tc.retryable {
				t.Errorf("expected retryable=%v for status %d", tc.retryable, tc.status)
			}
		})
	}
}

func TestPollTask_SucceedsWithProgress(t *testing.T) {
	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls++
		w.WriteHeader(http.StatusOK)
		if polls < 2 {
			w.Write([]byte(`{"id": "task-1", "status": "RUNNING", "progress": 0.4}`))
			return
		}
		w.Write([]byte(`{"id": "task-1", "status": "SUCCEEDED", "output": ["https://provider.example/out.mp4"]}`))
	}))
	defer server.Close()

	var reported []int
	c := runwayClientFor(server)
	result, err := c.PollTask(context.Background(), "task-1", 10*time.Millisecond, time.Second, func(p int) {
		reported = append(reported, p)
	})
	if err != nil {
		t.Fatalf("PollTask: %v", err)
	}
	if result.VideoURL() != "https://provider.example/out.mp4" {
		t.Errorf("unexpected output URL %s", result.VideoURL())
	}
	if len(reported) == 0 || reported[0] != 40 {
		t.Errorf("expected progress 40 reported, got %v", reported)
	}
}

func TestPollTask_FailureIsRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "task-1", "status": "FAILED", "failure": "input rejected"}`))
	}))
	defer server.Close()

	c := runwayClientFor(server)
	_, err := c.PollTask(context.Background(), "task-1", 10*time.Millisecond, time.Second, nil)
	if err == nil {
		t.Fatal("expected error for failed task")
	}
	// A provider-side failure verdict is final; retrying wastes quota.
	if apperr.IsTransient(err) {
		t.Error("provider failure verdict must not be retryable")
	}
}

func TestPollTask_TimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "task-1", "status": "RUNNING", "progress": 0.1}`))
	}))
	defer server.Close()

	c := runwayClientFor(server)
	_, err := c.PollTask(context.Background(), "task-1", 5*time.Millisecond, 30*time.Millisecond, nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !apperr.IsTransient(err) {
		t.Error("poll timeout should be retryable")
	}
}

func TestIsConfigured(t *testing.T) {
	c := NewRunwayClient(&config.RunwayConfig{})
	if c.IsConfigured() {
		t.Error("client without API key must not report configured")
	}
	c = NewRunwayClient(&config.RunwayConfig{APIKey: "k", BaseURL: "https://api.example"})
	if !c.IsConfigured() {
		t.Error("client with key and URL must report configured")
	}
}
