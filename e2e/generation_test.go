package e2e

import (
	"fmt"
	"net/http"
	"testing"
)

func validStartBody(projectID string) string {
	return fmt.Sprintf(`{
		"projectId": "%s",
		"plan": {
			"aspectRatio": "16:9",
			"transitions": true,
			"rooms": [
				{
					"roomId": "room-1",
					"roomName": "Kitchen",
					"images": ["https://img.example/kitchen-1.jpg", "https://img.example/kitchen-2.jpg"],
					"settings": {"durationSeconds": 5, "aspectRatio": "16:9"}
				},
				{
					"roomId": "room-2",
					"roomName": "Master Bedroom",
					"images": ["https://img.example/bedroom.jpg"],
					"settings": {"durationSeconds": 8, "aspectRatio": "16:9", "directive": "slow pan toward the window"}
				}
			],
			"subtitles": {"enabled": true, "font": "classic"}
		}
	}`, projectID)
}

func startGeneration(t *testing.T, ta *testApp, projectID string) string {
	t.Helper()
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/generation/start", validStartBody(projectID))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)
	result := parseJSON(t, resp)
	jobID, _ := result["jobId"].(string)
	if jobID == "" {
		t.Fatal("expected jobId in start response")
	}
	return jobID
}

func TestGenerationStart_Success(t *testing.T) {
	ta := setupApp(t)
	projectID := createProject(t, ta)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/generation/start", validStartBody(projectID))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusAccepted)

	result := parseJSON(t, resp)
	if result["jobId"] == nil || result["jobId"] == "" {
		t.Error("expected 'jobId' in response")
	}
	if result["status"] != "waiting" {
		t.Errorf("expected status 'waiting', got %v", result["status"])
	}
	if result["estimatedCompletionTimeSeconds"] == nil {
		t.Error("expected ETA in response")
	}
}

func TestGenerationStart_NoAuth(t *testing.T) {
	ta := setupApp(t)
	projectID := createProject(t, ta)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/generation/start", validStartBody(projectID), nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestGenerationStart_UnknownProject(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/generation/start",
		validStartBody("3f6a8a3e-4e3e-4e74-9d3f-0c6f3a1b2c4d"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)
}

func TestGenerationStart_InvalidBody(t *testing.T) {
	ta := setupApp(t)

	// Missing plan
	body := `{"projectId": "not-a-uuid"}`

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/generation/start", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
}

func TestGenerationStatus_CompletedThroughMocks(t *testing.T) {
	ta := setupApp(t)
	projectID := createProject(t, ta)
	jobID := startGeneration(t, ta, projectID)

	// The test dispatcher runs the job inline, so by now it is terminal.
	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/generation/status/"+jobID, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["status"] != "completed" {
		t.Errorf("expected completed, got %v", result["status"])
	}
	if result["overallProgress"] != float64(100) {
		t.Errorf("expected progress 100, got %v", result["overallProgress"])
	}
	if result["isComplete"] != true {
		t.Error("expected isComplete true")
	}
	units, ok := result["units"].([]interface{})
	if !ok || len(units) != 2 {
		t.Fatalf("expected 2 unit summaries, got %v", result["units"])
	}
}

func TestGenerationStatus_UnknownJob(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/generation/status/no-such-job", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)
}

func TestGenerationStatusBatch_OmitsUnknown(t *testing.T) {
	ta := setupApp(t)
	projectID := createProject(t, ta)
	jobID := startGeneration(t, ta, projectID)

	body := fmt.Sprintf(`{"jobIds": ["%s", "no-such-job"]}`, jobID)
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/generation/status", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	jobs, ok := result["jobs"].([]interface{})
	if !ok || len(jobs) != 1 {
		t.Fatalf("expected exactly the known job, got %v", result["jobs"])
	}
}

func TestGenerationCancel_FinishedJobConflicts(t *testing.T) {
	ta := setupApp(t)
	projectID := createProject(t, ta)
	jobID := startGeneration(t, ta, projectID)

	// Inline dispatch already completed the job.
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/generation/cancel/"+jobID, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusConflict)
}

func TestGenerationResult_Success(t *testing.T) {
	ta := setupApp(t)
	projectID := createProject(t, ta)
	jobID := startGeneration(t, ta, projectID)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/generation/result/"+projectID, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["jobId"] != jobID {
		t.Errorf("expected job %s, got %v", jobID, result["jobId"])
	}
	video, ok := result["video"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected video object, got %v", result["video"])
	}
	if video["url"] == nil || video["url"] == "" {
		t.Error("expected final video url")
	}
}

func TestGenerationResult_NoJobYet(t *testing.T) {
	ta := setupApp(t)
	projectID := createProject(t, ta)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/generation/result/"+projectID, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)
}

func TestGenerationRetry_NothingFailed(t *testing.T) {
	ta := setupApp(t)
	projectID := createProject(t, ta)
	jobID := startGeneration(t, ta, projectID)

	// Every room succeeded through the mocks; retry reopens nothing.
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/generation/retry/"+jobID, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)

	result := parseJSON(t, resp)
	if result["status"] != "completed" {
		t.Errorf("expected job untouched, got %v", result["status"])
	}
}

func TestProjectDelete_RemovesJob(t *testing.T) {
	ta := setupApp(t)
	projectID := createProject(t, ta)
	jobID := startGeneration(t, ta, projectID)

	resp, err := doAuthRequest(t, ta.app, http.MethodDelete, "/api/projects/"+projectID, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNoContent)

	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/generation/status/"+jobID, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
}
