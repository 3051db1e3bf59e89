package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"github.com/homereel/api/internal/auth"
	"github.com/homereel/api/internal/client"
	"github.com/homereel/api/internal/config"
	"github.com/homereel/api/internal/handler"
	"github.com/homereel/api/internal/middleware"
	"github.com/homereel/api/internal/model"
	"github.com/homereel/api/internal/service"
	"github.com/homereel/api/internal/store"
	"github.com/homereel/api/internal/worker"
	ws "github.com/homereel/api/internal/websocket"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app      *fiber.App
	jobStore *store.MemoryStore
}

// inlineDispatcher runs the generation worker synchronously instead of
// enqueueing on Redis, so a start request returns with the job already run
// through the mock clients.
type inlineDispatcher struct {
	worker *worker.GenerationWorker
}

func (d *inlineDispatcher) EnqueueGeneration(ctx context.Context, payload *model.GenerationTaskPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return d.worker.ProcessTask(context.Background(), asynq.NewTask(service.TaskTypeGeneration, data))
}

func (d *inlineDispatcher) EnqueueRetry(ctx context.Context, payload *model.RetryTaskPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return d.worker.ProcessRetryTask(context.Background(), asynq.NewTask(service.TaskTypeRetry, data))
}

// setupApp creates a Fiber app wired like main.go but with an in-memory store
// and unconfigured external clients, so every provider call takes its mock
// fallback. No Redis is required.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	jobStore := store.NewMemoryStore()
	validate := validator.New()

	genCfg := config.GenerationConfig{
		WorkerPool:      3,
		UnitTimeout:     30,
		MaxAttempts:     2,
		BackoffBase:     1,
		BackoffCap:      2,
		PollInterval:    1,
		PerUnitSeconds:  90,
		MinSuccessRooms: 1,
	}

	hub := ws.NewHub()
	go hub.Run()

	// nil provider clients → mock generation and composition
	executor := worker.NewExecutor(nil, nil, genCfg)
	composer := worker.NewComposer(nil, genCfg)
	generationWorker := worker.NewGenerationWorker(jobStore, executor, composer, hub, genCfg)
	dispatcher := &inlineDispatcher{worker: generationWorker}

	generationService := service.NewGenerationService(jobStore, dispatcher, nil, genCfg)

	visionClient := client.NewVisionClient(&config.GroqConfig{}) // no API key → mock

	generationHandler := handler.NewGenerationHandler(generationService, validate)
	projectHandler := handler.NewProjectHandler(generationService, validate)
	classifyHandler := handler.NewClassifyHandler(visionClient, validate)
	authHandler := handler.NewAuthHandler(nil, testJWTSecret)

	authMiddleware := middleware.NewLegacyAuthMiddleware(testJWTSecret)

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"vision":  false,
				"runway":  false,
				"r2":      false,
				"compose": false,
				"auth":    true,
			},
		})
	})
	app.Get("/auth/verify", authHandler.Verify)

	api := app.Group("/api", authMiddleware.Authenticate())

	api.Post("/classify", classifyHandler.Classify)

	projects := api.Group("/projects")
	projects.Post("/", projectHandler.Create)
	projects.Delete("/:projectId", projectHandler.Delete)

	generation := api.Group("/generation")
	generation.Post("/start", generationHandler.Start)
	generation.Get("/status/:jobId", generationHandler.Status)
	generation.Post("/status", generationHandler.StatusBatch)
	generation.Post("/retry/:jobId", generationHandler.Retry)
	generation.Post("/cancel/:jobId", generationHandler.Cancel)
	generation.Get("/result/:projectId", generationHandler.Result)

	return &testApp{app: app, jobStore: jobStore}
}

// generateToken creates a legacy HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	signed, err := auth.NewLegacyToken("test-user-123", "test@example.com", testJWTSecret)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus fails the test when the response status differs.
func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d", want, resp.StatusCode)
	}
}

// createProject registers a project owned by the test user and returns its id.
func createProject(t *testing.T, ta *testApp) string {
	t.Helper()
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/projects/", `{"address": "12 Ocean Drive"}`)
	if err != nil {
		t.Fatalf("create project failed: %v", err)
	}
	assertStatus(t, resp, http.StatusCreated)
	result := parseJSON(t, resp)
	id, _ := result["id"].(string)
	if id == "" {
		t.Fatal("expected project id in response")
	}
	return id
}
