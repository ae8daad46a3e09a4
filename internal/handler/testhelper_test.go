package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"github.com/videogen/api/internal/auth"
	"github.com/videogen/api/internal/client"
	"github.com/videogen/api/internal/config"
	"github.com/videogen/api/internal/handler"
	"github.com/videogen/api/internal/middleware"
	"github.com/videogen/api/internal/service"
	"github.com/videogen/api/internal/store"
)

const (
	testJWTSecret = "test-secret-for-e2e"
	ownerID       = "test-user-123"
	otherID       = "someone-else"
)

type fakeQueue struct {
	tasks []*asynq.Task
}

func (q *fakeQueue) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "task", Queue: service.QueuePipeline}, nil
}

type testApp struct {
	app   *fiber.App
	store *store.MemoryStore
	queue *fakeQueue
}

// setupApp builds the app the way main.go does, with every vendor client left
// unconfigured so services fall back to their mocks.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	st := store.NewMemoryStore()
	storage := client.NewMockStorage("")
	queue := &fakeQueue{}
	validate := validator.New()

	projectService := service.NewProjectService(st)
	scriptService := service.NewScriptService(nil, time.Second)
	assetService := service.NewAssetService(st, st, nil, nil, nil, storage, service.AssetOptions{CallTimeout: time.Second})
	compositionService := service.NewCompositionService(st, st, nil, nil, time.Second)
	orchestrator := service.NewOrchestrator(scriptService, projectService, assetService, assetService, compositionService)
	jobService := service.NewJobService(store.NewMemoryJobStore(), st, queue)

	authenticator := auth.NewAuthenticator(nil, testJWTSecret)

	handlers := &handler.Handlers{
		Health:   handler.NewHealthHandler(map[string]bool{"text": false, "elevenlabs": false, "fal": false, "auth": true}),
		Auth:     handler.NewAuthHandler(authenticator),
		Script:   handler.NewScriptHandler(scriptService, validate),
		Audio:    handler.NewAudioHandler(assetService, validate),
		Profile:  handler.NewProfileHandler(assetService),
		Project:  handler.NewProjectHandler(projectService, compositionService, validate),
		Image:    handler.NewImageHandler(assetService, validate),
		Video:    handler.NewVideoHandler(compositionService, validate),
		Pipeline: handler.NewPipelineHandler(orchestrator, jobService, validate),
	}

	app := fiber.New(fiber.Config{BodyLimit: 50 * 1024 * 1024})
	app.Use(middleware.RequestLogger())
	// Zero limits disable rate limiting so tests never get blocked.
	handler.RegisterRoutes(app, handlers,
		middleware.NewAuthMiddleware(authenticator).Authenticate(),
		middleware.NewRateLimiter(nil),
		config.RateLimitConfig{},
	)

	return &testApp{app: app, store: st, queue: queue}
}

func generateToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.IssueLegacyToken(testJWTSecret, userID, userID+"@example.com", time.Hour)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

func doRequest(app *fiber.App, method, path, body string, headers map[string]string) (*http.Response, error) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return app.Test(req, -1)
}

// doAs sends an authenticated request as userID and fails the test on transport errors.
func doAs(t *testing.T, ta *testApp, userID, method, path, body string) *http.Response {
	t.Helper()
	resp, err := doRequest(ta.app, method, path, body, map[string]string{
		"Authorization": "Bearer " + generateToken(t, userID),
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func uploadVideo(t *testing.T, ta *testApp, userID, filename string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte("fake-video-bytes"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/profile/video", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+generateToken(t, userID))
	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	return resp
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d: %s", expected, resp.StatusCode, string(body))
	}
}

func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to parse JSON %q: %v", string(body), err)
	}
	return result
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	errObj, ok := parseJSON(t, resp)["error"].(map[string]interface{})
	if !ok {
		t.Fatal("expected error envelope")
	}
	code, _ := errObj["code"].(string)
	return code
}

// createProject creates a two-scene project for userID and returns its id.
func createProject(t *testing.T, ta *testApp, userID string) string {
	t.Helper()
	resp := doAs(t, ta, userID, http.MethodPost, "/api/projects", `{
		"title": "Demo",
		"script": "Hello world",
		"scenes": [
			{"content": "Hello", "imagePrompt": "sunrise over a city"},
			{"content": "world", "imagePrompt": "spinning globe"}
		],
		"keywords": ["city", "globe"]
	}`)
	assertStatus(t, resp, http.StatusCreated)
	project := parseJSON(t, resp)["project"].(map[string]interface{})
	return project["id"].(string)
}
