package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/videogen/api/internal/config"
)

func TestTextClient_ChatCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gemini-2.0-flash" || len(req.Messages) != 2 {
			t.Errorf("unexpected request %+v", req)
		}
		w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"hello there"}}]}`))
	}))
	defer srv.Close()

	c := NewTextClient(&config.TextConfig{APIKey: "test-key", BaseURL: srv.URL + "/", Model: "gemini-2.0-flash"})
	got, err := c.ChatCompletion(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("chat completion: %v", err)
	}
	if got != "hello there" {
		t.Errorf("expected 'hello there', got %q", got)
	}
}

func TestTextClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"quota"}`))
	}))
	defer srv.Close()

	c := NewTextClient(&config.TextConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := c.ChatCompletion(context.Background(), "s", "u")

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests || !strings.Contains(statusErr.Error(), "quota") {
		t.Errorf("unexpected error %v", statusErr)
	}
}

func TestElevenLabsClient_Synthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/text-to-speech/voice-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("output_format") != "mp3_44100_128" {
			t.Errorf("unexpected output format %q", r.URL.RawQuery)
		}
		if r.Header.Get("xi-api-key") != "el-key" {
			t.Error("missing xi-api-key header")
		}
		var body ttsRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.ModelID != "eleven_multilingual_v2" || body.Text != "Hello" {
			t.Errorf("unexpected body %+v", body)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3-audio"))
	}))
	defer srv.Close()

	c := NewElevenLabsClient(&config.ElevenLabsConfig{
		APIKey: "el-key", BaseURL: srv.URL, Model: "eleven_multilingual_v2", OutputFormat: "mp3_44100_128",
	})
	audio, err := c.Synthesize(context.Background(), "voice-1", "Hello")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if string(audio) != "ID3-audio" {
		t.Errorf("unexpected audio %q", audio)
	}
}

func TestElevenLabsClient_AddVoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voices/add" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if r.FormValue("name") != "user-1" {
			t.Errorf("unexpected name %q", r.FormValue("name"))
		}
		file, header, err := r.FormFile("files")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		data, _ := io.ReadAll(file)
		if header.Filename != "sample.mp3" || string(data) != "sample-bytes" {
			t.Errorf("unexpected file %s %q", header.Filename, data)
		}
		w.Write([]byte(`{"voice_id":"v-123"}`))
	}))
	defer srv.Close()

	c := NewElevenLabsClient(&config.ElevenLabsConfig{APIKey: "k", BaseURL: srv.URL})
	id, err := c.AddVoice(context.Background(), "user-1", "sample.mp3", strings.NewReader("sample-bytes"))
	if err != nil {
		t.Fatalf("add voice: %v", err)
	}
	if id != "v-123" {
		t.Errorf("expected v-123, got %s", id)
	}
}

// newFalServer fakes the fal queue: one IN_PROGRESS status, then COMPLETED.
func newFalServer(t *testing.T, result string) *httptest.Server {
	t.Helper()
	polls := 0
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Key fal-key" {
			t.Errorf("missing fal auth header")
		}
		switch {
		case r.Method == http.MethodPost:
			json.NewEncoder(w).Encode(QueueHandle{
				RequestID:   "req-1",
				StatusURL:   srv.URL + "/requests/req-1/status",
				ResponseURL: srv.URL + "/requests/req-1",
			})
		case strings.HasSuffix(r.URL.Path, "/status"):
			polls++
			status := FalStatusInProgress
			if polls > 1 {
				status = FalStatusCompleted
			}
			json.NewEncoder(w).Encode(QueueStatus{Status: status})
		default:
			w.Write([]byte(result))
		}
	}))
	return srv
}

func newTestFalClient(baseURL string) *FalClient {
	c := NewFalClient(&config.FalConfig{
		APIKey:          "fal-key",
		BaseURL:         baseURL,
		ImageModel:      "fal-ai/flux-pro/v1.1",
		LipSyncModel:    "fal-ai/sync-lipsync",
		TranscribeModel: "fal-ai/whisper",
	})
	c.pollInterval = 10 * time.Millisecond
	c.maxWait = 2 * time.Second
	return c
}

func TestFalClient_GenerateImage(t *testing.T) {
	srv := newFalServer(t, `{"images":[{"url":"https://fal.media/img.png"}]}`)
	defer srv.Close()

	url, err := newTestFalClient(srv.URL).GenerateImage(context.Background(), "a sunrise")
	if err != nil {
		t.Fatalf("generate image: %v", err)
	}
	if url != "https://fal.media/img.png" {
		t.Errorf("unexpected url %s", url)
	}
}

func TestFalClient_LipSync(t *testing.T) {
	srv := newFalServer(t, `{"video":{"url":"https://fal.media/out.mp4"}}`)
	defer srv.Close()

	url, err := newTestFalClient(srv.URL).LipSync(context.Background(), "https://cdn/me.mp4", "https://cdn/a.mp3")
	if err != nil {
		t.Fatalf("lipsync: %v", err)
	}
	if url != "https://fal.media/out.mp4" {
		t.Errorf("unexpected url %s", url)
	}
}

func TestFalClient_Transcribe(t *testing.T) {
	srv := newFalServer(t, `{"text":"Hello world","chunks":[
		{"timestamp":[0.0,0.5],"text":" Hello"},
		{"timestamp":[0.5,1.2],"text":" world"},
		{"timestamp":[1.2],"text":"broken"}]}`)
	defer srv.Close()

	words, duration, err := newTestFalClient(srv.URL).Transcribe(context.Background(), "https://cdn/a.mp3")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if len(words) != 2 || words[0].Text != "Hello" || words[1].End != 1.2 {
		t.Errorf("unexpected words %+v", words)
	}
	if duration != 1.2 {
		t.Errorf("expected duration 1.2, got %v", duration)
	}
}

func TestFalClient_PollFailedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(QueueStatus{Status: "FAILED"})
	}))
	defer srv.Close()

	c := newTestFalClient(srv.URL)
	_, err := c.Poll(context.Background(), "fal-ai/whisper", &QueueHandle{RequestID: "r"}, time.Millisecond, time.Second)
	if err == nil || !strings.Contains(err.Error(), "FAILED") {
		t.Fatalf("expected failed status error, got %v", err)
	}
}

func TestFalClient_PollHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(QueueStatus{Status: FalStatusInQueue})
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := newTestFalClient(srv.URL)
	_, err := c.Poll(ctx, "fal-ai/whisper", &QueueHandle{RequestID: "r"}, 10*time.Millisecond, time.Minute)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestCompositorClient_Slideshow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/slideshow" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req SlideshowRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Images) != 2 || len(req.Durations) != 2 || !req.KenBurns {
			t.Errorf("unexpected request %+v", req)
		}
		w.Write([]byte(`{"output_url":"https://cdn/slides.mp4","duration":10}`))
	}))
	defer srv.Close()

	c := NewCompositorClient(&config.CompositorConfig{ServiceURL: srv.URL, Timeout: 5})
	resp, err := c.Slideshow(context.Background(), &SlideshowRequest{
		Images:    []string{"a", "b"},
		Durations: []float64{5, 5},
		KenBurns:  true,
	})
	if err != nil {
		t.Fatalf("slideshow: %v", err)
	}
	if resp.OutputURL != "https://cdn/slides.mp4" {
		t.Errorf("unexpected output %s", resp.OutputURL)
	}
}

func TestCompositorClient_MissingOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewCompositorClient(&config.CompositorConfig{ServiceURL: srv.URL, Timeout: 5})
	if _, err := c.Merge(context.Background(), &OverlayRequest{}); err == nil {
		t.Fatal("expected error for missing output_url")
	}
}

func TestCompositorClient_HealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewCompositorClient(&config.CompositorConfig{ServiceURL: srv.URL, Timeout: 5})
	if err := c.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected unhealthy error")
	}
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.mp3" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	data, err := Download(context.Background(), nil, srv.URL+"/sample.mp3")
	if err != nil || string(data) != "payload" {
		t.Fatalf("unexpected download result %q %v", data, err)
	}
	if _, err := Download(context.Background(), nil, srv.URL+"/missing.mp3"); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestMockStorage(t *testing.T) {
	m := NewMockStorage("")
	url, err := m.Upload(context.Background(), "audio/p1/x.mp3", strings.NewReader("abc"), "audio/mpeg")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "https://storage.mock.local/audio/p1/x.mp3" {
		t.Errorf("unexpected url %s", url)
	}
	if data, ok := m.Object("audio/p1/x.mp3"); !ok || string(data) != "abc" {
		t.Errorf("object not stored")
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := map[string]string{
		"a/b.mp3":  "audio/mpeg",
		"a/b.m4a":  "audio/mp4",
		"a/b.mp4":  "video/mp4",
		"a/b.png":  "image/png",
		"a/b.bin":  "application/octet-stream",
		"noext":    "application/octet-stream",
		"a/b.jpeg": "image/jpeg",
	}
	for key, want := range tests {
		if got := ContentTypeFor(key); got != want {
			t.Errorf("ContentTypeFor(%q) = %q, want %q", key, got, want)
		}
	}
}
