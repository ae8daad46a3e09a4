package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/videogen/api/internal/client"
	"github.com/videogen/api/internal/model"
	"github.com/videogen/api/internal/store"
)

var (
	owner    = model.Caller{UserID: "owner-1"}
	stranger = model.Caller{UserID: "stranger-2"}
)

type fakeText struct {
	responses []string
	err       error
	calls     int
}

func (f *fakeText) ChatCompletion(_ context.Context, _, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return r, nil
}

func (f *fakeText) IsConfigured() bool { return true }

type fakeSpeech struct {
	audio   []byte
	err     error
	voiceID string
	calls   int32
}

func (f *fakeSpeech) Synthesize(context.Context, string, string) ([]byte, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.audio, f.err
}

func (f *fakeSpeech) AddVoice(_ context.Context, _, _ string, sample io.Reader) (string, error) {
	if _, err := io.ReadAll(sample); err != nil {
		return "", err
	}
	return f.voiceID, f.err
}

func (f *fakeSpeech) IsConfigured() bool { return true }

// fakeImages fails any prompt listed in fail and tracks peak concurrency.
type fakeImages struct {
	fail     map[string]bool
	delay    time.Duration
	calls    int32
	inFlight int32
	peak     int32
}

func (f *fakeImages) GenerateImage(_ context.Context, prompt string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail[prompt] {
		return "", errors.New("diffusion backend unavailable")
	}
	return "https://img.test/" + prompt + ".png", nil
}

func (f *fakeImages) IsConfigured() bool { return true }

type fakeLipSync struct {
	url   string
	err   error
	calls int32
}

func (f *fakeLipSync) LipSync(context.Context, string, string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.url, f.err
}

func (f *fakeLipSync) IsConfigured() bool { return true }

type fakeCompositor struct {
	mu        sync.Mutex
	slideshow []*client.SlideshowRequest
	overlays  []*client.OverlayRequest
	err       error
}

func (f *fakeCompositor) Slideshow(_ context.Context, req *client.SlideshowRequest) (*client.RenderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slideshow = append(f.slideshow, req)
	if f.err != nil {
		return nil, f.err
	}
	return &client.RenderResponse{OutputURL: "https://cdn.test/" + req.OutputKey}, nil
}

func (f *fakeCompositor) overlay(req *client.OverlayRequest) (*client.RenderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overlays = append(f.overlays, req)
	if f.err != nil {
		return nil, f.err
	}
	return &client.RenderResponse{OutputURL: "https://cdn.test/" + req.OutputKey}, nil
}

func (f *fakeCompositor) SplitScreen(_ context.Context, req *client.OverlayRequest) (*client.RenderResponse, error) {
	return f.overlay(req)
}

func (f *fakeCompositor) Merge(_ context.Context, req *client.OverlayRequest) (*client.RenderResponse, error) {
	return f.overlay(req)
}

func (f *fakeCompositor) HealthCheck(context.Context) error { return nil }
func (f *fakeCompositor) IsConfigured() bool                { return true }

type fakeTranscriber struct {
	words    []model.Word
	duration float64
}

func (f *fakeTranscriber) Transcribe(context.Context, string) ([]model.Word, float64, error) {
	return f.words, f.duration, nil
}

func (f *fakeTranscriber) IsConfigured() bool { return true }

// fixture bundles the services over one memory store.
type fixture struct {
	store       *store.MemoryStore
	storage     *client.MockStorage
	speech      *fakeSpeech
	images      *fakeImages
	lipsync     *fakeLipSync
	compositor  *fakeCompositor
	transcriber *fakeTranscriber
	projects    *ProjectService
	assets      *AssetService
	composer    *CompositionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:       store.NewMemoryStore(),
		storage:     client.NewMockStorage("https://cdn.test"),
		speech:      &fakeSpeech{audio: []byte("mp3-bytes"), voiceID: "voice-new"},
		images:      &fakeImages{fail: map[string]bool{}},
		lipsync:     &fakeLipSync{url: "https://fal.test/lipsync.mp4"},
		compositor:  &fakeCompositor{},
		transcriber: &fakeTranscriber{},
	}
	f.projects = NewProjectService(f.store)
	f.assets = NewAssetService(f.store, f.store, f.speech, f.images, f.transcriber, f.storage,
		AssetOptions{CallTimeout: time.Second, ImageConcurrency: 2})
	f.composer = NewCompositionService(f.store, f.store, f.lipsync, f.compositor, time.Second)
	return f
}

func (f *fixture) createProject(t *testing.T, mutate func(p *model.Project)) *model.Project {
	t.Helper()
	p, err := f.projects.Create(context.Background(), owner, &model.ProjectCreateRequest{
		Title:  "Demo",
		Script: "Hello world",
		Scenes: []model.Scene{
			{Content: "Hello", ImagePrompt: "sunrise"},
			{Content: "world", ImagePrompt: "globe"},
		},
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if mutate != nil {
		mutate(p)
		if err := f.store.Delete(context.Background(), p.ID); err != nil {
			t.Fatalf("reset fixture project: %v", err)
		}
		if err := f.store.Create(context.Background(), p); err != nil {
			t.Fatalf("store fixture project: %v", err)
		}
	}
	return p
}

func (f *fixture) get(t *testing.T, id string) *model.Project {
	t.Helper()
	p, err := f.store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	return p
}
