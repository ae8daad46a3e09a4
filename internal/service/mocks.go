package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/videogen/api/internal/client"
	"github.com/videogen/api/internal/model"
)

// Mock vendors stand in for unconfigured clients during development.

type mockSpeech struct{}

func (mockSpeech) Synthesize(_ context.Context, voiceID, text string) ([]byte, error) {
	return []byte(fmt.Sprintf("mock-audio voice=%s chars=%d", voiceID, len(text))), nil
}

func (mockSpeech) AddVoice(_ context.Context, _, _ string, sample io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, sample); err != nil {
		return "", err
	}
	return "mock-voice-" + uuid.New().String()[:8], nil
}

func (mockSpeech) IsConfigured() bool { return true }

type mockImages struct{}

func (mockImages) GenerateImage(_ context.Context, prompt string) (string, error) {
	return "https://placehold.co/1080x1920?text=" + url.QueryEscape(prompt), nil
}

func (mockImages) IsConfigured() bool { return true }

type mockLipSync struct{}

func (mockLipSync) LipSync(_ context.Context, videoURL, _ string) (string, error) {
	return strings.TrimSuffix(videoURL, ".mp4") + "-lipsync.mp4", nil
}

func (mockLipSync) IsConfigured() bool { return true }

// mockTranscriber fakes a steady speaking rate over the supplied script.
type mockTranscriber struct {
	script string
}

func (m mockTranscriber) Transcribe(_ context.Context, _ string) ([]model.Word, float64, error) {
	const perWord = 0.4
	fields := strings.Fields(m.script)
	words := make([]model.Word, len(fields))
	for i, f := range fields {
		words[i] = model.Word{Text: f, Start: float64(i) * perWord, End: float64(i+1) * perWord}
	}
	return words, float64(len(fields)) * perWord, nil
}

func (mockTranscriber) IsConfigured() bool { return true }

type mockCompositor struct{}

func (mockCompositor) Slideshow(_ context.Context, req *client.SlideshowRequest) (*client.RenderResponse, error) {
	return mockRender(req.OutputKey), nil
}

func (mockCompositor) SplitScreen(_ context.Context, req *client.OverlayRequest) (*client.RenderResponse, error) {
	return mockRender(req.OutputKey), nil
}

func (mockCompositor) Merge(_ context.Context, req *client.OverlayRequest) (*client.RenderResponse, error) {
	return mockRender(req.OutputKey), nil
}

func (mockCompositor) HealthCheck(context.Context) error { return nil }

func (mockCompositor) IsConfigured() bool { return true }

func mockRender(key string) *client.RenderResponse {
	return &client.RenderResponse{OutputURL: "https://storage.mock.local/" + key}
}
