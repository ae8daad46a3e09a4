package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/videogen/api/internal/config"
	"github.com/videogen/api/internal/logging"
)

// SpeechSynthesizer turns text into audio in a cloned voice.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, voiceID, text string) ([]byte, error)
	AddVoice(ctx context.Context, name, filename string, sample io.Reader) (string, error)
	IsConfigured() bool
}

// ElevenLabsClient implements SpeechSynthesizer for the ElevenLabs API
type ElevenLabsClient struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	model        string
	outputFormat string
}

type ttsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

type addVoiceResponse struct {
	VoiceID string `json:"voice_id"`
}

func NewElevenLabsClient(cfg *config.ElevenLabsConfig) *ElevenLabsClient {
	return &ElevenLabsClient{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		outputFormat: cfg.OutputFormat,
	}
}

// Synthesize converts text to speech and returns the raw audio bytes.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, voiceID, text string) ([]byte, error) {
	bodyBytes, err := json.Marshal(ttsRequest{Text: text, ModelID: c.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s",
		c.baseURL, url.PathEscape(voiceID), url.QueryEscape(c.outputFormat))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	return c.do(req)
}

// AddVoice registers a new cloned voice from a single sample and returns its id.
func (c *ElevenLabsClient) AddVoice(ctx context.Context, name, filename string, sample io.Reader) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("name", name); err != nil {
		return "", fmt.Errorf("failed to write name field: %w", err)
	}
	part, err := writer.CreateFormFile("files", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, sample); err != nil {
		return "", fmt.Errorf("failed to copy sample: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/voices/add", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	respBody, err := c.do(req)
	if err != nil {
		return "", err
	}

	var result addVoiceResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if result.VoiceID == "" {
		return "", fmt.Errorf("elevenlabs returned no voice_id")
	}
	return result.VoiceID, nil
}

// do executes an authenticated request and returns the raw body on success.
func (c *ElevenLabsClient) do(req *http.Request) ([]byte, error) {
	req.Header.Set("xi-api-key", c.apiKey)

	log := logging.FromContext(req.Context()).WithField("vendor", "elevenlabs")
	log.Debugf("→ %s %s", req.Method, req.URL.Path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Warnf("✗ %s %s", req.Method, req.URL.Path)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	log.Debugf("← %d %s %s (%d bytes)", resp.StatusCode, req.Method, req.URL.Path, len(respBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Vendor: "elevenlabs", StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *ElevenLabsClient) IsConfigured() bool {
	return c.apiKey != ""
}
