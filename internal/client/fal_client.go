package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/videogen/api/internal/config"
	"github.com/videogen/api/internal/logging"
	"github.com/videogen/api/internal/model"
)

// ImageGenerator renders one image per prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
	IsConfigured() bool
}

// LipSyncer animates a talking-head video to match an audio track.
type LipSyncer interface {
	LipSync(ctx context.Context, videoURL, audioURL string) (string, error)
	IsConfigured() bool
}

// Transcriber returns word-level timings for an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string) ([]model.Word, float64, error)
	IsConfigured() bool
}

// Queue states reported by the fal queue API.
const (
	FalStatusInQueue    = "IN_QUEUE"
	FalStatusInProgress = "IN_PROGRESS"
	FalStatusCompleted  = "COMPLETED"
)

// FalClient implements ImageGenerator, LipSyncer and Transcriber on top of
// the fal.ai queue API.
type FalClient struct {
	httpClient      *http.Client
	baseURL         string
	apiKey          string
	imageModel      string
	lipSyncModel    string
	transcribeModel string
	pollInterval    time.Duration
	maxWait         time.Duration
}

// QueueHandle identifies a submitted fal request.
type QueueHandle struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

// QueueStatus represents the status of a queued fal request
type QueueStatus struct {
	Status        string `json:"status"`
	QueuePosition int    `json:"queue_position,omitempty"`
}

type falFile struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
}

type imageResult struct {
	Images []falFile `json:"images"`
}

type lipSyncResult struct {
	Video falFile `json:"video"`
}

type transcribeResult struct {
	Text   string `json:"text"`
	Chunks []struct {
		Timestamp []float64 `json:"timestamp"`
		Text      string    `json:"text"`
	} `json:"chunks"`
}

func NewFalClient(cfg *config.FalConfig) *FalClient {
	interval := time.Duration(cfg.PollInterval) * time.Second
	if interval <= 0 {
		interval = 3 * time.Second
	}
	maxWait := time.Duration(cfg.MaxWait) * time.Second
	if maxWait <= 0 {
		maxWait = 10 * time.Minute
	}
	return &FalClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:          cfg.APIKey,
		imageModel:      cfg.ImageModel,
		lipSyncModel:    cfg.LipSyncModel,
		transcribeModel: cfg.TranscribeModel,
		pollInterval:    interval,
		maxWait:         maxWait,
	}
}

// GenerateImage runs the configured text-to-image model and returns the first image URL.
func (c *FalClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	var result imageResult
	if err := c.Run(ctx, c.imageModel, map[string]interface{}{"prompt": prompt}, &result); err != nil {
		return "", err
	}
	if len(result.Images) == 0 || result.Images[0].URL == "" {
		return "", fmt.Errorf("fal returned no image url")
	}
	return result.Images[0].URL, nil
}

// LipSync runs the lip-sync model over a video and an audio track.
func (c *FalClient) LipSync(ctx context.Context, videoURL, audioURL string) (string, error) {
	input := map[string]interface{}{
		"video_url": videoURL,
		"audio_url": audioURL,
	}
	var result lipSyncResult
	if err := c.Run(ctx, c.lipSyncModel, input, &result); err != nil {
		return "", err
	}
	if result.Video.URL == "" {
		return "", fmt.Errorf("fal returned no video url")
	}
	return result.Video.URL, nil
}

// Transcribe returns word chunks and the end time of the last word.
func (c *FalClient) Transcribe(ctx context.Context, audioURL string) ([]model.Word, float64, error) {
	input := map[string]interface{}{
		"audio_url":   audioURL,
		"task":        "transcribe",
		"chunk_level": "word",
	}
	var result transcribeResult
	if err := c.Run(ctx, c.transcribeModel, input, &result); err != nil {
		return nil, 0, err
	}

	words := make([]model.Word, 0, len(result.Chunks))
	var duration float64
	for _, chunk := range result.Chunks {
		text := strings.TrimSpace(chunk.Text)
		if text == "" || len(chunk.Timestamp) < 2 {
			continue
		}
		words = append(words, model.Word{Text: text, Start: chunk.Timestamp[0], End: chunk.Timestamp[1]})
		if chunk.Timestamp[1] > duration {
			duration = chunk.Timestamp[1]
		}
	}
	return words, duration, nil
}

// Run submits a request, waits for completion and decodes the result into out.
func (c *FalClient) Run(ctx context.Context, modelID string, input interface{}, out interface{}) error {
	handle, err := c.Submit(ctx, modelID, input)
	if err != nil {
		return err
	}
	raw, err := c.Poll(ctx, modelID, handle, c.pollInterval, c.maxWait)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s result: %w", modelID, err)
	}
	return nil
}

// Submit enqueues a request on the given model.
func (c *FalClient) Submit(ctx context.Context, modelID string, input interface{}) (*QueueHandle, error) {
	bodyBytes, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+modelID, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var handle QueueHandle
	if err := c.doJSON(req, &handle); err != nil {
		return nil, err
	}
	if handle.RequestID == "" {
		return nil, fmt.Errorf("fal returned no request_id")
	}
	return &handle, nil
}

// Status fetches the queue status of a submitted request.
func (c *FalClient) Status(ctx context.Context, modelID string, handle *QueueHandle) (*QueueStatus, error) {
	endpoint := handle.StatusURL
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s/%s/requests/%s/status", c.baseURL, modelID, handle.RequestID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var status QueueStatus
	if err := c.doJSON(req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Result fetches the raw output of a completed request.
func (c *FalClient) Result(ctx context.Context, modelID string, handle *QueueHandle) (json.RawMessage, error) {
	endpoint := handle.ResponseURL
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s/%s/requests/%s", c.baseURL, modelID, handle.RequestID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var raw json.RawMessage
	if err := c.doJSON(req, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Poll waits until the request completes and returns its result.
func (c *FalClient) Poll(ctx context.Context, modelID string, handle *QueueHandle, interval, maxWait time.Duration) (json.RawMessage, error) {
	log := logging.FromContext(ctx).WithFields(logrus.Fields{
		"vendor":     "fal",
		"model":      modelID,
		"request_id": handle.RequestID,
	})
	deadline := time.Now().Add(maxWait)
	attempt := 0

	for time.Now().Before(deadline) {
		attempt++
		status, err := c.Status(ctx, modelID, handle)
		if err != nil {
			log.WithError(err).Warnf("poll #%d failed", attempt)
			return nil, err
		}

		log.Debugf("poll #%d status: %s", attempt, status.Status)

		switch status.Status {
		case FalStatusCompleted:
			return c.Result(ctx, modelID, handle)
		case FalStatusInQueue, FalStatusInProgress:
		default:
			return nil, fmt.Errorf("fal request %s ended with status %s", handle.RequestID, status.Status)
		}

		select {
		case <-ctx.Done():
			log.Info("poll cancelled")
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}

	return nil, fmt.Errorf("fal request %s timed out after %v", handle.RequestID, maxWait)
}

func (c *FalClient) doJSON(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+c.apiKey)

	log := logging.FromContext(req.Context()).WithField("vendor", "fal")
	log.Debugf("→ %s %s", req.Method, req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Warnf("✗ %s %s", req.Method, req.URL.String())
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	log.Debugf("← %d %s %s", resp.StatusCode, req.Method, req.URL.String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Vendor: "fal", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *FalClient) IsConfigured() bool {
	return c.apiKey != ""
}
