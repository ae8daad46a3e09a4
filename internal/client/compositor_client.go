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

	"github.com/videogen/api/internal/config"
)

// VideoCompositor defines the rendering operations of the compositor service
type VideoCompositor interface {
	Slideshow(ctx context.Context, req *SlideshowRequest) (*RenderResponse, error)
	SplitScreen(ctx context.Context, req *OverlayRequest) (*RenderResponse, error)
	Merge(ctx context.Context, req *OverlayRequest) (*RenderResponse, error)
	HealthCheck(ctx context.Context) error
	IsConfigured() bool
}

// CompositorClient implements VideoCompositor for the ffmpeg render microservice
type CompositorClient struct {
	httpClient *http.Client
	baseURL    string
}

// SlideshowRequest represents a still-image slideshow render
type SlideshowRequest struct {
	Images    []string  `json:"images"`
	Durations []float64 `json:"durations"`
	AudioURL  string    `json:"audio_url,omitempty"`
	KenBurns  bool      `json:"ken_burns"`
	OutputKey string    `json:"output_key"`
}

// OverlayRequest places the talking-head video over a background video
type OverlayRequest struct {
	PersonVideoURL     string  `json:"person_video_url"`
	BackgroundVideoURL string  `json:"background_video_url"`
	PersonSize         float64 `json:"person_size"`
	PersonPosition     string  `json:"person_position"`
	OutputKey          string  `json:"output_key"`
}

// RenderResponse represents the response from a render endpoint
type RenderResponse struct {
	OutputURL string  `json:"output_url"`
	Duration  float64 `json:"duration"`
}

func NewCompositorClient(cfg *config.CompositorConfig) *CompositorClient {
	return &CompositorClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: strings.TrimRight(cfg.ServiceURL, "/"),
	}
}

// Slideshow renders images into a video, one duration per image
func (c *CompositorClient) Slideshow(ctx context.Context, req *SlideshowRequest) (*RenderResponse, error) {
	var result RenderResponse
	if err := c.post(ctx, "/slideshow", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SplitScreen stacks the person video under the background video
func (c *CompositorClient) SplitScreen(ctx context.Context, req *OverlayRequest) (*RenderResponse, error) {
	var result RenderResponse
	if err := c.post(ctx, "/splitscreen", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Merge overlays the person video on top of the background video
func (c *CompositorClient) Merge(ctx context.Context, req *OverlayRequest) (*RenderResponse, error) {
	var result RenderResponse
	if err := c.post(ctx, "/merge", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// HealthCheck checks if the compositor service is available
func (c *CompositorClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("compositor unhealthy: status %d", resp.StatusCode)
	}

	return nil
}

func (c *CompositorClient) post(ctx context.Context, endpoint string, body interface{}, result *RenderResponse) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Vendor: "compositor", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if result.OutputURL == "" {
		return fmt.Errorf("compositor returned no output_url")
	}

	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *CompositorClient) IsConfigured() bool {
	return c.baseURL != ""
}
