package model

import (
	"encoding/json"
	"time"
)

// Job status
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Job represents a queued pipeline run
type Job struct {
	ID          string          `json:"id"`
	Action      PipelineAction  `json:"action"`
	ProjectID   string          `json:"projectId"`
	UserID      string          `json:"userId"`
	Status      JobStatus       `json:"status"`
	Progress    int             `json:"progress"`
	CurrentStep string          `json:"currentStep,omitempty"`
	Error       *string         `json:"error,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// PipelineJobPayload is the asynq task body for a queued pipeline run
type PipelineJobPayload struct {
	JobID     string          `json:"jobId"`
	ProjectID string          `json:"projectId"`
	UserID    string          `json:"userId"`
	Action    PipelineAction  `json:"action"`
	Kind      CompositionKind `json:"kind,omitempty"`
	Options   *ComposeOptions `json:"options,omitempty"`
}
