package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/videogen/api/internal/apperr"
	"github.com/videogen/api/internal/model"
	"github.com/videogen/api/internal/store"
)

const (
	TaskTypePipeline = "pipeline:run"
	QueuePipeline    = "pipeline"
)

// Enqueuer is the part of asynq.Client the job service needs.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// JobService queues pipeline actions and tracks their progress records.
type JobService struct {
	jobs     store.JobStore
	projects store.ProjectStore
	queue    Enqueuer
	now      func() time.Time
}

func NewJobService(jobs store.JobStore, projects store.ProjectStore, queue Enqueuer) *JobService {
	return &JobService{
		jobs:     jobs,
		projects: projects,
		queue:    queue,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// StartJob checks ownership, records a queued job and enqueues it. Vendor
// calls are not idempotent, so the task is never retried.
func (s *JobService) StartJob(ctx context.Context, caller model.Caller, req *model.JobCreateRequest) (*model.JobCreateResponse, error) {
	if _, err := loadOwned(ctx, s.projects, caller, req.ProjectID); err != nil {
		return nil, err
	}
	if s.queue == nil {
		return nil, apperr.Precondition("background jobs are not available")
	}

	job := &model.Job{
		ID:        uuid.New().String(),
		Action:    req.Action,
		ProjectID: req.ProjectID,
		UserID:    caller.UserID,
		Status:    model.JobStatusQueued,
		CreatedAt: s.now(),
	}
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return nil, apperr.Internal("failed to save job", err)
	}

	task, err := NewPipelineTask(&model.PipelineJobPayload{
		JobID:     job.ID,
		ProjectID: req.ProjectID,
		UserID:    caller.UserID,
		Action:    req.Action,
		Kind:      req.Kind,
		Options:   req.Options,
	})
	if err != nil {
		return nil, apperr.Internal("failed to create task", err)
	}

	_, err = s.queue.Enqueue(task,
		asynq.Queue(QueuePipeline),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, apperr.Internal("failed to enqueue task", err)
	}

	return &model.JobCreateResponse{JobID: job.ID, Status: job.Status}, nil
}

// GetJob returns a job record to its owner.
func (s *JobService) GetJob(ctx context.Context, caller model.Caller, jobID string) (*model.Job, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("job not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load job", err)
	}
	if job.UserID != caller.UserID {
		return nil, apperr.Forbidden()
	}
	return job, nil
}

// UpdateProgress records the current step (called by the worker).
func (s *JobService) UpdateProgress(ctx context.Context, jobID string, progress int, step string) error {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Progress = progress
	job.CurrentStep = step
	if job.Status == model.JobStatusQueued {
		job.Status = model.JobStatusRunning
		now := s.now()
		job.StartedAt = &now
	}
	return s.jobs.SaveJob(ctx, job)
}

// CompleteJob marks the job as succeeded with its result (called by the worker).
func (s *JobService) CompleteJob(ctx context.Context, jobID string, result interface{}) error {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	now := s.now()
	job.Status = model.JobStatusSucceeded
	job.Progress = 100
	job.CurrentStep = string(StepIdle)
	job.Result = data
	job.CompletedAt = &now
	return s.jobs.SaveJob(ctx, job)
}

// FailJob marks the job as failed (called by the worker).
func (s *JobService) FailJob(ctx context.Context, jobID, errMsg string) error {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	now := s.now()
	job.Status = model.JobStatusFailed
	job.CurrentStep = string(StepFailed)
	job.Error = &errMsg
	job.CompletedAt = &now
	return s.jobs.SaveJob(ctx, job)
}

// NewPipelineTask wraps a payload into an asynq task.
func NewPipelineTask(payload *model.PipelineJobPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TaskTypePipeline, data), nil
}
