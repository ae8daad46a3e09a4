package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/videogen/api/internal/apperr"
	"github.com/videogen/api/internal/logging"
	"github.com/videogen/api/internal/model"
	"github.com/videogen/api/internal/service"
	"github.com/videogen/api/pkg/response"
)

// Runner executes a pipeline action for a caller.
type Runner interface {
	Run(ctx context.Context, caller model.Caller, payload *model.PipelineJobPayload, obs service.StepObserver) (*model.PipelineResponse, error)
}

// JobTracker persists job progress.
type JobTracker interface {
	UpdateProgress(ctx context.Context, jobID string, progress int, step string) error
	CompleteJob(ctx context.Context, jobID string, result interface{}) error
	FailJob(ctx context.Context, jobID, errMsg string) error
}

// Broadcaster pushes job events to live subscribers.
type Broadcaster interface {
	BroadcastProgress(jobID string, progress int, status model.JobStatus, step string)
	BroadcastComplete(jobID string, result *model.PipelineResponse)
	BroadcastError(jobID string, code, message string)
}

// PipelineWorker processes queued pipeline jobs
type PipelineWorker struct {
	runner Runner
	jobs   JobTracker
	hub    Broadcaster
}

func NewPipelineWorker(runner Runner, jobs JobTracker, hub Broadcaster) *PipelineWorker {
	return &PipelineWorker{
		runner: runner,
		jobs:   jobs,
		hub:    hub,
	}
}

// ProcessTask runs one pipeline:run task. Vendor calls are not idempotent, so
// failures are never retried.
func (w *PipelineWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.PipelineJobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal pipeline payload: %v: %w", err, asynq.SkipRetry)
	}

	log := logging.Log.WithFields(logrus.Fields{
		"job_id":     payload.JobID,
		"project_id": payload.ProjectID,
		"action":     payload.Action,
	})
	ctx = logging.WithEntry(ctx, log)
	log.Info("starting pipeline job")

	observer := service.ObserverFunc(func(ctx context.Context, step service.Step, progress int) {
		if step == service.StepFailed || (step == service.StepIdle && progress == 100) {
			return
		}
		if err := w.jobs.UpdateProgress(ctx, payload.JobID, progress, string(step)); err != nil {
			log.WithError(err).Warn("failed to update job progress")
		}
		w.hub.BroadcastProgress(payload.JobID, progress, model.JobStatusRunning, string(step))
	})

	caller := model.Caller{UserID: payload.UserID}
	result, err := w.runner.Run(ctx, caller, &payload, observer)
	if err != nil {
		w.failJob(ctx, payload.JobID, err)
		return fmt.Errorf("pipeline job %s: %v: %w", payload.JobID, err, asynq.SkipRetry)
	}

	if err := w.jobs.CompleteJob(ctx, payload.JobID, result); err != nil {
		w.failJob(ctx, payload.JobID, apperr.Internal("failed to save result", err))
		return err
	}
	w.hub.BroadcastComplete(payload.JobID, result)

	log.WithField("output_url", result.OutputURL).Info("pipeline job completed")
	return nil
}

func (w *PipelineWorker) failJob(ctx context.Context, jobID string, cause error) {
	log := logging.FromContext(ctx)
	log.WithError(cause).Error("pipeline job failed")

	_, code := response.StatusFor(apperr.KindOf(cause))
	if code == response.CodeServiceError {
		code = response.CodePipelineFailed
	}
	if err := w.jobs.FailJob(ctx, jobID, cause.Error()); err != nil {
		log.WithError(err).Error("failed to mark job as failed")
	}
	w.hub.BroadcastError(jobID, code, cause.Error())
}
