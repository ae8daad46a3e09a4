package service

import (
	"context"
	"errors"

	"github.com/videogen/api/internal/apperr"
	"github.com/videogen/api/internal/logging"
	"github.com/videogen/api/internal/model"
)

// Step is a user-visible state of an orchestrated action.
type Step string

const (
	StepIdle             Step = "idle"
	StepGeneratingScript Step = "generating-script"
	StepSynthesizing     Step = "synthesizing-audio"
	StepGeneratingImages Step = "generating-images"
	StepComposing        Step = "composing-video"
	StepFailed           Step = "failed"
)

// StepObserver is told about every step change with a rough progress percentage.
type StepObserver interface {
	OnStep(ctx context.Context, step Step, progress int)
}

// ObserverFunc adapts a function to StepObserver.
type ObserverFunc func(ctx context.Context, step Step, progress int)

func (f ObserverFunc) OnStep(ctx context.Context, step Step, progress int) { f(ctx, step, progress) }

type nopObserver struct{}

func (nopObserver) OnStep(context.Context, Step, int) {}

// Stage contracts the orchestrator sequences.
type (
	ScriptStage interface {
		GenerateScript(ctx context.Context, caller model.Caller, topic string, mode model.ScriptMode) (*model.ScriptGenerateResponse, error)
	}
	ProjectStage interface {
		Create(ctx context.Context, caller model.Caller, req *model.ProjectCreateRequest) (*model.Project, error)
		Get(ctx context.Context, caller model.Caller, projectID string) (*model.Project, error)
	}
	SpeechStage interface {
		SynthesizeSpeech(ctx context.Context, caller model.Caller, projectID string) (string, error)
	}
	ImageStage interface {
		GenerateImages(ctx context.Context, caller model.Caller, projectID string) (*model.ImageGenerateResponse, error)
	}
	ComposeStage interface {
		ComposeVideo(ctx context.Context, caller model.Caller, projectID string, kind model.CompositionKind, opts *model.ComposeOptions) (string, error)
	}
)

// Orchestrator drives multi-stage actions for one caller, step by step. It
// re-reads the project after each step so callers see fresh status and URLs.
type Orchestrator struct {
	scripts  ScriptStage
	projects ProjectStage
	speech   SpeechStage
	images   ImageStage
	composer ComposeStage
}

func NewOrchestrator(scripts ScriptStage, projects ProjectStage, speech SpeechStage, images ImageStage, composer ComposeStage) *Orchestrator {
	return &Orchestrator{
		scripts:  scripts,
		projects: projects,
		speech:   speech,
		images:   images,
		composer: composer,
	}
}

// GenerateScriptAndSave generates a script for topic and stores it as a new project.
func (o *Orchestrator) GenerateScriptAndSave(ctx context.Context, caller model.Caller, title, topic string, mode model.ScriptMode, obs StepObserver) (*model.Project, error) {
	obs = observerOrNop(obs)

	obs.OnStep(ctx, StepGeneratingScript, 10)
	script, err := o.scripts.GenerateScript(ctx, caller, topic, mode)
	if err != nil {
		obs.OnStep(ctx, StepFailed, 0)
		return nil, err
	}

	req := &model.ProjectCreateRequest{Title: title, Script: script.Text, Scenes: script.Scenes}
	if req.Title == "" {
		req.Title = topic
	}
	if script.Keywords != nil {
		req.Keywords = *script.Keywords
	}
	project, err := o.projects.Create(ctx, caller, req)
	if err != nil {
		obs.OnStep(ctx, StepFailed, 0)
		return nil, err
	}

	obs.OnStep(ctx, StepIdle, 100)
	return project, nil
}

// GenerateFullVideo synthesizes speech then lip-syncs it. A speech failure
// aborts before composition and leaves the status untouched.
func (o *Orchestrator) GenerateFullVideo(ctx context.Context, caller model.Caller, projectID string, obs StepObserver) (*model.PipelineResponse, error) {
	obs = observerOrNop(obs)
	log := logging.Stage(ctx, "pipeline", projectID).WithField("action", model.ActionFullVideo)

	obs.OnStep(ctx, StepSynthesizing, 10)
	audioURL, err := o.speech.SynthesizeSpeech(ctx, caller, projectID)
	if err == nil && audioURL == "" {
		err = apperr.Upstream("speech", errors.New("no usable audio url"))
	}
	if err != nil {
		log.WithError(err).Warn("speech step failed, skipping composition")
		obs.OnStep(ctx, StepFailed, 0)
		return nil, err
	}
	if _, err := o.projects.Get(ctx, caller, projectID); err != nil {
		obs.OnStep(ctx, StepFailed, 0)
		return nil, err
	}

	obs.OnStep(ctx, StepComposing, 50)
	outputURL, err := o.composer.ComposeVideo(ctx, caller, projectID, model.KindLipSync, nil)
	if err != nil {
		log.WithError(err).Warn("composition step failed")
		obs.OnStep(ctx, StepFailed, 0)
		return nil, err
	}

	project, err := o.projects.Get(ctx, caller, projectID)
	if err != nil {
		obs.OnStep(ctx, StepFailed, 0)
		return nil, err
	}

	obs.OnStep(ctx, StepIdle, 100)
	return &model.PipelineResponse{Project: project, AudioURL: audioURL, OutputURL: outputURL}, nil
}

// GenerateImageVideo generates images then composes kind from them. Overlay
// kinds first render a slideshow when the project has no background video.
func (o *Orchestrator) GenerateImageVideo(ctx context.Context, caller model.Caller, projectID string, kind model.CompositionKind, opts *model.ComposeOptions, obs StepObserver) (*model.PipelineResponse, error) {
	obs = observerOrNop(obs)
	if kind == "" {
		kind = model.KindSlideshow
	}
	switch kind {
	case model.KindSlideshow, model.KindSplitScreen, model.KindMerge:
	default:
		return nil, apperr.Validation("kind must be slideshow, splitscreen or merge", nil)
	}
	log := logging.Stage(ctx, "pipeline", projectID).WithField("action", model.ActionImageVideo)

	obs.OnStep(ctx, StepGeneratingImages, 10)
	images, err := o.images.GenerateImages(ctx, caller, projectID)
	if err != nil {
		log.WithError(err).Warn("image step failed, skipping composition")
		obs.OnStep(ctx, StepFailed, 0)
		return nil, err
	}
	project, err := o.projects.Get(ctx, caller, projectID)
	if err != nil {
		obs.OnStep(ctx, StepFailed, 0)
		return nil, err
	}

	obs.OnStep(ctx, StepComposing, 50)
	if kind != model.KindSlideshow && project.BackgroundVideoURL() == "" {
		if _, err := o.composer.ComposeVideo(ctx, caller, projectID, model.KindSlideshow, nil); err != nil {
			obs.OnStep(ctx, StepFailed, 0)
			return nil, err
		}
		obs.OnStep(ctx, StepComposing, 75)
	}

	outputURL, err := o.composer.ComposeVideo(ctx, caller, projectID, kind, opts)
	if err != nil {
		log.WithError(err).Warn("composition step failed")
		obs.OnStep(ctx, StepFailed, 0)
		return nil, err
	}

	project, err = o.projects.Get(ctx, caller, projectID)
	if err != nil {
		obs.OnStep(ctx, StepFailed, 0)
		return nil, err
	}

	obs.OnStep(ctx, StepIdle, 100)
	return &model.PipelineResponse{Project: project, ImageURLs: images.ImageURLs, OutputURL: outputURL}, nil
}

// Run executes a queued pipeline action.
func (o *Orchestrator) Run(ctx context.Context, caller model.Caller, payload *model.PipelineJobPayload, obs StepObserver) (*model.PipelineResponse, error) {
	switch payload.Action {
	case model.ActionFullVideo:
		return o.GenerateFullVideo(ctx, caller, payload.ProjectID, obs)
	case model.ActionImageVideo:
		return o.GenerateImageVideo(ctx, caller, payload.ProjectID, payload.Kind, payload.Options, obs)
	}
	return nil, apperr.Validation("unknown pipeline action", nil)
}

func observerOrNop(obs StepObserver) StepObserver {
	if obs == nil {
		return nopObserver{}
	}
	return obs
}
