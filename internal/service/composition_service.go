package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/videogen/api/internal/apperr"
	"github.com/videogen/api/internal/client"
	"github.com/videogen/api/internal/logging"
	"github.com/videogen/api/internal/model"
	"github.com/videogen/api/internal/store"
)

// CompositionService renders the composed outputs of a project. Each kind
// writes only its own output field, so kinds can be re-run independently.
type CompositionService struct {
	projects    store.ProjectStore
	profiles    store.ProfileStore
	lipsync     client.LipSyncer
	compositor  client.VideoCompositor
	callTimeout time.Duration
	now         func() time.Time
}

func NewCompositionService(
	projects store.ProjectStore,
	profiles store.ProfileStore,
	lipsync client.LipSyncer,
	compositor client.VideoCompositor,
	callTimeout time.Duration,
) *CompositionService {
	if lipsync == nil || !lipsync.IsConfigured() {
		lipsync = mockLipSync{}
	}
	if compositor == nil || !compositor.IsConfigured() {
		compositor = mockCompositor{}
	}
	return &CompositionService{
		projects:    projects,
		profiles:    profiles,
		lipsync:     lipsync,
		compositor:  compositor,
		callTimeout: callTimeout,
		now:         time.Now,
	}
}

// renderFunc performs the vendor call for one kind and returns the output URL.
type renderFunc func(ctx context.Context) (string, error)

// ComposeVideo renders one kind for the project and returns its output URL.
func (s *CompositionService) ComposeVideo(ctx context.Context, caller model.Caller, projectID string, kind model.CompositionKind, opts *model.ComposeOptions) (string, error) {
	project, err := loadOwned(ctx, s.projects, caller, projectID)
	if err != nil {
		return "", err
	}
	if err := validateOptions(opts); err != nil {
		return "", err
	}

	var (
		vendor string
		render renderFunc
	)
	switch kind {
	case model.KindLipSync:
		vendor = "fal"
		render, err = s.lipSyncRender(ctx, caller, project)
	case model.KindSlideshow:
		vendor = "compositor"
		render, err = s.slideshowRender(project, project.GeneratedImages, project.AudioURL, "generated images", kind)
	case model.KindBrollVideo:
		vendor = "compositor"
		render, err = s.slideshowRender(project, project.BrollImages, "", "B-roll images", kind)
	case model.KindSplitScreen, model.KindMerge:
		vendor = "compositor"
		render, err = s.overlayRender(project, kind, opts.WithDefaults())
	default:
		return "", apperr.Validation(fmt.Sprintf("unknown composition kind %q", kind), nil)
	}
	if err != nil {
		return "", err
	}

	return s.run(ctx, project, kind, vendor, render)
}

func (s *CompositionService) lipSyncRender(ctx context.Context, caller model.Caller, project *model.Project) (renderFunc, error) {
	if project.AudioURL == "" {
		return nil, apperr.Precondition("project has no audio; synthesize speech first")
	}
	profile, err := s.profiles.GetProfile(ctx, caller.UserID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Internal("failed to load profile", err)
	}
	if profile == nil || profile.VideoURL == "" {
		return nil, apperr.Precondition("You need to upload a video first")
	}

	videoURL, audioURL := profile.VideoURL, project.AudioURL
	return func(ctx context.Context) (string, error) {
		return s.lipsync.LipSync(ctx, videoURL, audioURL)
	}, nil
}

func (s *CompositionService) slideshowRender(project *model.Project, images []string, audioURL, what string, kind model.CompositionKind) (renderFunc, error) {
	if len(images) == 0 {
		return nil, apperr.Precondition(fmt.Sprintf("project has no %s", what))
	}
	req := &client.SlideshowRequest{
		Images:    append([]string(nil), images...),
		Durations: slideDurations(project, len(images)),
		AudioURL:  audioURL,
		KenBurns:  true,
		OutputKey: outputKey(project.ID, kind),
	}
	return func(ctx context.Context) (string, error) {
		resp, err := s.compositor.Slideshow(ctx, req)
		if err != nil {
			return "", err
		}
		return resp.OutputURL, nil
	}, nil
}

func (s *CompositionService) overlayRender(project *model.Project, kind model.CompositionKind, opts model.ComposeOptions) (renderFunc, error) {
	background := project.BackgroundVideoURL()
	if project.VideoURL == "" || background == "" {
		return nil, apperr.Precondition("both a person video and a B-roll or slideshow video are required")
	}
	req := &client.OverlayRequest{
		PersonVideoURL:     project.VideoURL,
		BackgroundVideoURL: background,
		PersonSize:         opts.PersonSize,
		PersonPosition:     string(opts.PersonPosition),
		OutputKey:          outputKey(project.ID, kind),
	}
	return func(ctx context.Context) (string, error) {
		var (
			resp *client.RenderResponse
			err  error
		)
		if kind == model.KindMerge {
			resp, err = s.compositor.Merge(ctx, req)
		} else {
			resp, err = s.compositor.SplitScreen(ctx, req)
		}
		if err != nil {
			return "", err
		}
		return resp.OutputURL, nil
	}, nil
}

// run moves the project to PROCESSING, performs the render and records
// either the output with COMPLETED or FAILED.
func (s *CompositionService) run(ctx context.Context, project *model.Project, kind model.CompositionKind, vendor string, render renderFunc) (string, error) {
	log := logging.Stage(ctx, "compose", project.ID).WithField("kind", kind)

	if _, err := s.projects.Update(ctx, project.ID, model.StatusPatch(model.StatusProcessing)); err != nil {
		return "", storeError(err)
	}

	callCtx, cancel := withCallTimeout(ctx, s.callTimeout)
	defer cancel()

	started := s.now()
	outputURL, err := render(callCtx)
	if err == nil && outputURL == "" {
		err = errors.New("no output url returned")
	}
	if err != nil {
		log.WithError(err).Error("composition failed")
		// The caller's context may already be cancelled; FAILED must still land.
		if _, uerr := s.projects.Update(context.WithoutCancel(ctx), project.ID, model.StatusPatch(model.StatusFailed)); uerr != nil {
			log.WithError(uerr).Error("failed to mark project as failed")
		}
		return "", apperr.Upstream(vendor, err)
	}

	patch := outputPatch(kind, outputURL)
	patch.Status = model.Ptr(model.StatusCompleted)
	if _, err := s.projects.Update(ctx, project.ID, patch); err != nil {
		return "", storeError(err)
	}

	log.WithField("elapsed_ms", s.now().Sub(started).Milliseconds()).Info("composition completed")
	return outputURL, nil
}

// DeleteResource clears exactly one derived asset. Composed videos built from
// it are left in place.
func (s *CompositionService) DeleteResource(ctx context.Context, caller model.Caller, projectID string, resource model.ResourceType) error {
	if _, err := loadOwned(ctx, s.projects, caller, projectID); err != nil {
		return err
	}
	field, ok := resource.Field()
	if !ok {
		return apperr.Validation(fmt.Sprintf("unknown resource type %q", resource), nil)
	}
	if _, err := s.projects.Update(ctx, projectID, model.ProjectPatch{Clear: []model.Field{field}}); err != nil {
		return storeError(err)
	}
	logging.Stage(ctx, "compose", projectID).WithField("resource", resource).Info("resource deleted")
	return nil
}

func outputPatch(kind model.CompositionKind, outputURL string) model.ProjectPatch {
	switch kind {
	case model.KindLipSync:
		return model.ProjectPatch{VideoURL: &outputURL}
	case model.KindSlideshow:
		return model.ProjectPatch{SlideshowVideoURL: &outputURL}
	case model.KindBrollVideo:
		return model.ProjectPatch{BrollVideoURL: &outputURL}
	case model.KindSplitScreen:
		return model.ProjectPatch{SplitScreenVideoURL: &outputURL}
	case model.KindMerge:
		return model.ProjectPatch{MergedVideoURL: &outputURL}
	}
	return model.ProjectPatch{}
}

func outputKey(projectID string, kind model.CompositionKind) string {
	return fmt.Sprintf("videos/%s/%s-%s.mp4", projectID, kind, uuid.New().String()[:8])
}

func validateOptions(opts *model.ComposeOptions) error {
	if opts == nil {
		return nil
	}
	if opts.PersonSize < 0 || opts.PersonSize > 1 {
		return apperr.Validation("personSize must be in (0, 1]", nil)
	}
	switch opts.PersonPosition {
	case "", model.PositionBottom, model.PositionBottomLeft, model.PositionBottomRight:
		return nil
	}
	return apperr.Validation("personPosition must be one of bottom, bottom_left, bottom_right", nil)
}
