package service

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/videogen/api/internal/apperr"
	"github.com/videogen/api/internal/model"
)

type stubSpeech struct {
	url string
	err error
}

func (s stubSpeech) SynthesizeSpeech(context.Context, model.Caller, string) (string, error) {
	return s.url, s.err
}

type countingComposer struct {
	next  ComposeStage
	mu    sync.Mutex
	kinds []model.CompositionKind
}

func (c *countingComposer) ComposeVideo(ctx context.Context, caller model.Caller, projectID string, kind model.CompositionKind, opts *model.ComposeOptions) (string, error) {
	c.mu.Lock()
	c.kinds = append(c.kinds, kind)
	c.mu.Unlock()
	if c.next == nil {
		return "https://cdn.test/out.mp4", nil
	}
	return c.next.ComposeVideo(ctx, caller, projectID, kind, opts)
}

type stepRecorder struct {
	mu    sync.Mutex
	steps []Step
}

func (r *stepRecorder) OnStep(_ context.Context, step Step, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, step)
}

func TestGenerateFullVideo_StopsWhenSpeechYieldsNothing(t *testing.T) {
	tests := []struct {
		name   string
		speech stubSpeech
		kind   apperr.Kind
	}{
		{"empty url", stubSpeech{}, apperr.KindUpstream},
		{"speech error", stubSpeech{err: apperr.NotFound("voice ID not found for user")}, apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			p := f.createProject(t, nil)
			composer := &countingComposer{}
			rec := &stepRecorder{}
			o := NewOrchestrator(nil, f.projects, tt.speech, f.assets, composer)

			_, err := o.GenerateFullVideo(context.Background(), owner, p.ID, rec)
			if !apperr.Is(err, tt.kind) {
				t.Fatalf("expected %s, got %v", tt.kind, err)
			}
			if len(composer.kinds) != 0 {
				t.Errorf("composition must not run, got %v", composer.kinds)
			}
			if got := f.get(t, p.ID); got.Status != model.StatusDraft {
				t.Errorf("status must be unchanged, got %s", got.Status)
			}
			want := []Step{StepSynthesizing, StepFailed}
			if !reflect.DeepEqual(rec.steps, want) {
				t.Errorf("expected steps %v, got %v", want, rec.steps)
			}
		})
	}
}

func TestGenerateFullVideo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProject(t, nil)
	_ = f.store.SetVoiceID(ctx, owner.UserID, "voice-1")
	_ = f.store.SetVideoURL(ctx, owner.UserID, "https://cdn.test/me.mp4")
	rec := &stepRecorder{}
	o := NewOrchestrator(nil, f.projects, f.assets, f.assets, f.composer)

	resp, err := o.GenerateFullVideo(ctx, owner, p.ID, rec)
	if err != nil {
		t.Fatalf("full video: %v", err)
	}
	if resp.OutputURL != "https://fal.test/lipsync.mp4" || resp.AudioURL == "" {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Project.Status != model.StatusCompleted || resp.Project.VideoURL != resp.OutputURL {
		t.Errorf("response should carry the fresh project, got %+v", resp.Project)
	}
	want := []Step{StepSynthesizing, StepComposing, StepIdle}
	if !reflect.DeepEqual(rec.steps, want) {
		t.Errorf("expected steps %v, got %v", want, rec.steps)
	}
}

func TestGenerateImageVideo_RendersSlideshowFirstForOverlay(t *testing.T) {
	f := newFixture(t)
	p := f.createProject(t, func(p *model.Project) { p.VideoURL = "https://cdn.test/person.mp4" })
	composer := &countingComposer{next: f.composer}
	o := NewOrchestrator(nil, f.projects, f.assets, f.assets, composer)

	resp, err := o.GenerateImageVideo(context.Background(), owner, p.ID, model.KindMerge, nil, nil)
	if err != nil {
		t.Fatalf("image video: %v", err)
	}
	want := []model.CompositionKind{model.KindSlideshow, model.KindMerge}
	if !reflect.DeepEqual(composer.kinds, want) {
		t.Errorf("expected compositions %v, got %v", want, composer.kinds)
	}
	if len(resp.ImageURLs) != 2 || resp.Project.MergedVideoURL != resp.OutputURL {
		t.Errorf("unexpected response %+v", resp)
	}
	if f.compositor.overlays[0].BackgroundVideoURL != resp.Project.SlideshowVideoURL {
		t.Error("merge should use the fresh slideshow as background")
	}
}

func TestGenerateImageVideo_KeywordOnlyProject(t *testing.T) {
	f := newFixture(t)
	p := f.createProject(t, func(p *model.Project) {
		p.Scenes = nil
		p.ImagePrompts = nil
		p.Keywords = []string{"harbor", "lighthouse", "gulls"}
	})
	o := NewOrchestrator(nil, f.projects, f.assets, f.assets, f.composer)

	resp, err := o.GenerateImageVideo(context.Background(), owner, p.ID, "", nil, nil)
	if err != nil {
		t.Fatalf("image video: %v", err)
	}
	if len(resp.ImageURLs) != 3 || resp.Project.SlideshowVideoURL != resp.OutputURL {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(f.compositor.slideshow) != 1 || len(f.compositor.slideshow[0].Images) != 3 {
		t.Errorf("slideshow should use the three keyword images, got %+v", f.compositor.slideshow)
	}
	if resp.Project.Status != model.StatusCompleted {
		t.Errorf("expected COMPLETED, got %s", resp.Project.Status)
	}
}

func TestGenerateImageVideo_ImageFailureSkipsComposition(t *testing.T) {
	f := newFixture(t)
	p := f.createProject(t, nil)
	f.images.fail["sunrise"] = true
	f.images.fail["globe"] = true
	composer := &countingComposer{}
	o := NewOrchestrator(nil, f.projects, f.assets, f.assets, composer)

	_, err := o.GenerateImageVideo(context.Background(), owner, p.ID, "", nil, nil)
	if !apperr.Is(err, apperr.KindAllGenerationsFailed) {
		t.Fatalf("expected all generations failed, got %v", err)
	}
	if len(composer.kinds) != 0 {
		t.Error("composition must not run after the image step fails")
	}
}

func TestGenerateImageVideo_RejectsKind(t *testing.T) {
	f := newFixture(t)
	o := NewOrchestrator(nil, f.projects, f.assets, f.assets, f.composer)

	_, err := o.GenerateImageVideo(context.Background(), owner, "any", model.KindLipSync, nil, nil)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGenerateScriptAndSave(t *testing.T) {
	f := newFixture(t)
	scripts := NewScriptService(&fakeText{responses: []string{fourScenes}}, 0)
	o := NewOrchestrator(scripts, f.projects, f.assets, f.assets, f.composer)

	p, err := o.GenerateScriptAndSave(context.Background(), owner, "", "morning routine", model.ScriptModeScenes, nil)
	if err != nil {
		t.Fatalf("generate and save: %v", err)
	}
	if p.Title != "morning routine" || len(p.Scenes) != 4 || len(p.ImagePrompts) != 4 {
		t.Errorf("unexpected project %+v", p)
	}
	if p.Status != model.StatusDraft || p.UserID != owner.UserID {
		t.Errorf("new project should be a DRAFT owned by the caller, got %+v", p)
	}
}

func TestRun_UnknownAction(t *testing.T) {
	o := NewOrchestrator(nil, nil, nil, nil, nil)
	_, err := o.Run(context.Background(), owner, &model.PipelineJobPayload{Action: "dance"}, nil)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

// Create, voice, lip-sync, then delete.
func TestProjectLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.projects.Create(ctx, owner, &model.ProjectCreateRequest{Title: "Demo", Script: "Hello world"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Status != model.StatusDraft {
		t.Fatalf("expected DRAFT, got %s", p.Status)
	}

	_ = f.store.SetVoiceID(ctx, owner.UserID, "voice-1")
	audioURL, err := f.assets.SynthesizeSpeech(ctx, owner, p.ID)
	if err != nil {
		t.Fatalf("speech: %v", err)
	}
	got := f.get(t, p.ID)
	if got.AudioURL != audioURL || got.Status != model.StatusDraft {
		t.Fatalf("after speech: %q / %s", got.AudioURL, got.Status)
	}

	_ = f.store.SetVideoURL(ctx, owner.UserID, "https://cdn.test/me.mp4")
	videoURL, err := f.composer.ComposeVideo(ctx, owner, p.ID, model.KindLipSync, nil)
	if err != nil {
		t.Fatalf("lipsync: %v", err)
	}
	got = f.get(t, p.ID)
	if got.VideoURL != videoURL || got.Status != model.StatusCompleted {
		t.Fatalf("after lipsync: %q / %s", got.VideoURL, got.Status)
	}

	if err := f.projects.Delete(ctx, owner, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.projects.Get(ctx, owner, p.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if !errors.Is(f.projects.Delete(ctx, owner, p.ID), apperr.ErrNotFound) {
		t.Error("second delete should report not found")
	}
}
