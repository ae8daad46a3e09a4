package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/videogen/api/internal/apperr"
	"github.com/videogen/api/internal/model"
	"github.com/videogen/api/internal/store"
)

func TestComposeVideo_LipSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProject(t, func(p *model.Project) { p.AudioURL = "https://cdn.test/a.mp3" })
	_ = f.store.SetVideoURL(ctx, owner.UserID, "https://cdn.test/me.mp4")

	out, err := f.composer.ComposeVideo(ctx, owner, p.ID, model.KindLipSync, nil)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if out != "https://fal.test/lipsync.mp4" {
		t.Errorf("unexpected output %q", out)
	}
	got := f.get(t, p.ID)
	if got.VideoURL != out || got.Status != model.StatusCompleted {
		t.Errorf("expected videoUrl and COMPLETED, got %q / %s", got.VideoURL, got.Status)
	}
}

func TestComposeVideo_LipSyncFailureMarksFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProject(t, func(p *model.Project) { p.AudioURL = "https://cdn.test/a.mp3" })
	_ = f.store.SetVideoURL(ctx, owner.UserID, "https://cdn.test/me.mp4")
	f.lipsync.err = errors.New("face not detected")

	_, err := f.composer.ComposeVideo(ctx, owner, p.ID, model.KindLipSync, nil)
	if !apperr.Is(err, apperr.KindUpstream) || !strings.Contains(err.Error(), "face not detected") {
		t.Fatalf("expected upstream error, got %v", err)
	}
	got := f.get(t, p.ID)
	if got.Status != model.StatusFailed || got.VideoURL != "" {
		t.Errorf("expected FAILED without video, got %s / %q", got.Status, got.VideoURL)
	}

	// A failed project can be retried.
	f.lipsync.err = nil
	if _, err := f.composer.ComposeVideo(ctx, owner, p.ID, model.KindLipSync, nil); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := f.get(t, p.ID); got.Status != model.StatusCompleted {
		t.Errorf("expected COMPLETED after retry, got %s", got.Status)
	}
}

func TestComposeVideo_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	noAudio := f.createProject(t, nil)
	if _, err := f.composer.ComposeVideo(ctx, owner, noAudio.ID, model.KindLipSync, nil); !apperr.Is(err, apperr.KindPrecondition) {
		t.Errorf("lipsync without audio: expected precondition, got %v", err)
	}

	withAudio := f.createProject(t, func(p *model.Project) { p.AudioURL = "https://cdn.test/a.mp3" })
	_, err := f.composer.ComposeVideo(ctx, owner, withAudio.ID, model.KindLipSync, nil)
	if !apperr.Is(err, apperr.KindPrecondition) || !strings.Contains(err.Error(), "upload a video") {
		t.Errorf("lipsync without profile video: expected precondition, got %v", err)
	}

	if _, err := f.composer.ComposeVideo(ctx, owner, withAudio.ID, model.KindSlideshow, nil); !apperr.Is(err, apperr.KindPrecondition) {
		t.Errorf("slideshow without images: expected precondition, got %v", err)
	}
	if _, err := f.composer.ComposeVideo(ctx, owner, withAudio.ID, model.KindMerge, nil); !apperr.Is(err, apperr.KindPrecondition) {
		t.Errorf("merge without videos: expected precondition, got %v", err)
	}

	if got := f.get(t, withAudio.ID); got.Status != model.StatusDraft {
		t.Errorf("failed preconditions must not touch status, got %s", got.Status)
	}
	if f.lipsync.calls != 0 || len(f.compositor.slideshow) != 0 {
		t.Error("vendors called despite failed preconditions")
	}
}

func TestComposeVideo_Validation(t *testing.T) {
	f := newFixture(t)
	p := f.createProject(t, nil)

	_, err := f.composer.ComposeVideo(context.Background(), owner, p.ID, "gif", nil)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("unknown kind: expected validation error, got %v", err)
	}
	_, err = f.composer.ComposeVideo(context.Background(), owner, p.ID, model.KindMerge, &model.ComposeOptions{PersonSize: 2})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("bad size: expected validation error, got %v", err)
	}
}

func TestComposeVideo_Forbidden(t *testing.T) {
	f := newFixture(t)
	p := f.createProject(t, func(p *model.Project) { p.GeneratedImages = []string{"https://img.test/1.png"} })

	_, err := f.composer.ComposeVideo(context.Background(), stranger, p.ID, model.KindSlideshow, nil)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if len(f.compositor.slideshow) != 0 {
		t.Error("compositor called for a non-owner")
	}
}

func TestComposeVideo_OwnershipCheckedBeforeInput(t *testing.T) {
	f := newFixture(t)
	p := f.createProject(t, nil)

	_, err := f.composer.ComposeVideo(context.Background(), stranger, p.ID, model.KindMerge, &model.ComposeOptions{PersonSize: 2})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("bad options from a non-owner: expected forbidden, got %v", err)
	}
	if err := f.composer.DeleteResource(context.Background(), stranger, p.ID, "script"); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("bad resource from a non-owner: expected forbidden, got %v", err)
	}
}

// contextStore rejects writes once the caller's context is done, like a
// network-backed store would.
type contextStore struct {
	*store.MemoryStore
}

func (s contextStore) Update(ctx context.Context, id string, patch model.ProjectPatch) (*model.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.MemoryStore.Update(ctx, id, patch)
}

type cancellingLipSync struct {
	cancel context.CancelFunc
}

func (l cancellingLipSync) LipSync(context.Context, string, string) (string, error) {
	l.cancel()
	return "", context.Canceled
}

func (l cancellingLipSync) IsConfigured() bool { return true }

func TestComposeVideo_FailedStatusSurvivesCancellation(t *testing.T) {
	f := newFixture(t)
	p := f.createProject(t, func(p *model.Project) { p.AudioURL = "https://cdn.test/a.mp3" })
	_ = f.store.SetVideoURL(context.Background(), owner.UserID, "https://cdn.test/me.mp4")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	composer := NewCompositionService(contextStore{f.store}, f.store, cancellingLipSync{cancel: cancel}, f.compositor, time.Second)

	_, err := composer.ComposeVideo(ctx, owner, p.ID, model.KindLipSync, nil)
	if !apperr.Is(err, apperr.KindUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if got := f.get(t, p.ID); got.Status != model.StatusFailed {
		t.Errorf("expected FAILED after cancellation, got %s", got.Status)
	}
}

func TestComposeVideo_SlideshowUsesTimedScenes(t *testing.T) {
	f := newFixture(t)
	p := f.createProject(t, func(p *model.Project) {
		p.AudioURL = "https://cdn.test/a.mp3"
		p.GeneratedImages = []string{"https://img.test/1.png", "https://img.test/2.png"}
		p.TimedScenes = []model.TimedScene{{Start: 0, End: 3}, {Index: 1, Start: 3, End: 4.5}}
	})

	out, err := f.composer.ComposeVideo(context.Background(), owner, p.ID, model.KindSlideshow, nil)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	req := f.compositor.slideshow[0]
	if req.AudioURL != p.AudioURL || req.Durations[0] != 3 || req.Durations[1] != 1.5 {
		t.Errorf("unexpected slideshow request %+v", req)
	}
	got := f.get(t, p.ID)
	if got.SlideshowVideoURL != out || got.VideoURL != "" {
		t.Errorf("slideshow must only write slideshowVideoUrl, got %+v", got)
	}
}

func TestComposeVideo_OverlayKinds(t *testing.T) {
	f := newFixture(t)
	p := f.createProject(t, func(p *model.Project) {
		p.VideoURL = "https://cdn.test/person.mp4"
		p.BrollVideoURL = "https://cdn.test/broll.mp4"
		p.SlideshowVideoURL = "https://cdn.test/slides.mp4"
	})
	ctx := context.Background()

	split, err := f.composer.ComposeVideo(ctx, owner, p.ID, model.KindSplitScreen, nil)
	if err != nil {
		t.Fatalf("splitscreen: %v", err)
	}
	merged, err := f.composer.ComposeVideo(ctx, owner, p.ID, model.KindMerge,
		&model.ComposeOptions{PersonSize: 0.5, PersonPosition: model.PositionBottomLeft})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	got := f.get(t, p.ID)
	if got.SplitScreenVideoURL != split || got.MergedVideoURL != merged {
		t.Errorf("overlay outputs not stored: %+v", got)
	}
	first, second := f.compositor.overlays[0], f.compositor.overlays[1]
	if first.BackgroundVideoURL != p.BrollVideoURL {
		t.Errorf("B-roll video should be preferred as background, got %q", first.BackgroundVideoURL)
	}
	if first.PersonSize != model.DefaultPersonSize || first.PersonPosition != string(model.PositionBottom) {
		t.Errorf("defaults not applied: %+v", first)
	}
	if second.PersonSize != 0.5 || second.PersonPosition != string(model.PositionBottomLeft) {
		t.Errorf("options not applied: %+v", second)
	}
}

func TestDeleteResource_ClearsOnlyThatField(t *testing.T) {
	f := newFixture(t)
	p := f.createProject(t, func(p *model.Project) {
		p.BrollImages = []string{"https://img.test/b1.png"}
		p.BrollVideoURL = "https://cdn.test/broll.mp4"
		p.MergedVideoURL = "https://cdn.test/merged.mp4"
	})

	if err := f.composer.DeleteResource(context.Background(), owner, p.ID, model.ResourceBrollVideo); err != nil {
		t.Fatalf("delete resource: %v", err)
	}
	got := f.get(t, p.ID)
	if got.BrollVideoURL != "" {
		t.Error("brollVideoUrl should be cleared")
	}
	if got.MergedVideoURL != p.MergedVideoURL || len(got.BrollImages) != 1 {
		t.Errorf("other resources must survive, got %+v", got)
	}

	if err := f.composer.DeleteResource(context.Background(), owner, p.ID, "script"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for unknown resource, got %v", err)
	}
	if err := f.composer.DeleteResource(context.Background(), stranger, p.ID, model.ResourceMergedVideo); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
}
