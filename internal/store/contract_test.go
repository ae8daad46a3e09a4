package store

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/videogen/api/internal/apperr"
	"github.com/videogen/api/internal/model"
)

func newTestProject(userID string) *model.Project {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &model.Project{
		ID:           uuid.NewString(),
		UserID:       userID,
		Title:        "Demo",
		Script:       "Hello world",
		Scenes:       []model.Scene{{Content: "Hello", ImagePrompt: "a sunrise"}, {Content: "world", ImagePrompt: "a globe"}},
		ImagePrompts: []string{"a sunrise", "a globe"},
		Status:       model.StatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// runProjectStoreContract exercises behaviour every ProjectStore must share.
func runProjectStoreContract(t *testing.T, s ProjectStore) {
	t.Run("create and get", func(t *testing.T) {
		ctx := context.Background()
		p := newTestProject("user-a")
		if err := s.Create(ctx, p); err != nil {
			t.Fatalf("create: %v", err)
		}

		got, err := s.Get(ctx, p.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Title != "Demo" || got.Status != model.StatusDraft {
			t.Errorf("unexpected project %+v", got)
		}
		if !reflect.DeepEqual(got.Scenes, p.Scenes) {
			t.Errorf("scenes not preserved in order: %+v", got.Scenes)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := s.Get(context.Background(), uuid.NewString())
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("field level merge", func(t *testing.T) {
		ctx := context.Background()
		p := newTestProject("user-a")
		if err := s.Create(ctx, p); err != nil {
			t.Fatalf("create: %v", err)
		}
		before, _ := s.Get(ctx, p.ID)

		time.Sleep(5 * time.Millisecond)
		updated, err := s.Update(ctx, p.ID, model.ProjectPatch{GeneratedImages: model.Ptr([]string{"u1", "u2"})})
		if err != nil {
			t.Fatalf("update: %v", err)
		}

		if !reflect.DeepEqual(updated.GeneratedImages, []string{"u1", "u2"}) {
			t.Errorf("generated images not stored: %v", updated.GeneratedImages)
		}
		if updated.Title != before.Title || updated.Script != before.Script || updated.Status != before.Status {
			t.Errorf("unrelated fields changed: %+v", updated)
		}
		if !updated.UpdatedAt.After(before.UpdatedAt) {
			t.Errorf("updatedAt did not advance: %v -> %v", before.UpdatedAt, updated.UpdatedAt)
		}
	})

	t.Run("clear one resource", func(t *testing.T) {
		ctx := context.Background()
		p := newTestProject("user-a")
		p.BrollVideoURL = "https://cdn/broll.mp4"
		p.MergedVideoURL = "https://cdn/merged.mp4"
		p.BrollImages = []string{"b1"}
		if err := s.Create(ctx, p); err != nil {
			t.Fatalf("create: %v", err)
		}

		updated, err := s.Update(ctx, p.ID, model.ProjectPatch{Clear: []model.Field{model.FieldBrollVideoURL}})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.BrollVideoURL != "" {
			t.Error("broll video should be cleared")
		}
		if updated.MergedVideoURL != p.MergedVideoURL || !reflect.DeepEqual(updated.BrollImages, p.BrollImages) {
			t.Errorf("siblings changed: %+v", updated)
		}
	})

	t.Run("illegal transition rejected", func(t *testing.T) {
		ctx := context.Background()
		p := newTestProject("user-a")
		p.Status = model.StatusCompleted
		if err := s.Create(ctx, p); err != nil {
			t.Fatalf("create: %v", err)
		}

		_, err := s.Update(ctx, p.ID, model.StatusPatch(model.StatusDraft))
		if !errors.Is(err, apperr.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}

		reset := model.StatusPatch(model.StatusDraft)
		reset.Reset = true
		got, err := s.Update(ctx, p.ID, reset)
		if err != nil {
			t.Fatalf("reset: %v", err)
		}
		if got.Status != model.StatusDraft {
			t.Errorf("expected DRAFT after reset, got %s", got.Status)
		}
	})

	t.Run("update missing", func(t *testing.T) {
		_, err := s.Update(context.Background(), uuid.NewString(), model.ProjectPatch{Title: model.Ptr("x")})
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("list by user and delete", func(t *testing.T) {
		ctx := context.Background()
		owner := "lister-" + uuid.NewString()
		first := newTestProject(owner)
		second := newTestProject(owner)
		second.CreatedAt = first.CreatedAt.Add(time.Second)
		other := newTestProject("someone-else")
		for _, p := range []*model.Project{first, second, other} {
			if err := s.Create(ctx, p); err != nil {
				t.Fatalf("create: %v", err)
			}
		}

		list, err := s.ListByUser(ctx, owner)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 2 || list[0].ID != second.ID {
			t.Fatalf("expected newest-first list of 2, got %d", len(list))
		}

		if err := s.Delete(ctx, first.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.Get(ctx, first.ID); !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if err := s.Delete(ctx, first.ID); !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}

		list, _ = s.ListByUser(ctx, owner)
		if len(list) != 1 {
			t.Errorf("expected 1 remaining project, got %d", len(list))
		}
	})

	// Writers on different fields never lose each other's data. Two writers
	// on the same field race and one value wins; no locking prevents that.
	t.Run("concurrent writers", func(t *testing.T) {
		ctx := context.Background()
		p := newTestProject("user-a")
		if err := s.Create(ctx, p); err != nil {
			t.Fatalf("create: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, _ = s.Update(ctx, p.ID, model.ProjectPatch{AudioURL: model.Ptr("https://cdn/a.mp3")})
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Update(ctx, p.ID, model.ProjectPatch{GeneratedImages: model.Ptr([]string{"img"})})
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Update(ctx, p.ID, model.ProjectPatch{AudioURL: model.Ptr("https://cdn/b.mp3")})
		}()
		wg.Wait()

		got, err := s.Get(ctx, p.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if len(got.GeneratedImages) != 1 {
			t.Errorf("images lost by a writer on another field: %+v", got)
		}
		if got.AudioURL != "https://cdn/a.mp3" && got.AudioURL != "https://cdn/b.mp3" {
			t.Errorf("unexpected audio url %q", got.AudioURL)
		}
	})
}

func runProfileStoreContract(t *testing.T, s ProfileStore) {
	ctx := context.Background()
	userID := "profile-" + uuid.NewString()

	if _, err := s.GetProfile(ctx, userID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown profile, got %v", err)
	}

	if err := s.SetVoiceID(ctx, userID, "voice-1"); err != nil {
		t.Fatalf("set voice: %v", err)
	}
	if err := s.SetVideoURL(ctx, userID, "https://cdn/me.mp4"); err != nil {
		t.Fatalf("set video: %v", err)
	}

	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile.VoiceID != "voice-1" || profile.VideoURL != "https://cdn/me.mp4" {
		t.Errorf("unexpected profile %+v", profile)
	}
}
