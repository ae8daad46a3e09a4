package store

import (
	"context"

	"github.com/videogen/api/internal/model"
)

// ProjectStore persists projects. Update is a per-field merge: only the
// fields named by the patch are written, so concurrent writers touching
// different fields never clobber each other. Writers racing on the same
// field resolve last-writer-wins.
//
// Implementations return apperr.ErrNotFound for missing records and
// apperr.ErrInvalidTransition for illegal status writes.
type ProjectStore interface {
	Create(ctx context.Context, project *model.Project) error
	Get(ctx context.Context, id string) (*model.Project, error)
	Update(ctx context.Context, id string, patch model.ProjectPatch) (*model.Project, error)
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]*model.Project, error)
}

// ProfileStore persists the per-user voice and source video.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*model.UserProfile, error)
	SetVoiceID(ctx context.Context, userID, voiceID string) error
	SetVideoURL(ctx context.Context, userID, videoURL string) error
}
