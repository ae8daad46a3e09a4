package service

import (
	"context"
	"errors"
	"time"

	"github.com/videogen/api/internal/apperr"
	"github.com/videogen/api/internal/model"
	"github.com/videogen/api/internal/store"
)

const defaultCallTimeout = 2 * time.Minute

// loadOwned fetches a project and verifies the caller owns it. Nothing is
// mutated before this check passes.
func loadOwned(ctx context.Context, projects store.ProjectStore, caller model.Caller, projectID string) (*model.Project, error) {
	if projectID == "" {
		return nil, apperr.Validation("projectId is required", nil)
	}
	project, err := projects.Get(ctx, projectID)
	if err != nil {
		return nil, storeError(err)
	}
	if !project.OwnedBy(caller) {
		return nil, apperr.Forbidden()
	}
	return project, nil
}

// storeError maps store sentinels onto the error taxonomy.
func storeError(err error) error {
	var appErr *apperr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, apperr.ErrNotFound):
		return apperr.NotFound("project not found")
	case errors.Is(err, apperr.ErrInvalidTransition):
		return &apperr.Error{Kind: apperr.KindPrecondition, Message: err.Error(), Err: err}
	}
	return apperr.Internal("project store failure", err)
}

// withCallTimeout bounds a single vendor call.
func withCallTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultCallTimeout
	}
	return context.WithTimeout(ctx, d)
}
