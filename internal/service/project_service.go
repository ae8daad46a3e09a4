package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/videogen/api/internal/apperr"
	"github.com/videogen/api/internal/logging"
	"github.com/videogen/api/internal/model"
	"github.com/videogen/api/internal/store"
)

// ProjectService owns project lifecycle and the ownership rule in front of
// the store.
type ProjectService struct {
	projects store.ProjectStore
	now      func() time.Time
}

func NewProjectService(projects store.ProjectStore) *ProjectService {
	return &ProjectService{
		projects: projects,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new DRAFT project owned by the caller.
func (s *ProjectService) Create(ctx context.Context, caller model.Caller, req *model.ProjectCreateRequest) (*model.Project, error) {
	title := strings.TrimSpace(req.Title)
	script := strings.TrimSpace(req.Script)
	if title == "" || script == "" {
		return nil, apperr.Validation("title and script are required", nil)
	}

	scenes := make([]model.Scene, 0, len(req.Scenes))
	prompts := make([]string, 0, len(req.Scenes))
	for i, sc := range req.Scenes {
		content := strings.TrimSpace(sc.Content)
		prompt := strings.TrimSpace(sc.ImagePrompt)
		if content == "" || prompt == "" {
			return nil, apperr.Validation("every scene needs content and imagePrompt", map[string]int{"scene": i})
		}
		scenes = append(scenes, model.Scene{Content: content, ImagePrompt: prompt})
		prompts = append(prompts, prompt)
	}

	now := s.now()
	project := &model.Project{
		ID:           uuid.New().String(),
		UserID:       caller.UserID,
		Title:        title,
		Script:       script,
		Scenes:       scenes,
		Keywords:     cleanKeywords(req.Keywords),
		ImagePrompts: prompts,
		Status:       model.StatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.projects.Create(ctx, project); err != nil {
		return nil, apperr.Internal("failed to create project", err)
	}

	logging.Stage(ctx, "project", project.ID).WithField("user_id", caller.UserID).Info("project created")
	return project, nil
}

func (s *ProjectService) Get(ctx context.Context, caller model.Caller, projectID string) (*model.Project, error) {
	return loadOwned(ctx, s.projects, caller, projectID)
}

// List returns the caller's projects, newest first.
func (s *ProjectService) List(ctx context.Context, caller model.Caller) ([]*model.Project, error) {
	projects, err := s.projects.ListByUser(ctx, caller.UserID)
	if err != nil {
		return nil, apperr.Internal("failed to list projects", err)
	}
	if projects == nil {
		projects = []*model.Project{}
	}
	return projects, nil
}

// Update applies a user edit of the authored fields.
func (s *ProjectService) Update(ctx context.Context, caller model.Caller, projectID string, req *model.ProjectUpdateRequest) (*model.Project, error) {
	if _, err := loadOwned(ctx, s.projects, caller, projectID); err != nil {
		return nil, err
	}

	var patch model.ProjectPatch
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperr.Validation("title must not be empty", nil)
		}
		patch.Title = &title
	}
	if req.Script != nil {
		script := strings.TrimSpace(*req.Script)
		if script == "" {
			return nil, apperr.Validation("script must not be empty", nil)
		}
		patch.Script = &script
	}
	if req.Keywords != nil {
		keywords := cleanKeywords(*req.Keywords)
		patch.Keywords = &keywords
	}

	updated, err := s.projects.Update(ctx, projectID, patch)
	if err != nil {
		return nil, storeError(err)
	}
	return updated, nil
}

func (s *ProjectService) Delete(ctx context.Context, caller model.Caller, projectID string) error {
	if _, err := loadOwned(ctx, s.projects, caller, projectID); err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, projectID); err != nil {
		return storeError(err)
	}
	logging.Stage(ctx, "project", projectID).Info("project deleted")
	return nil
}

// Reset is the only path back to DRAFT.
func (s *ProjectService) Reset(ctx context.Context, caller model.Caller, projectID string) (*model.Project, error) {
	if _, err := loadOwned(ctx, s.projects, caller, projectID); err != nil {
		return nil, err
	}
	patch := model.StatusPatch(model.StatusDraft)
	patch.Reset = true
	updated, err := s.projects.Update(ctx, projectID, patch)
	if err != nil {
		return nil, storeError(err)
	}
	return updated, nil
}

func cleanKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, k := range in {
		k = strings.TrimSpace(k)
		if k == "" || seen[strings.ToLower(k)] {
			continue
		}
		seen[strings.ToLower(k)] = true
		out = append(out, k)
	}
	return out
}
