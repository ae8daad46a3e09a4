package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/videogen/api/internal/apperr"
	"github.com/videogen/api/internal/model"
)

// MemoryStore keeps projects and profiles in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string]*model.Project
	profiles map[string]*model.UserProfile
	now      func() time.Time
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects: make(map[string]*model.Project),
		profiles: make(map[string]*model.UserProfile),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the timestamp source.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Create(_ context.Context, project *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.projects[project.ID]; exists {
		return fmt.Errorf("project %s already exists", project.ID)
	}
	s.projects[project.ID] = project.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, patch model.ProjectPatch) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}

	updated := p.Clone()
	if err := patch.Apply(updated, s.now()); err != nil {
		return nil, err
	}
	s.projects[id] = updated
	return updated.Clone(), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(s.projects, id)
	return nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]*model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Project
	for _, p := range s.projects {
		if p.UserID == userID {
			out = append(out, p.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) GetProfile(_ context.Context, userID string) (*model.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) SetVoiceID(_ context.Context, userID, voiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.profileLocked(userID)
	p.VoiceID = voiceID
	p.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) SetVideoURL(_ context.Context, userID, videoURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.profileLocked(userID)
	p.VideoURL = videoURL
	p.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) profileLocked(userID string) *model.UserProfile {
	p, ok := s.profiles[userID]
	if !ok {
		p = &model.UserProfile{UserID: userID}
		s.profiles[userID] = p
	}
	return p
}

func sortNewestFirst(projects []*model.Project) {
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
}
