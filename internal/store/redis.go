package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/videogen/api/internal/apperr"
	"github.com/videogen/api/internal/model"
)

// maxTxRetries bounds optimistic retries when a watched project key changes
// mid-update.
const maxTxRetries = 5

// RedisStore keeps each project in a hash with one JSON-encoded value per
// field, so a partial update is a plain HSET of the touched fields.
type RedisStore struct {
	redis *redis.Client
	now   func() time.Time
}

// NewRedisStore constructs a Redis-backed project and profile store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{
		redis: redisClient,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func projectKey(id string) string {
	return fmt.Sprintf("project:%s", id)
}

func userProjectsKey(userID string) string {
	return fmt.Sprintf("user:%s:projects", userID)
}

func profileKey(userID string) string {
	return fmt.Sprintf("profile:%s", userID)
}

func (s *RedisStore) Create(ctx context.Context, project *model.Project) error {
	fields, err := encodeProject(project)
	if err != nil {
		return err
	}

	created, err := s.redis.HSetNX(ctx, projectKey(project.ID), "id", fields["id"]).Result()
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	if !created {
		return fmt.Errorf("project %s already exists", project.ID)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, projectKey(project.ID), fields)
		pipe.SAdd(ctx, userProjectsKey(project.UserID), project.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*model.Project, error) {
	values, err := s.redis.HGetAll(ctx, projectKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if len(values) == 0 {
		return nil, apperr.ErrNotFound
	}
	return decodeProject(values)
}

// Update validates the status transition under WATCH so a concurrent status
// write forces a retry instead of slipping past the transition table.
func (s *RedisStore) Update(ctx context.Context, id string, patch model.ProjectPatch) (*model.Project, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	key := projectKey(id)

	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, string(model.FieldStatus)).Result()
		if errors.Is(err, redis.Nil) {
			return apperr.ErrNotFound
		}
		if err != nil {
			return err
		}

		if patch.Status != nil {
			var from model.ProjectStatus
			if err := json.Unmarshal([]byte(current), &from); err != nil {
				return fmt.Errorf("decode status: %w", err)
			}
			if err := model.CheckTransition(from, *patch.Status, patch.Reset); err != nil {
				return err
			}
		}

		set, del, err := encodePatch(patch, s.now())
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, set)
			if len(del) > 0 {
				pipe.HDel(ctx, key, del...)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.redis.Watch(ctx, txf, key)
		if err == nil {
			return s.Get(ctx, id)
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("update project %s: too much contention", id)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	raw, err := s.redis.HGet(ctx, projectKey(id), "userId").Result()
	if errors.Is(err, redis.Nil) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	var userID string
	if err := json.Unmarshal([]byte(raw), &userID); err != nil {
		return fmt.Errorf("decode owner: %w", err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, projectKey(id))
		pipe.SRem(ctx, userProjectsKey(userID), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

func (s *RedisStore) ListByUser(ctx context.Context, userID string) ([]*model.Project, error) {
	ids, err := s.redis.SMembers(ctx, userProjectsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, projectKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	projects := make([]*model.Project, 0, len(ids))
	for _, cmd := range cmds {
		values := cmd.Val()
		if len(values) == 0 {
			continue
		}
		p, err := decodeProject(values)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	sortNewestFirst(projects)
	return projects, nil
}

func (s *RedisStore) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	values, err := s.redis.HGetAll(ctx, profileKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if len(values) == 0 {
		return nil, apperr.ErrNotFound
	}

	profile := &model.UserProfile{
		UserID:   userID,
		VoiceID:  values["voiceId"],
		VideoURL: values["videoUrl"],
	}
	if ts, err := time.Parse(time.RFC3339Nano, values["updatedAt"]); err == nil {
		profile.UpdatedAt = ts
	}
	return profile, nil
}

func (s *RedisStore) SetVoiceID(ctx context.Context, userID, voiceID string) error {
	return s.setProfileField(ctx, userID, "voiceId", voiceID)
}

func (s *RedisStore) SetVideoURL(ctx context.Context, userID, videoURL string) error {
	return s.setProfileField(ctx, userID, "videoUrl", videoURL)
}

func (s *RedisStore) setProfileField(ctx context.Context, userID, field, value string) error {
	err := s.redis.HSet(ctx, profileKey(userID),
		field, value,
		"updatedAt", s.now().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// encodeProject flattens a project into hash fields keyed by JSON name.
func encodeProject(project *model.Project) (map[string]interface{}, error) {
	data, err := json.Marshal(project)
	if err != nil {
		return nil, fmt.Errorf("encode project: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("encode project: %w", err)
	}
	fields := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		fields[k] = string(v)
	}
	return fields, nil
}

// decodeProject reassembles the hash into a JSON object and unmarshals it.
func decodeProject(values map[string]string) (*model.Project, error) {
	raw := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		raw[k] = json.RawMessage(v)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}
	var project model.Project
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}
	return &project, nil
}

func encodePatch(patch model.ProjectPatch, now time.Time) (map[string]interface{}, []string, error) {
	set := make(map[string]interface{})
	var del []string
	for field, value := range patch.Values() {
		if value == nil {
			del = append(del, string(field))
			continue
		}
		data, err := json.Marshal(value)
		if err != nil {
			return nil, nil, fmt.Errorf("encode %s: %w", field, err)
		}
		set[string(field)] = string(data)
	}

	ts, err := json.Marshal(now)
	if err != nil {
		return nil, nil, err
	}
	set["updatedAt"] = string(ts)
	return set, del, nil
}
