package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/videogen/api/internal/apperr"
	"github.com/videogen/api/internal/db"
	"github.com/videogen/api/internal/model"
)

// Schema is applied by Migrate. Slice-valued fields live in JSONB columns.
const Schema = `
CREATE TABLE IF NOT EXISTS projects (
    id                     TEXT PRIMARY KEY,
    user_id                TEXT NOT NULL,
    title                  TEXT NOT NULL,
    script                 TEXT NOT NULL,
    scenes                 JSONB,
    keywords               JSONB,
    image_prompts          JSONB,
    audio_url              TEXT NOT NULL DEFAULT '',
    generated_images       JSONB,
    broll_images           JSONB,
    broll_video_url        TEXT NOT NULL DEFAULT '',
    video_url              TEXT NOT NULL DEFAULT '',
    slideshow_video_url    TEXT NOT NULL DEFAULT '',
    split_screen_video_url TEXT NOT NULL DEFAULT '',
    merged_video_url       TEXT NOT NULL DEFAULT '',
    transcript             JSONB,
    timed_scenes           JSONB,
    audio_duration         DOUBLE PRECISION NOT NULL DEFAULT 0,
    status                 TEXT NOT NULL,
    created_at             TIMESTAMPTZ NOT NULL,
    updated_at             TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS projects_user_id_idx ON projects (user_id);
CREATE TABLE IF NOT EXISTS profiles (
    user_id    TEXT PRIMARY KEY,
    voice_id   TEXT NOT NULL DEFAULT '',
    video_url  TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMPTZ NOT NULL
);
`

const projectColumns = `id, user_id, title, script, scenes, keywords, image_prompts,
    audio_url, generated_images, broll_images, broll_video_url, video_url,
    slideshow_video_url, split_screen_video_url, merged_video_url,
    transcript, timed_scenes, audio_duration, status, created_at, updated_at`

type column struct {
	name    string
	cleared interface{}
}

// columns maps patchable fields onto their column and the value a clear writes.
var columns = map[model.Field]column{
	model.FieldTitle:               {"title", nil},
	model.FieldScript:              {"script", nil},
	model.FieldKeywords:            {"keywords", nil},
	model.FieldAudioURL:            {"audio_url", ""},
	model.FieldGeneratedImages:     {"generated_images", nil},
	model.FieldBrollImages:         {"broll_images", nil},
	model.FieldBrollVideoURL:       {"broll_video_url", ""},
	model.FieldVideoURL:            {"video_url", ""},
	model.FieldSlideshowVideoURL:   {"slideshow_video_url", ""},
	model.FieldSplitScreenVideoURL: {"split_screen_video_url", ""},
	model.FieldMergedVideoURL:      {"merged_video_url", ""},
	model.FieldTranscript:          {"transcript", nil},
	model.FieldTimedScenes:         {"timed_scenes", nil},
	model.FieldAudioDuration:       {"audio_duration", float64(0)},
	model.FieldStatus:              {"status", nil},
}

// PostgresStore provides PostgreSQL-backed persistence for projects and profiles.
type PostgresStore struct {
	pool db.Pool
	now  func() time.Time
}

// NewPostgresStore constructs a store backed by PostgreSQL.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Migrate creates the tables when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	for _, stmt := range strings.Split(Schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, p *model.Project) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO projects (`+projectColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
    `,
		p.ID, p.UserID, p.Title, p.Script, p.Scenes, p.Keywords, p.ImagePrompts,
		p.AudioURL, p.GeneratedImages, p.BrollImages, p.BrollVideoURL, p.VideoURL,
		p.SlideshowVideoURL, p.SplitScreenVideoURL, p.MergedVideoURL,
		p.Transcript, p.TimedScenes, p.AudioDuration, string(p.Status), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("project %s already exists", p.ID)
		}
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*model.Project, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return getProject(ctx, conn, id)
}

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getProject(ctx context.Context, q queryer, id string) (*model.Project, error) {
	row := q.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("select project: %w", err)
	}
	return p, nil
}

// Update writes only the touched columns inside a transaction that locks the
// row, so the status transition check and the write see the same state.
func (s *PostgresStore) Update(ctx context.Context, id string, patch model.ProjectPatch) (*model.Project, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM projects WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("lock project: %w", err)
	}

	if patch.Status != nil {
		if err := model.CheckTransition(model.ProjectStatus(current), *patch.Status, patch.Reset); err != nil {
			return nil, err
		}
	}

	query, args := buildUpdate(id, patch, s.now())
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}

	updated, err := getProject(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return updated, nil
}

// buildUpdate renders an UPDATE that names only the patched columns.
func buildUpdate(id string, patch model.ProjectPatch, now time.Time) (string, []interface{}) {
	values := patch.Values()
	fields := make([]string, 0, len(values))
	for f := range values {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)

	sets := make([]string, 0, len(fields)+1)
	args := []interface{}{id}
	for _, name := range fields {
		f := model.Field(name)
		col := columns[f]
		value := values[f]
		if value == nil {
			value = col.cleared
		}
		if status, ok := value.(model.ProjectStatus); ok {
			value = string(status)
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", col.name, len(args)))
	}
	args = append(args, now)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	return `UPDATE projects SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`, args
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]*model.Project, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+projectColumns+`
        FROM projects
        WHERE user_id = $1
        ORDER BY created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

func scanProject(row pgx.Row) (*model.Project, error) {
	var (
		p      model.Project
		status string
	)
	err := row.Scan(
		&p.ID, &p.UserID, &p.Title, &p.Script, &p.Scenes, &p.Keywords, &p.ImagePrompts,
		&p.AudioURL, &p.GeneratedImages, &p.BrollImages, &p.BrollVideoURL, &p.VideoURL,
		&p.SlideshowVideoURL, &p.SplitScreenVideoURL, &p.MergedVideoURL,
		&p.Transcript, &p.TimedScenes, &p.AudioDuration, &status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = model.ProjectStatus(status)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var profile model.UserProfile
	err = conn.QueryRow(ctx, `
        SELECT user_id, voice_id, video_url, updated_at
        FROM profiles
        WHERE user_id = $1
    `, userID).Scan(&profile.UserID, &profile.VoiceID, &profile.VideoURL, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("select profile: %w", err)
	}
	return &profile, nil
}

func (s *PostgresStore) SetVoiceID(ctx context.Context, userID, voiceID string) error {
	return s.upsertProfile(ctx, `
        INSERT INTO profiles (user_id, voice_id, updated_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id) DO UPDATE SET voice_id = EXCLUDED.voice_id, updated_at = EXCLUDED.updated_at
    `, userID, voiceID)
}

func (s *PostgresStore) SetVideoURL(ctx context.Context, userID, videoURL string) error {
	return s.upsertProfile(ctx, `
        INSERT INTO profiles (user_id, video_url, updated_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id) DO UPDATE SET video_url = EXCLUDED.video_url, updated_at = EXCLUDED.updated_at
    `, userID, videoURL)
}

func (s *PostgresStore) upsertProfile(ctx context.Context, query, userID, value string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, query, userID, value, s.now()); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
