package journal

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/vango-go/agriguard-live/pkg/core/live"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its dialect and filesystem in package state.
var gooseMu sync.Mutex

// PostgresStore keeps summaries in the live_sessions table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps a pool. The schema must already be migrated.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func newPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("%w: database url: %v", ErrInvalidConfig, err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres connect failed: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return pool, nil
}

// Migrate runs a goose command ("up", "down", "status", "version", ...)
// against the database at url.
func Migrate(ctx context.Context, url, command string, args ...string) error {
	pool, err := newPool(ctx, url)
	if err != nil {
		return err
	}
	defer pool.Close()
	return MigratePool(ctx, pool, command, args...)
}

// MigratePool runs a goose command using an existing pool.
func MigratePool(ctx context.Context, pool *pgxpool.Pool, command string, args ...string) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.RunContext(ctx, command, db, "migrations", args...); err != nil {
		return fmt.Errorf("migrate %s: %w", command, err)
	}
	return nil
}

const upsertSession = `
INSERT INTO live_sessions (
    id, user_name, language, model, started_at, ended_at, opened, reason, error,
    image_chunks, audio_chunks, buffers_scheduled, interruptions, transcript
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO UPDATE SET
    ended_at = EXCLUDED.ended_at,
    opened = EXCLUDED.opened,
    reason = EXCLUDED.reason,
    error = EXCLUDED.error,
    image_chunks = EXCLUDED.image_chunks,
    audio_chunks = EXCLUDED.audio_chunks,
    buffers_scheduled = EXCLUDED.buffers_scheduled,
    interruptions = EXCLUDED.interruptions,
    transcript = EXCLUDED.transcript`

const listSessions = `
SELECT id, user_name, language, model, started_at, ended_at, opened, reason, error,
       image_chunks, audio_chunks, buffers_scheduled, interruptions, transcript
FROM live_sessions
WHERE $1 = '' OR user_name = $1
ORDER BY started_at DESC
LIMIT $2`

// Record implements Store.
func (s *PostgresStore) Record(ctx context.Context, summary live.Summary) error {
	if err := validate(summary); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, upsertSession,
		summary.ID, summary.UserName, summary.Language, summary.Model,
		summary.StartedAt, summary.EndedAt, summary.Opened, string(summary.Reason), summary.Error,
		summary.ImageChunks, summary.AudioChunks, summary.BuffersScheduled, summary.Interruptions,
		summary.Transcript,
	)
	if err != nil {
		return fmt.Errorf("insert live session: %w", err)
	}
	return nil
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context, opts ListOptions) ([]live.Summary, error) {
	rows, err := s.pool.Query(ctx, listSessions, opts.UserName, opts.limit())
	if err != nil {
		return nil, fmt.Errorf("query live sessions: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanSummary)
	if err != nil {
		return nil, fmt.Errorf("scan live sessions: %w", err)
	}
	return out, nil
}

func scanSummary(row pgx.CollectableRow) (live.Summary, error) {
	var (
		s      live.Summary
		reason string
	)
	err := row.Scan(
		&s.ID, &s.UserName, &s.Language, &s.Model, &s.StartedAt, &s.EndedAt, &s.Opened,
		&reason, &s.Error, &s.ImageChunks, &s.AudioChunks, &s.BuffersScheduled,
		&s.Interruptions, &s.Transcript,
	)
	s.Reason = live.EndReason(reason)
	return s, err
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
