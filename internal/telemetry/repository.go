package telemetry

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/serialplot/internal/errors"
	"codeberg.org/mutker/serialplot/internal/logger"
	"codeberg.org/mutker/serialplot/internal/stream"

	_ "github.com/mattn/go-sqlite3"
)

type Repository interface {
	Store(ctx context.Context, summary *SessionSummary) error
	Get(ctx context.Context, id string) (*SessionSummary, error)
	List(ctx context.Context, limit int) ([]*SessionSummary, error)
	Close() error
}

type sqliteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	log.Debug().Str("path", cfg.DBPath).Msg("Initializing telemetry repository")

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	return &sqliteRepository{
		db: db,
	}, nil
}

func (r *sqliteRepository) Store(ctx context.Context, s *SessionSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var endedAt sql.NullInt64
	if !s.EndedAt.IsZero() {
		endedAt = sql.NullInt64{Int64: s.EndedAt.UnixMilli(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
        INSERT INTO sessions (
            id, device, baud, interval_s, mode,
            started_at, ended_at,
            passes, samples, warnings, outcome, last_error
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            ended_at = excluded.ended_at,
            passes = excluded.passes,
            samples = excluded.samples,
            warnings = excluded.warnings,
            outcome = excluded.outcome,
            last_error = excluded.last_error
    `,
		s.ID,
		s.Device,
		s.Baud,
		s.Interval,
		int(s.Mode),
		s.StartedAt.UnixMilli(),
		endedAt,
		s.Passes,
		s.Samples,
		s.Warnings,
		string(s.Outcome),
		s.LastError,
	)
	if err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}

	return nil
}

const selectSessionSQL = `
        SELECT id, device, baud, interval_s, mode, started_at, ended_at,
               passes, samples, warnings, outcome, last_error
        FROM sessions`

func (r *sqliteRepository) Get(ctx context.Context, id string) (*SessionSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := scanSummary(r.db.QueryRowContext(ctx, selectSessionSQL+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.New().WithData(ErrUnknownSession, id)
	}
	if err != nil {
		return nil, errors.New().Wrap(ErrStorageAccess, err)
	}
	return s, nil
}

// List returns up to limit sessions, newest first.
func (r *sqliteRepository) List(ctx context.Context, limit int) ([]*SessionSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	errFactory := errors.New()

	rows, err := r.db.QueryContext(ctx, selectSessionSQL+` ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	var out []*SessionSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (*SessionSummary, error) {
	var (
		s         SessionSummary
		mode      int
		startedAt int64
		endedAt   sql.NullInt64
		outcome   string
	)

	if err := row.Scan(&s.ID, &s.Device, &s.Baud, &s.Interval, &mode, &startedAt, &endedAt,
		&s.Passes, &s.Samples, &s.Warnings, &outcome, &s.LastError); err != nil {
		return nil, err
	}

	s.Mode = stream.Mode(mode)
	s.StartedAt = time.UnixMilli(startedAt)
	if endedAt.Valid {
		s.EndedAt = time.UnixMilli(endedAt.Int64)
	}
	s.Outcome = Outcome(outcome)
	return &s, nil
}

func (r *sqliteRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.db.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}
	return nil
}
