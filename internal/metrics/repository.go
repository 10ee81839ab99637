package metrics

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/serialplot/internal/errors"
	"codeberg.org/mutker/serialplot/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

// repository buffers sample points and writes them in batches, when the
// buffer fills or on every BatchTimeout tick.
type repository struct {
	db     *sql.DB
	logger logger.Logger
	cfg    Config

	mu      sync.Mutex
	pending []*SamplePoint

	ticker    *time.Ticker
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewRepository(cfg Config, log logger.Logger) (SampleRepository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal=WAL&_auto_vacuum=2")
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if err := prepareSchema(db, cfg.backupDir(), log); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("batch_size", cfg.BatchSize).
		Dur("batch_timeout", cfg.BatchTimeout).
		Msg("Sample repository initialized")

	r := &repository{
		db:      db,
		logger:  log,
		cfg:     cfg,
		pending: make([]*SamplePoint, 0, cfg.BatchSize),
		ticker:  time.NewTicker(cfg.BatchTimeout),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go r.flusher()

	return r, nil
}

func (r *repository) Record(points ...*SamplePoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending = append(r.pending, points...)
	if len(r.pending) < r.cfg.BatchSize {
		return nil
	}
	return r.flush()
}

// Count returns the number of stored samples of a session, flushing any
// buffered ones first.
func (r *repository) Count(sessionID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.flush(); err != nil {
		return 0, err
	}

	var n int
	if err := r.db.QueryRow(countSamplesSQL, sessionID).Scan(&n); err != nil {
		return 0, errors.New().Wrap(ErrStorageQuery, err)
	}
	return n, nil
}

// Close writes what is still buffered, folds the WAL back into the database
// and closes it. Later calls return nil.
func (r *repository) Close() error {
	var err error

	r.closeOnce.Do(func() {
		close(r.quit)
		r.ticker.Stop()
		<-r.done

		if _, cerr := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); cerr != nil {
			err = errors.New().Wrap(ErrStorageClose, cerr)
			r.db.Close()
			return
		}
		if cerr := r.db.Close(); cerr != nil {
			err = errors.New().Wrap(ErrStorageClose, cerr)
			return
		}

		r.logger.Info().Msg("Sample repository closed")
	})

	return err
}

func (r *repository) flusher() {
	defer close(r.done)

	for {
		select {
		case <-r.ticker.C:
		case <-r.quit:
			r.flushLocked()
			return
		}
		r.flushLocked()
	}
}

func (r *repository) flushLocked() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.flush(); err != nil {
		r.logger.Error().Err(err).Int("pending", len(r.pending)).Msg("Failed to flush samples")
	}
}

// flush must be called with r.mu held. Points stay buffered when the write
// fails.
func (r *repository) flush() error {
	if len(r.pending) == 0 {
		return nil
	}

	errFactory := errors.New()

	tx, err := r.db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertSampleSQL)
	if err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmt.Close()

	for _, p := range r.pending {
		if _, err := stmt.Exec(p.SessionID, p.RecordedAt.UnixMilli(), p.Time, p.Channel, p.Value); err != nil {
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	r.logger.Debug().Int("records", len(r.pending)).Msg("Flushed samples to database")
	r.pending = r.pending[:0]

	return nil
}
