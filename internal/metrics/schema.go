package metrics

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"codeberg.org/mutker/serialplot/internal/errors"
	"codeberg.org/mutker/serialplot/internal/logger"
)

// schemaVersion changes whenever the samples table does. A database at any
// other version is backed up and recreated empty.
const schemaVersion = 1

const (
	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS samples (
	       id          INTEGER PRIMARY KEY AUTOINCREMENT,
	       session_id  TEXT NOT NULL,
	       recorded_at INTEGER NOT NULL CHECK (typeof(recorded_at) = 'integer'),
	       t           REAL NOT NULL,
	       channel     INTEGER NOT NULL CHECK (channel >= 0),
	       value       REAL NOT NULL
	   );
	   CREATE INDEX IF NOT EXISTS samples_session ON samples (session_id, channel);`

	insertSampleSQL = `
    INSERT INTO samples (
        session_id, recorded_at, t, channel, value
    ) VALUES (?, ?, ?, ?, ?)`

	countSamplesSQL = `SELECT COUNT(*) FROM samples WHERE session_id = ?`

	hasVersionsSQL = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_versions'`
	versionSQL     = `SELECT COALESCE(MAX(version), 0) FROM schema_versions`
	addVersionSQL  = `INSERT INTO schema_versions (version, applied_at) VALUES (?, datetime('now'))`
)

// prepareSchema leaves db holding the current samples schema, keeping its rows
// when it already does.
func prepareSchema(db *sql.DB, backupDir string, log logger.Logger) error {
	errFactory := errors.New()

	version, err := storedVersion(db)
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	log.Debug().Int("version", version).Msg("Sample schema version")

	if version == schemaVersion {
		return nil
	}

	if version != 0 {
		if err := backup(db, backupDir, version, log); err != nil {
			return errFactory.Wrap(ErrSchemaMigrationFailed, err)
		}
	}

	return recreate(db, log)
}

// storedVersion returns 0 for a database that has never held a schema.
func storedVersion(db *sql.DB) (int, error) {
	var tables int
	if err := db.QueryRow(hasVersionsSQL).Scan(&tables); err != nil || tables == 0 {
		return 0, err
	}

	var version int
	err := db.QueryRow(versionSQL).Scan(&version)
	return version, err
}

func backup(db *sql.DB, dir string, version int, log logger.Logger) error {
	if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
		return err
	}

	stamp := time.Now().UTC().Format("20060102T150405.000000000Z")
	path := filepath.Join(dir, fmt.Sprintf("samples_v%d_%s.db", version, stamp))

	// VACUUM INTO cannot run inside a transaction.
	if _, err := db.Exec("VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("vacuum into %s: %w", path, err)
	}

	log.Info().Str("path", path).Int("version", version).Msg("Sample database backed up")
	return nil
}

// recreate drops the old tables and creates the current schema in one
// transaction.
func recreate(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DROP TABLE IF EXISTS samples",
		"DROP TABLE IF EXISTS schema_versions",
		createTablesSQL,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return errFactory.Wrap(ErrSchemaInitFailed, err)
		}
	}

	if _, err := tx.Exec(addVersionSQL, schemaVersion); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	log.Info().Int("version", schemaVersion).Msg("Sample schema created")
	return nil
}
