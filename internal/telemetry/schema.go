package telemetry

import (
	"database/sql"

	"codeberg.org/mutker/serialplot/internal/errors"
)

const createSessionsSQL = `
        CREATE TABLE IF NOT EXISTS sessions (
            id          TEXT PRIMARY KEY,
            device      TEXT NOT NULL,
            baud        INTEGER NOT NULL,
            interval_s  REAL NOT NULL,
            mode        INTEGER NOT NULL CHECK (mode IN (1, 2, 3)),
            started_at  INTEGER NOT NULL,
            ended_at    INTEGER,
            passes      INTEGER NOT NULL DEFAULT 0,
            samples     INTEGER NOT NULL DEFAULT 0,
            warnings    INTEGER NOT NULL DEFAULT 0,
            outcome     TEXT NOT NULL,
            last_error  TEXT NOT NULL DEFAULT ''
        )`

// initSchema initializes the database schema for session summaries
func initSchema(db *sql.DB) error {
	if _, err := db.Exec(createSessionsSQL); err != nil {
		return errors.New().Wrap(ErrSchemaInitFailed, err)
	}

	return nil
}
