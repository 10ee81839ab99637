package telemetry

import "codeberg.org/mutker/serialplot/internal/errors"

const (
	defaultDirPerm = 0o755
	defaultDBPath  = "/var/lib/serialplot/sessions.db"
)

type Config struct {
	DBPath string
	// Enabled turns on the session database. Prometheus counters are kept
	// either way.
	Enabled bool
}

func DefaultConfig() Config {
	return Config{
		DBPath: defaultDBPath,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.Enabled && c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	return nil
}
