package logger

import "codeberg.org/mutker/serialplot/internal/errors"

// Logger defines the interface for logging operations.
type Logger interface {
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
	Coded(err errors.Error) *LogEvent
}
