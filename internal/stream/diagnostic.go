package stream

import (
	"strings"

	"codeberg.org/mutker/serialplot/internal/errors"
)

// WarningMarker prefixes every non-fatal diagnostic message.
const WarningMarker = "Warning!"

// Level partitions diagnostics into recoverable and session-ending. It is the
// severity of the error behind the diagnostic.
type Level = errors.Severity

const (
	LevelWarning = errors.SeverityWarning
	LevelFatal   = errors.SeverityFatal
)

// Diagnostic is a message on the diagnostics channel. Message carries the
// user-facing text; Err carries the coded error behind it.
type Diagnostic struct {
	Level   Level
	Message string
	Err     errors.Error
}

func (d Diagnostic) Error() string {
	return d.Message
}

func (d Diagnostic) Unwrap() error {
	if d.Err == nil {
		return nil
	}
	return d.Err
}

// IsWarning reports whether the session survives this diagnostic. Messages
// carrying WarningMarker count as warnings even without a level, so plain-text
// consumers keep the same partition.
func (d Diagnostic) IsWarning() bool {
	return d.Level == LevelWarning || (d.Level == 0 && strings.Contains(d.Message, WarningMarker))
}

// Code returns the error code behind the diagnostic.
func (d Diagnostic) Code() errors.ErrorCode {
	if d.Err == nil {
		return errors.ErrInternal
	}
	return d.Err.Code()
}

// diagnose builds the diagnostic reporting err, at err's severity.
func diagnose(err errors.Error) Diagnostic {
	return Diagnostic{
		Level:   err.Severity(),
		Message: errors.GetErrorMessage(err.Code()),
		Err:     err,
	}
}
