package errors_test

import (
	"fmt"
	"io"
	"testing"

	"codeberg.org/mutker/serialplot/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessages(t *testing.T) {
	f := errors.New()

	assert.Equal(t, "Failed to open port", f.New(errors.ErrPortOpen).Error())
	assert.Equal(t, "No signal: EOF", f.Wrap(errors.ErrNoSignal, io.EOF).Error())
	assert.Equal(t, "custom", f.WithMessage(errors.ErrInternal, "custom").Error())
	assert.Equal(t, "Invalid baud rate: -1", f.WithData(errors.ErrInvalidBaudRate, -1).Error())
	assert.Equal(t, "unknown_code", errors.GetErrorMessage("unknown_code"))
}

func TestWithMessageKeepsOriginal(t *testing.T) {
	base := errors.New().Wrap(errors.ErrExport, io.ErrShortWrite)
	changed := base.WithMessage("disk full")

	assert.Equal(t, "Failed to export samples: short write", base.Error())
	assert.Equal(t, "disk full: short write", changed.Error())
	assert.True(t, errors.Is(changed, io.ErrShortWrite))
}

func TestWrapUnwrap(t *testing.T) {
	f := errors.New()
	err := f.Wrap(errors.ErrReadSettings, io.ErrUnexpectedEOF)

	require.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, errors.ErrReadSettings, err.Code())
}

func TestSeverity(t *testing.T) {
	f := errors.New()

	assert.Equal(t, errors.SeverityWarning, f.New(errors.ErrInvalidValue).Severity())
	assert.Equal(t, errors.SeverityFatal, f.New(errors.ErrNoSignal).Severity())
	assert.Equal(t, errors.SeverityFatal, f.Wrap(errors.ErrInvalidData, io.EOF).Severity())
	assert.Equal(t, "warning", errors.SeverityWarning.String())
	assert.Equal(t, "fatal", errors.SeverityFatal.String())
}

func TestHasCode(t *testing.T) {
	f := errors.New()
	inner := f.New(errors.ErrNoSignal)
	outer := f.Wrap(errors.ErrSessionFailed, inner)
	plain := fmt.Errorf("context: %w", outer)

	assert.True(t, errors.HasCode(plain, errors.ErrSessionFailed))
	assert.True(t, errors.HasCode(plain, errors.ErrNoSignal))
	assert.False(t, errors.HasCode(plain, errors.ErrPortOpen))
	assert.False(t, errors.HasCode(io.EOF, errors.ErrNoSignal))
	assert.False(t, errors.HasCode(nil, errors.ErrNoSignal))
}

func TestHasCodeJoined(t *testing.T) {
	f := errors.New()
	joined := f.Wrap(errors.ErrShutdownFailed, errors.Join(
		f.New(errors.ErrCloseMetrics),
		io.EOF,
		fmt.Errorf("lock: %w", f.New(errors.ErrResourceBusy)),
	))

	assert.True(t, errors.HasCode(joined, errors.ErrShutdownFailed))
	assert.True(t, errors.HasCode(joined, errors.ErrCloseMetrics))
	assert.True(t, errors.HasCode(joined, errors.ErrResourceBusy))
	assert.False(t, errors.HasCode(joined, errors.ErrExport))
	assert.True(t, errors.Is(joined, io.EOF))
}
