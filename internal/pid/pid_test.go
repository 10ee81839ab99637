package pid_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"codeberg.org/mutker/serialplot/internal/errors"
	"codeberg.org/mutker/serialplot/internal/pid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/run", "serialplot-dev_ttyUSB0.pid"), pid.Path("/run", "/dev/ttyUSB0"))
	assert.Equal(t, filepath.Join("/run", "serialplot-COM3.pid"), pid.Path("/run", "COM3"))
	assert.Equal(t, filepath.Join("/run", "serialplot.pid"), pid.Path("/run", ""))
}

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()

	lock, err := pid.Acquire(dir, "/dev/ttyACM0")
	require.NoError(t, err)

	raw, err := os.ReadFile(lock.Path())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(raw))

	require.NoError(t, lock.Release())
	assert.NoFileExists(t, lock.Path())
	assert.NoError(t, lock.Release(), "releasing twice is harmless")
}

func TestAcquireHeldByLiveProcess(t *testing.T) {
	dir := t.TempDir()
	path := pid.Path(dir, "/dev/ttyACM0")

	// PID 1 is always alive on Linux.
	require.NoError(t, os.WriteFile(path, []byte("1"), 0o600))

	_, err := pid.Acquire(dir, "/dev/ttyACM0")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))

	other, err := pid.Acquire(dir, "/dev/ttyACM1")
	require.NoError(t, err, "locks are per device")
	require.NoError(t, other.Release())
}

func TestAcquireReplacesStale(t *testing.T) {
	dir := t.TempDir()
	path := pid.Path(dir, "COM1")
	require.NoError(t, os.WriteFile(path, []byte("not a pid"), 0o600))

	lock, err := pid.Acquire(dir, "COM1")
	require.NoError(t, err)
	t.Cleanup(func() { lock.Release() })

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(raw))
}
