package main

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/serialplot/internal/config"
	"codeberg.org/mutker/serialplot/internal/errors"
	"codeberg.org/mutker/serialplot/internal/logger"
	"codeberg.org/mutker/serialplot/internal/pid"
	"codeberg.org/mutker/serialplot/internal/serialport"
	"codeberg.org/mutker/serialplot/internal/settings"
	"codeberg.org/mutker/serialplot/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUnplugged = stderrors.New("device unplugged")

func testApp(t *testing.T, src serialport.ByteSource) (*app, *config.Config) {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		Port:        "/dev/fake0",
		Baud:        9600,
		Interval:    0.005,
		Mode:        "lost",
		LogLevel:    "info",
		Settings:    filepath.Join(dir, "settings.log"),
		Export:      filepath.Join(dir, "samples.tsv"),
		Metrics:     true,
		MetricsDB:   filepath.Join(dir, "samples.db"),
		Telemetry:   true,
		TelemetryDB: filepath.Join(dir, "sessions.db"),
	}
	require.NoError(t, cfg.Validate())

	a, err := newApp(cfg, logger.Default())
	require.NoError(t, err)
	a.open = serialport.FakeOpener(src, nil, nil)
	a.lockDir = dir

	return a, cfg
}

func TestRunUntilSignalLost(t *testing.T) {
	src := serialport.NewFakeSource(
		[]byte("\r\n"),
		[]byte("1\r\n2\r\n\r\n"),
		[]byte("3\r\n4\r\n\r\n"),
	)
	src.ExhaustedError = errUnplugged

	a, cfg := testApp(t, src)
	cfg.Names = []string{"", "pressure", "unused"}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := a.run(ctx)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrSessionFailed))
	assert.True(t, errors.HasCode(err, errors.ErrNoSignal))
	require.NoError(t, ctx.Err(), "session should end on its own")

	lockPath := pid.Path(a.lockDir, cfg.Port)
	assert.FileExists(t, lockPath)
	require.NoError(t, a.close())
	assert.NoFileExists(t, lockPath)

	saved, ok, err := settings.Load(cfg.Settings)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, settings.Settings{Port: "/dev/fake0", Baud: 9600, Interval: 0.005, Mode: 2}, saved)

	raw, err := os.ReadFile(cfg.Export)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "t,s\t0\tpressure\t", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "\t1\t2\t"), lines[1])
	assert.True(t, strings.HasSuffix(lines[2], "\t3\t4\t"), lines[2])

	assert.True(t, src.Closed)
}

func TestRunStopsOnCancel(t *testing.T) {
	src := serialport.NewFakeSource([]byte("\r\n"), []byte("5\r\n\r\n"))
	a, cfg := testApp(t, src)
	cfg.Export = ""
	t.Cleanup(func() { a.close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.run(ctx) }()

	require.Eventually(t, func() bool {
		available, _, _ := src.Stats()
		return available >= 3
	}, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancel")
	}
	assert.True(t, src.Closed)
}

func TestRunRequiresPort(t *testing.T) {
	a, cfg := testApp(t, serialport.NewFakeSource())
	t.Cleanup(func() { a.close() })
	cfg.Port = ""

	err := a.run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrMissingConfig))
}

func TestRunRefusesHeldPort(t *testing.T) {
	a, cfg := testApp(t, serialport.NewFakeSource())
	t.Cleanup(func() { a.close() })

	// PID 1 is always alive on Linux.
	require.NoError(t, os.WriteFile(pid.Path(a.lockDir, cfg.Port), []byte("1"), 0o600))

	err := a.run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, string, []stream.Sample) error { return nil }
func (failingRecorder) Close() error {
	return errors.New().Wrap(errors.ErrCloseMetrics, errUnplugged)
}

func TestCloseKeepsEveryCode(t *testing.T) {
	a, _ := testApp(t, serialport.NewFakeSource())
	a.recorder.Close()
	a.recorder = failingRecorder{}

	err := a.close()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrShutdownFailed))
	assert.True(t, errors.HasCode(err, errors.ErrCloseMetrics))
	assert.True(t, errors.Is(err, errUnplugged))
}
