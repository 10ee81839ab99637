package stream

import (
	"context"
	"strconv"
	"testing"
	"time"

	"codeberg.org/mutker/serialplot/internal/errors"
	"codeberg.org/mutker/serialplot/internal/serialport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drainUntil(t *testing.T, s *Session, cond func([]Sample, []Diagnostic) bool) ([]Sample, []Diagnostic) {
	t.Helper()

	var samples []Sample
	var diags []Diagnostic
	require.Eventually(t, func() bool {
		b := s.Drain()
		samples = append(samples, b.Samples...)
		diags = append(diags, b.Diagnostics...)
		return cond(samples, diags)
	}, 2*time.Second, testInterval)

	return samples, diags
}

func TestSessionDeliversSamples(t *testing.T) {
	src := serialport.NewFakeSource([]byte("\r\n"), []byte("1\r\n2\r\n\r\n"))
	s := Start(context.Background(), testOptions(serialport.FakeOpener(src, nil, nil), ModeLost))
	t.Cleanup(s.Close)

	require.NotEmpty(t, s.ID)
	assert.True(t, s.Running())

	samples, _ := drainUntil(t, s, func(sm []Sample, _ []Diagnostic) bool { return len(sm) >= 3 })
	assert.Equal(t, []Sample{TimeSample(0), ChannelSample(0, 1), ChannelSample(1, 2)}, samples[:3])
	assert.True(t, s.Running())

	s.Stop()
	assert.False(t, s.Running())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	state, err := s.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateStopped, state)
}

func TestSessionFatalStopsRunning(t *testing.T) {
	s := Start(context.Background(), testOptions(serialport.FakeOpener(nil, errUnplugged, nil), ModeAll))
	t.Cleanup(s.Close)

	samples, diags := drainUntil(t, s, func(_ []Sample, dg []Diagnostic) bool { return len(dg) > 0 })

	assert.Empty(t, samples)
	require.Len(t, diags, 1)
	assert.Equal(t, "Failed to open port", diags[0].Message)
	assert.False(t, s.Running())
}

func TestSessionWarningKeepsRunning(t *testing.T) {
	src := serialport.NewFakeSource([]byte("\r\n"), []byte("nan?\r\n"))
	s := Start(context.Background(), testOptions(serialport.FakeOpener(src, nil, nil), ModeAll))
	t.Cleanup(s.Close)

	_, diags := drainUntil(t, s, func(_ []Sample, dg []Diagnostic) bool { return len(dg) > 0 })

	require.Len(t, diags, 1)
	assert.True(t, diags[0].IsWarning())
	assert.True(t, s.Running())
}

func TestSessionDrainAfterExit(t *testing.T) {
	src := serialport.NewFakeSource()
	src.ExhaustedError = errUnplugged
	s := Start(context.Background(), testOptions(serialport.FakeOpener(src, nil, nil), ModeAll))
	t.Cleanup(s.Close)

	<-s.Done()
	b := s.Drain()
	require.Len(t, b.Diagnostics, 1)
	assert.False(t, s.Running())

	b = s.Drain()
	assert.True(t, b.Empty())
}

func TestSessionCountsPassesNotTimeSamples(t *testing.T) {
	src := serialport.NewFakeSource(
		[]byte("\r\n"),
		[]byte("1\r\n2\r\n\r\n3\r\n4\r\n\r\n"),
		[]byte("5\r\n6\r\n\r\n"),
	)
	src.ExhaustedError = errUnplugged
	s := Start(context.Background(), testOptions(serialport.FakeOpener(src, nil, nil), ModeAll))
	t.Cleanup(s.Close)

	<-s.Done()
	b := s.Drain()

	times := 0
	for _, sm := range b.Samples {
		if sm.Kind == SampleTime {
			times++
		}
	}
	assert.Equal(t, 6, times)
	assert.Equal(t, 2, b.Passes)
	assert.Zero(t, s.Drain().Passes)
}

func TestManagerReplacesSession(t *testing.T) {
	var m Manager
	assert.Nil(t, m.Current())

	first := m.Start(context.Background(), testOptions(serialport.FakeOpener(serialport.NewFakeSource(), nil, nil), ModeAll))
	second := m.Start(context.Background(), testOptions(serialport.FakeOpener(serialport.NewFakeSource(), nil, nil), ModeAll))
	t.Cleanup(second.Close)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Same(t, second, m.Current())
	assert.False(t, first.Running())

	select {
	case <-first.Done():
	case <-time.After(time.Second):
		t.Fatal("previous session was not shut down")
	}

	m.Stop()
	assert.False(t, second.Running())
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"all": ModeAll, "1": ModeAll, "Lost": ModeLost, "2": ModeLost, " mean ": ModeMean, "3": ModeMean} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMode("median")
	require.Error(t, err)
	assert.Equal(t, "lost", ModeLost.String())
	assert.False(t, Mode(0).Valid())
}

func TestDiagnosticWarningMarker(t *testing.T) {
	assert.True(t, Diagnostic{Message: "Warning! something"}.IsWarning())
	assert.False(t, Diagnostic{Message: "No signal"}.IsWarning())
	assert.False(t, Diagnostic{Level: LevelFatal, Message: "Warning! but fatal"}.IsWarning())
}

func TestDiagnoseUsesErrorSeverity(t *testing.T) {
	f := errors.New()

	w := diagnose(f.Wrap(errors.ErrInvalidValue, strconv.ErrSyntax))
	assert.Equal(t, LevelWarning, w.Level)
	assert.Equal(t, "Warning! Incorrect received data", w.Message)
	assert.True(t, w.IsWarning())

	d := diagnose(f.New(errors.ErrNoSignal))
	assert.Equal(t, LevelFatal, d.Level)
	assert.Equal(t, "No signal", d.Message)
	assert.Equal(t, errors.ErrNoSignal, d.Code())
	assert.False(t, d.IsWarning())
}
