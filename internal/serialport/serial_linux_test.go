//go:build linux

package serialport_test

import (
	"io"
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/serialplot/internal/serialport"
	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openPTY(t *testing.T) (master io.Writer, src serialport.ByteSource) {
	t.Helper()

	m, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { m.Close(); slave.Close() })

	src, err = serialport.Open(slave.Name(), serialport.Options{BaudRate: 115200}, 50*time.Millisecond)
	if err != nil {
		t.Skipf("pty does not accept serial settings here: %v", err)
	}
	t.Cleanup(func() { src.Close() })

	return m, src
}

func writeString(t *testing.T, w io.Writer, s string) {
	t.Helper()
	_, err := io.WriteString(w, s)
	require.NoError(t, err)
}

func TestPortAvailableAndRead(t *testing.T) {
	master, src := openPTY(t)

	writeString(t, master, "1.5\r\n2.5\r\n")

	var got []byte
	deadline := time.Now().Add(time.Second)
	for len(got) < 10 && time.Now().Before(deadline) {
		n, err := src.Available()
		require.NoError(t, err)
		buf := make([]byte, n)
		m, err := src.Read(buf)
		require.NoError(t, err)
		got = append(got, buf[:m]...)
	}

	assert.Equal(t, "1.5\r\n2.5\r\n", string(got))
}

func TestPortAvailableDrainsBacklog(t *testing.T) {
	master, src := openPTY(t)

	payload := strings.Repeat("0123456789", 1000)
	done := make(chan error, 1)
	go func() {
		_, err := io.WriteString(master, payload)
		done <- err
	}()
	time.Sleep(200 * time.Millisecond)

	n, err := src.Available()
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)

	buf := make([]byte, n)
	m, err := src.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, payload, string(buf[:m]))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("writer still blocked after the backlog was read")
	}
}

func TestPortAvailableTimesOutEmpty(t *testing.T) {
	_, src := openPTY(t)

	start := time.Now()
	n, err := src.Available()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestPortResetInputBuffer(t *testing.T) {
	master, src := openPTY(t)

	writeString(t, master, "noise")
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, src.ResetInputBuffer())

	n, err := src.Available()
	require.NoError(t, err)
	assert.Zero(t, n)
}
