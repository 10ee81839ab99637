package serialport

import (
	"bytes"
	stderrors "errors"
	"sync"
	"time"
)

var errPortClosed = stderrors.New("serial port closed")

// FakeSource implements ByteSource in memory with configurable behaviour for
// testing. Data is released either directly via AddReadData or one scripted
// chunk per Available call.
type FakeSource struct {
	mu sync.Mutex

	buf    bytes.Buffer
	script [][]byte

	// AvailableError is returned by every Available call once set.
	AvailableError error

	// ExhaustedError, when set, is returned by Available once every scripted
	// chunk has been released and read.
	ExhaustedError error

	// ResetCalls records the number of ResetInputBuffer calls.
	ResetCalls int

	// AvailableCalls records the number of Available calls.
	AvailableCalls int

	// ReadCalls records the number of Read calls.
	ReadCalls int

	// Closed indicates whether Close was called.
	Closed bool
}

// NewFakeSource creates a FakeSource that releases one chunk per poll.
func NewFakeSource(chunks ...[]byte) *FakeSource {
	return &FakeSource{script: chunks}
}

// AddReadData makes data available immediately.
func (f *FakeSource) AddReadData(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buf.Write(data)
}

// Stats returns the call counters under the lock.
func (f *FakeSource) Stats() (available, reads, resets int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.AvailableCalls, f.ReadCalls, f.ResetCalls
}

func (f *FakeSource) Available() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.AvailableCalls++
	if f.Closed {
		return 0, errPortClosed
	}
	if f.AvailableError != nil {
		return 0, f.AvailableError
	}
	if len(f.script) > 0 {
		f.buf.Write(f.script[0])
		f.script = f.script[1:]
	} else if f.ExhaustedError != nil && f.buf.Len() == 0 {
		return 0, f.ExhaustedError
	}
	return f.buf.Len(), nil
}

func (f *FakeSource) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ReadCalls++
	if f.Closed {
		return 0, errPortClosed
	}
	if f.buf.Len() == 0 {
		return 0, nil
	}
	return f.buf.Read(p)
}

func (f *FakeSource) ResetInputBuffer() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ResetCalls++
	f.buf.Reset()
	return nil
}

func (f *FakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Closed = true
	return nil
}

// FakeOpener returns an Opener that hands out src, or fails with err when err
// is non-nil. Each call is recorded in calls when it is not nil.
func FakeOpener(src ByteSource, err error, calls *[]OpenCall) Opener {
	var mu sync.Mutex
	return func(device string, opts Options, readTimeout time.Duration) (ByteSource, error) {
		if calls != nil {
			mu.Lock()
			*calls = append(*calls, OpenCall{Device: device, Options: opts, ReadTimeout: readTimeout})
			mu.Unlock()
		}
		if err != nil {
			return nil, err
		}
		return src, nil
	}
}

// OpenCall records the arguments of one Opener invocation.
type OpenCall struct {
	Device      string
	Options     Options
	ReadTimeout time.Duration
}
