package serialport

import (
	"time"

	"codeberg.org/mutker/serialplot/internal/errors"
	"codeberg.org/mutker/serialplot/internal/logger"
	"go.bug.st/serial"
)

const (
	chunkSize = 4096

	// drainTimeout bounds each follow-up read once data has arrived. The
	// writer side refills the tty buffer as soon as it is emptied, so a
	// backlog larger than one buffer shows up within this window.
	drainTimeout = 10 * time.Millisecond

	// drainBudget caps one poll when the port has no read timeout.
	drainBudget = 100 * time.Millisecond
)

// rawPort is the subset of serial.Port a Port drives.
type rawPort interface {
	Read(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	Close() error
}

// Port adapts a go.bug.st/serial port to ByteSource.
//
// The library has no "bytes waiting" query. Available waits up to the read
// timeout for the first bytes, then keeps reading with a short timeout until
// the line goes quiet, so one poll takes in the whole backlog rather than one
// tty buffer. Read drains what Available staged. A Port is not safe for
// concurrent use.
type Port struct {
	port        rawPort
	name        string
	readTimeout time.Duration
	chunk       []byte
	staged      []byte
}

// Open opens device with the given options and read timeout. It satisfies
// Opener.
func Open(device string, opts Options, readTimeout time.Duration) (ByteSource, error) {
	errFactory := errors.New()

	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	p, err := serial.Open(device, mode)
	if err != nil {
		return nil, errFactory.WithData(ErrOpenFailed, device+": "+err.Error())
	}

	if readTimeout <= 0 {
		readTimeout = serial.NoTimeout
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		p.Close()
		return nil, errFactory.Wrap(ErrOpenFailed, err)
	}

	logger.Debug().
		Str("device", device).
		Int("baud", mode.BaudRate).
		Dur("read_timeout", readTimeout).
		Msg("Serial port opened")

	return newPort(p, device, readTimeout), nil
}

func newPort(p rawPort, name string, readTimeout time.Duration) *Port {
	return &Port{
		port:        p,
		name:        name,
		readTimeout: readTimeout,
		chunk:       make([]byte, chunkSize),
	}
}

func (p *Port) Available() (int, error) {
	if len(p.staged) > 0 {
		return len(p.staged), nil
	}

	n, err := p.fill()
	if err != nil || n == 0 {
		return 0, err
	}

	if err := p.drain(); err != nil {
		return 0, err
	}

	return len(p.staged), nil
}

// drain reads with drainTimeout until a read comes back empty or the poll
// has used up its budget, then restores the port's read timeout.
func (p *Port) drain() error {
	errFactory := errors.New()

	budget := p.readTimeout
	if budget <= 0 {
		budget = drainBudget
	}
	deadline := time.Now().Add(budget)

	if err := p.port.SetReadTimeout(drainTimeout); err != nil {
		return errFactory.Wrap(ErrReadFailed, err)
	}

	var readErr error
	for time.Now().Before(deadline) {
		n, err := p.fill()
		if err != nil {
			readErr = err
			break
		}
		if n == 0 {
			break
		}
	}

	if err := p.port.SetReadTimeout(p.readTimeout); err != nil && readErr == nil {
		readErr = errFactory.Wrap(ErrReadFailed, err)
	}
	return readErr
}

func (p *Port) fill() (int, error) {
	n, err := p.port.Read(p.chunk)
	if err != nil {
		return 0, errors.New().Wrap(ErrReadFailed, err)
	}
	p.staged = append(p.staged, p.chunk[:n]...)
	return n, nil
}

func (p *Port) Read(b []byte) (int, error) {
	n := copy(b, p.staged)
	p.staged = p.staged[n:]
	if len(p.staged) == 0 {
		p.staged = p.staged[:0:0]
	}
	return n, nil
}

func (p *Port) ResetInputBuffer() error {
	p.staged = nil
	if err := p.port.ResetInputBuffer(); err != nil {
		return errors.New().Wrap(ErrResetFailed, err)
	}
	return nil
}

func (p *Port) Close() error {
	if err := p.port.Close(); err != nil {
		return errors.New().Wrap(errors.ErrShutdownFailed, err)
	}
	logger.Debug().Str("device", p.name).Msg("Serial port closed")
	return nil
}
