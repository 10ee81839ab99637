package stream

import (
	"context"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/serialplot/internal/errors"
	"codeberg.org/mutker/serialplot/internal/logger"
	"codeberg.org/mutker/serialplot/internal/serialport"
)

const (
	DefaultWarmup = 2 * time.Second
	DefaultSettle = 1 * time.Second
)

// State is the lifecycle state of a reader.
type State uint8

const (
	StateIdle State = iota
	StateRunning
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options configures one read session.
type Options struct {
	Device   string
	Serial   serialport.Options
	Interval time.Duration
	Mode     Mode
	// Warmup is waited after opening, before the input buffer is cleared, to
	// let the device finish booting. Settle is waited after clearing.
	Warmup time.Duration
	Settle time.Duration

	Open   serialport.Opener
	Now    func() time.Time
	Logger logger.Logger
}

func (o Options) withDefaults() Options {
	if o.Open == nil {
		o.Open = serialport.Open
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = logger.Default()
	}
	if o.Mode == 0 {
		o.Mode = ModeAll
	}
	return o
}

// Reader is the producer side of a session: it polls a byte source at a fixed
// interval, demultiplexes lines into channels and emits aggregated samples.
// A Reader runs once.
type Reader struct {
	opts  Options
	state State

	data   chan<- Sample
	diag   chan<- Diagnostic
	cancel <-chan bool

	src     serialport.ByteSource
	dec     decoder
	demux   *demux
	started time.Time
	buf     []byte

	passes atomic.Int64
}

// NewReader creates a reader that sends on data and diag and listens on
// cancel. A false value or a closed cancel channel stops the reader.
func NewReader(opts Options, data chan<- Sample, diag chan<- Diagnostic, cancel <-chan bool) *Reader {
	return &Reader{
		opts:   opts.withDefaults(),
		data:   data,
		diag:   diag,
		cancel: cancel,
	}
}

// State returns the reader's state. Only meaningful from the goroutine that
// called Run or after Run returned.
func (r *Reader) State() State {
	return r.state
}

// Passes returns the number of flushes whose samples have all been sent.
// Safe to call from any goroutine.
func (r *Reader) Passes() int {
	return int(r.passes.Load())
}

// Run opens the source and polls it until cancelled, ctx is done, or a fatal
// condition occurs. It closes data and diag before returning and reports the
// terminal state.
func (r *Reader) Run(ctx context.Context) State {
	defer close(r.data)
	defer close(r.diag)

	log := r.opts.Logger
	interval := r.opts.Interval

	src, err := r.opts.Open(r.opts.Device, r.opts.Serial, interval/2)
	if err != nil {
		r.fail(ctx, coded(errors.ErrPortOpen, err))
		return r.state
	}
	r.src = src
	defer func() {
		if err := src.Close(); err != nil {
			log.Debug().Err(err).Msg("Failed to close serial port")
		}
	}()

	r.state = StateRunning
	log.Debug().
		Str("device", r.opts.Device).
		Dur("interval", interval).
		Str("mode", r.opts.Mode.String()).
		Msg("Reader started")

	if !r.sleep(ctx, r.opts.Warmup) {
		return r.stop("context done during warm-up")
	}
	if err := src.ResetInputBuffer(); err != nil {
		log.Debug().Err(err).Msg("Failed to clear input buffer")
	}
	if !r.sleep(ctx, r.opts.Settle) {
		return r.stop("context done while settling")
	}
	if r.cancelled() {
		return r.stop("cancelled")
	}

	r.dec.reset()
	r.demux = newDemux()
	r.started = r.opts.Now()

	for {
		if !r.poll(ctx) {
			return r.state
		}
		if r.cancelled() {
			return r.stop("cancelled")
		}
		if !r.sleep(ctx, interval) {
			return r.stop("context done")
		}
	}
}

// poll runs one read/decode/demux/flush pass. It returns false when the
// session has ended.
func (r *Reader) poll(ctx context.Context) bool {
	n, err := r.src.Available()
	if err != nil {
		r.fail(ctx, coded(errors.ErrNoSignal, err))
		return false
	}

	if cap(r.buf) < n {
		r.buf = make([]byte, n)
	}
	buf := r.buf[:n]
	if n > 0 {
		m, err := r.src.Read(buf)
		if err != nil {
			r.fail(ctx, coded(errors.ErrNoSignal, err))
			return false
		}
		buf = buf[:m]
	}

	lines, err := r.dec.feed(buf)
	if err != nil {
		r.fail(ctx, coded(errors.ErrInvalidData, err))
		return false
	}

	for _, line := range lines {
		if err := r.demux.push(line); err != nil {
			appErr := coded(errors.ErrInvalidValue, err)
			r.opts.Logger.Coded(appErr).Str("line", line).Msg("Dropped line")
			if !r.sendDiag(ctx, diagnose(appErr)) {
				r.state = StateStopped
				return false
			}
		}
	}

	if len(lines) == 0 || len(r.demux.pending) == 0 {
		return true
	}

	ok := true
	flush(r.opts.Mode, r.demux.pending, r.elapsed(), r.opts.Interval.Seconds(), func(s Sample) {
		if ok {
			ok = r.send(ctx, s)
		}
	})
	if !ok {
		r.state = StateStopped
		return false
	}

	r.passes.Add(1)
	return true
}

// elapsed returns seconds since polling started, at millisecond resolution.
func (r *Reader) elapsed() float64 {
	return float64(r.opts.Now().Sub(r.started).Milliseconds()) / 1000
}

func (r *Reader) cancelled() bool {
	for {
		select {
		case v, ok := <-r.cancel:
			if !ok || !v {
				return true
			}
		default:
			return false
		}
	}
}

func (r *Reader) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (r *Reader) send(ctx context.Context, s Sample) bool {
	select {
	case r.data <- s:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *Reader) sendDiag(ctx context.Context, d Diagnostic) bool {
	select {
	case r.diag <- d:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *Reader) fail(ctx context.Context, err errors.Error) {
	r.state = StateFailed
	r.opts.Logger.Coded(err).Str("device", r.opts.Device).Msg("Read session failed")
	r.sendDiag(ctx, diagnose(err))
}

// coded returns err as a coded error, wrapping it in code unless it already
// carries that code.
func coded(code errors.ErrorCode, err error) errors.Error {
	var appErr errors.Error
	if errors.As(err, &appErr) && appErr.Code() == code {
		return appErr
	}
	return errors.New().Wrap(code, err)
}

func (r *Reader) stop(reason string) State {
	r.state = StateStopped
	r.opts.Logger.Debug().Str("device", r.opts.Device).Str("reason", reason).Msg("Reader stopped")
	return r.state
}
