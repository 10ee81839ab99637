package stream

import (
	"context"

	"github.com/google/uuid"
)

const (
	dataBuffer = 1 << 14
	diagBuffer = 64
)

// Batch is what one Drain collected. Passes counts the reader flushes whose
// samples are all in Samples or in an earlier batch.
type Batch struct {
	Samples     []Sample
	Diagnostics []Diagnostic
	Passes      int
}

// Empty reports whether the batch carries nothing.
func (b Batch) Empty() bool {
	return len(b.Samples) == 0 && len(b.Diagnostics) == 0 && b.Passes == 0
}

// Session is the consumer side of one read session. It owns the receiving
// ends of the data and diagnostics channels and the sending end of the cancel
// channel. A Session must only be used from one goroutine.
type Session struct {
	ID   string
	Opts Options

	data   <-chan Sample
	diag   <-chan Diagnostic
	cancel chan<- bool

	reader  *Reader
	passes  int
	abort   context.CancelFunc
	done    chan struct{}
	state   State
	running bool

	dataClosed bool
	diagClosed bool
}

// Start spawns a reader with fresh channels and returns its session.
func Start(ctx context.Context, opts Options) *Session {
	data := make(chan Sample, dataBuffer)
	diag := make(chan Diagnostic, diagBuffer)
	cancel := make(chan bool, 1)

	ctx, abort := context.WithCancel(ctx)
	reader := NewReader(opts, data, diag, cancel)
	s := &Session{
		ID:      uuid.NewString(),
		Opts:    opts.withDefaults(),
		data:    data,
		diag:    diag,
		cancel:  cancel,
		reader:  reader,
		abort:   abort,
		done:    make(chan struct{}),
		running: true,
	}

	go func() {
		defer close(s.done)
		s.state = reader.Run(ctx)
	}()

	s.Opts.Logger.Info().
		Str("session", s.ID).
		Str("device", opts.Device).
		Str("mode", s.Opts.Mode.String()).
		Dur("interval", opts.Interval).
		Msg("Session started")

	return s
}

// Drain returns everything queued right now without blocking. A fatal
// diagnostic, or the reader exiting, marks the session as no longer running.
func (s *Session) Drain() Batch {
	var samples []Sample
	var diags []Diagnostic

	// Read before the data channel so every counted pass is already queued.
	passes := s.reader.Passes()

drainDiag:
	for !s.diagClosed {
		select {
		case d, ok := <-s.diag:
			if !ok {
				s.diagClosed = true
				break drainDiag
			}
			diags = append(diags, d)
			if !d.IsWarning() {
				s.running = false
			}
		default:
			break drainDiag
		}
	}

drainData:
	for !s.dataClosed {
		select {
		case v, ok := <-s.data:
			if !ok {
				s.dataClosed = true
				break drainData
			}
			samples = append(samples, v)
		default:
			break drainData
		}
	}

	if s.dataClosed && s.diagClosed {
		s.running = false
	}

	b := Batch{Samples: samples, Diagnostics: diags, Passes: passes - s.passes}
	s.passes = passes
	return b
}

// Running reports whether the consumer should still treat the session as
// live.
func (s *Session) Running() bool {
	return s.running
}

// Stop asks the reader to stop after its current poll. It does not wait.
func (s *Session) Stop() {
	select {
	case s.cancel <- false:
	default:
	}
	s.running = false
}

// Close stops the reader and unblocks it if it is waiting to send, dropping
// anything still queued.
func (s *Session) Close() {
	s.Stop()
	s.abort()
}

// Done is closed once the reader goroutine has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the reader exits or ctx is done, and returns the reader's
// final state.
func (s *Session) Wait(ctx context.Context) (State, error) {
	select {
	case <-s.done:
		return s.state, nil
	case <-ctx.Done():
		return StateRunning, ctx.Err()
	}
}

// Manager keeps at most one live session. Starting a session closes the
// previous one so its late messages can never be read as the new session's.
type Manager struct {
	current *Session
}

// Start replaces the current session with a new one.
func (m *Manager) Start(ctx context.Context, opts Options) *Session {
	if m.current != nil {
		m.current.Close()
	}
	m.current = Start(ctx, opts)
	return m.current
}

// Current returns the live session, or nil.
func (m *Manager) Current() *Session {
	return m.current
}

// Stop stops the current session, if any.
func (m *Manager) Stop() {
	if m.current != nil {
		m.current.Stop()
	}
}
