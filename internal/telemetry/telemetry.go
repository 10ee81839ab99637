package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"codeberg.org/mutker/serialplot/internal/errors"
	"codeberg.org/mutker/serialplot/internal/logger"
	"codeberg.org/mutker/serialplot/internal/stream"
)

type service struct {
	repo    Repository
	cfg     Config
	logger  logger.Logger
	metrics *streamMetrics
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*SessionSummary
}

// NewService returns a Collector. Summaries are only stored when cfg.Enabled
// is set.
func NewService(cfg Config, log logger.Logger) (Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	var repo Repository
	if cfg.Enabled {
		var err error
		repo, err = NewRepository(cfg, log)
		if err != nil {
			return nil, err
		}
	}

	return newService(repo, cfg, log), nil
}

func newService(repo Repository, cfg Config, log logger.Logger) *service {
	return &service{
		repo:     repo,
		cfg:      cfg,
		logger:   log,
		metrics:  newStreamMetrics(),
		now:      time.Now,
		sessions: make(map[string]*SessionSummary),
	}
}

func (s *service) Begin(ctx context.Context, summary *SessionSummary) error {
	errFactory := errors.New()

	if summary == nil || summary.ID == "" {
		return errFactory.New(ErrInvalidSession)
	}

	tracked := *summary
	if tracked.StartedAt.IsZero() {
		tracked.StartedAt = s.now()
	}
	tracked.Outcome = OutcomeRunning

	s.mu.Lock()
	s.sessions[tracked.ID] = &tracked
	s.mu.Unlock()

	s.metrics.running.Inc()

	return s.store(ctx, &tracked)
}

func (s *service) Observe(sessionID string, batch stream.Batch) {
	values := s.metrics.observe(batch)

	s.mu.Lock()
	defer s.mu.Unlock()

	summary, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	summary.Passes += batch.Passes
	summary.Samples += values
	for _, d := range batch.Diagnostics {
		if d.IsWarning() {
			summary.Warnings++
		} else {
			summary.LastError = d.Message
		}
	}
}

func (s *service) End(ctx context.Context, sessionID string, state stream.State) (*SessionSummary, error) {
	s.mu.Lock()
	summary, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return nil, errors.New().WithData(ErrUnknownSession, sessionID)
	}

	summary.EndedAt = s.now()
	summary.Outcome = OutcomeStopped
	if state == stream.StateFailed {
		summary.Outcome = OutcomeFailed
	}

	s.metrics.running.Dec()
	s.metrics.sessions.WithLabelValues(string(summary.Outcome)).Inc()

	s.logger.Info().
		Str("session", summary.ID).
		Str("outcome", string(summary.Outcome)).
		Int("passes", summary.Passes).
		Int("samples", summary.Samples).
		Int("warnings", summary.Warnings).
		Dur("duration", summary.EndedAt.Sub(summary.StartedAt)).
		Msg("Session ended")

	return summary, s.store(ctx, summary)
}

func (s *service) store(ctx context.Context, summary *SessionSummary) error {
	if s.repo == nil {
		return nil
	}

	errFactory := errors.New()

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
	}

	if err := s.repo.Store(ctx, summary); err != nil {
		return errFactory.Wrap(ErrSessionCollection, err)
	}
	return nil
}

func (s *service) Handler() http.Handler {
	return s.metrics.handler()
}

func (s *service) Close() error {
	if s.repo == nil {
		return nil
	}

	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(ErrServiceShutdown, err)
	}
	return nil
}

func channelLabel(idx int) string {
	return strconv.Itoa(idx)
}
