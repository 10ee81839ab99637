package metrics

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/serialplot/internal/errors"
	"codeberg.org/mutker/serialplot/internal/logger"
	"codeberg.org/mutker/serialplot/internal/stream"
)

type service struct {
	repo   SampleRepository
	cfg    Config
	logger logger.Logger

	mu       sync.Mutex
	lastTime map[string]float64
	now      func() time.Time
}

// No-op implementation
type noopSampleRecorder struct{}

func NewService(cfg Config, log logger.Logger) (SampleRecorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	// If recording is disabled, return a no-op recorder
	if !cfg.Enabled {
		log.Debug().Msg("Sample recording disabled, using no-op recorder")
		return &noopSampleRecorder{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create sample repository")
		return nil, err
	}

	log.Debug().
		Str("db_path", cfg.DBPath).
		Bool("enabled", cfg.Enabled).
		Msg("Sample recorder initialized successfully")

	return newService(repo, cfg, log), nil
}

func newService(repo SampleRepository, cfg Config, log logger.Logger) *service {
	return &service{
		repo:     repo,
		cfg:      cfg,
		logger:   log,
		lastTime: make(map[string]float64),
		now:      time.Now,
	}
}

// Record pairs each channel sample with the latest time sample of the same
// session, carrying the time across calls, and stores the result.
func (s *service) Record(ctx context.Context, sessionID string, samples []stream.Sample) error {
	errFactory := errors.New()

	if sessionID == "" {
		return errFactory.WithMessage(ErrInvalidSamples, "missing session id")
	}
	if len(samples) == 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
	}

	s.mu.Lock()
	t := s.lastTime[sessionID]
	recordedAt := s.now()
	points := make([]*SamplePoint, 0, len(samples))
	for _, sample := range samples {
		switch sample.Kind {
		case stream.SampleTime:
			t = sample.Value
		case stream.SampleChannel:
			points = append(points, &SamplePoint{
				SessionID:  sessionID,
				RecordedAt: recordedAt,
				Time:       t,
				Channel:    sample.Channel,
				Value:      sample.Value,
			})
		}
	}
	s.lastTime[sessionID] = t
	s.mu.Unlock()

	if len(points) == 0 {
		return nil
	}

	if err := s.repo.Record(points...); err != nil {
		return errFactory.Wrap(ErrSampleCollection, err)
	}

	return nil
}

func (s *service) Close() error {
	errFactory := errors.New()

	if err := s.repo.Close(); err != nil {
		return errFactory.Wrap(ErrServiceShutdown, err)
	}
	return nil
}

// No-op implementation
func (*noopSampleRecorder) Record(_ context.Context, _ string, _ []stream.Sample) error {
	return nil
}

func (*noopSampleRecorder) Close() error {
	return nil
}
