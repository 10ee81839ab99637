package metrics

import (
	"context"
	"time"

	"codeberg.org/mutker/serialplot/internal/stream"
)

// SampleRecorder stores the sample stream of a read session.
type SampleRecorder interface {
	Record(ctx context.Context, sessionID string, samples []stream.Sample) error
	Close() error
}

// SampleRepository defines the interface for sample storage
type SampleRepository interface {
	Record(points ...*SamplePoint) error
	Count(sessionID string) (int, error)
	Close() error
}

// SamplePoint is one channel value with the session time it was paired with.
type SamplePoint struct {
	SessionID  string
	RecordedAt time.Time
	Time       float64
	Channel    int
	Value      float64
}
