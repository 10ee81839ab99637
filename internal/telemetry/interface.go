package telemetry

import (
	"context"
	"net/http"
	"time"

	"codeberg.org/mutker/serialplot/internal/stream"
)

// Collector tracks read sessions and exposes their counters.
type Collector interface {
	// Begin starts tracking a session.
	Begin(ctx context.Context, summary *SessionSummary) error
	// Observe accounts for one drained batch of a session.
	Observe(sessionID string, batch stream.Batch)
	// End closes a session with its final state and stores the summary.
	End(ctx context.Context, sessionID string, state stream.State) (*SessionSummary, error)
	// Handler serves the Prometheus metrics.
	Handler() http.Handler
	Close() error
}

// Outcome is how a session ended.
type Outcome string

const (
	OutcomeRunning Outcome = "running"
	OutcomeStopped Outcome = "stopped"
	OutcomeFailed  Outcome = "failed"
)

// SessionSummary is the stored record of one read session.
type SessionSummary struct {
	ID        string
	Device    string
	Baud      int
	Interval  float64
	Mode      stream.Mode
	StartedAt time.Time
	EndedAt   time.Time
	Passes    int
	Samples   int
	Warnings  int
	Outcome   Outcome
	LastError string
}
