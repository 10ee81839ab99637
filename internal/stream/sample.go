package stream

import (
	"fmt"
	"strconv"
	"strings"

	"codeberg.org/mutker/serialplot/internal/errors"
)

// SampleKind tags a Sample.
type SampleKind uint8

const (
	// SampleTime sets the timestamp for the Channel samples that follow it.
	SampleTime SampleKind = iota
	// SampleChannel carries one value for one channel.
	SampleChannel
)

// Sample is one element of the outgoing stream. A SampleTime value applies to
// every SampleChannel value after it up to the next SampleTime.
type Sample struct {
	Kind    SampleKind
	Channel int
	Value   float64
}

// TimeSample returns a SampleTime carrying seconds since the session started.
func TimeSample(seconds float64) Sample {
	return Sample{Kind: SampleTime, Value: seconds}
}

// ChannelSample returns a SampleChannel for channel index.
func ChannelSample(index int, value float64) Sample {
	return Sample{Kind: SampleChannel, Channel: index, Value: value}
}

func (s Sample) String() string {
	if s.Kind == SampleTime {
		return fmt.Sprintf("t=%g", s.Value)
	}
	return fmt.Sprintf("y%d=%g", s.Channel, s.Value)
}

// Mode selects how pending channel values are turned into samples on flush.
type Mode uint8

const (
	// ModeAll emits every pending value, back-dated evenly across the window.
	ModeAll Mode = iota + 1
	// ModeLost emits only the newest pending value per channel.
	ModeLost
	// ModeMean emits the arithmetic mean of the pending values per channel.
	ModeMean
)

func (m Mode) String() string {
	switch m {
	case ModeAll:
		return "all"
	case ModeLost:
		return "lost"
	case ModeMean:
		return "mean"
	default:
		return "mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m >= ModeAll && m <= ModeMean
}

// ParseMode accepts a mode name or the numeric selector used by the settings
// file (1 all, 2 lost, 3 mean).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all", "1":
		return ModeAll, nil
	case "lost", "2":
		return ModeLost, nil
	case "mean", "3":
		return ModeMean, nil
	default:
		return 0, errors.New().WithData(errors.ErrInvalidMode, s)
	}
}
