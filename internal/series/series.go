// Package series rebuilds per-channel time series from a sample stream.
package series

import (
	"sort"
	"strconv"
	"sync"

	"codeberg.org/mutker/serialplot/internal/stream"
)

// Point is one value of a channel at a time in seconds since session start.
type Point struct {
	T float64
	V float64
}

// Channel is the series of one input channel.
type Channel struct {
	Index  int
	Name   string
	Points []Point
}

func (c *Channel) Len() int {
	return len(c.Points)
}

// Set holds every channel seen so far.
type Set struct {
	mu       sync.RWMutex
	channels map[int]*Channel
}

func NewSet() *Set {
	return &Set{channels: make(map[int]*Channel)}
}

// Channels returns copies of the channels ordered by index.
func (s *Set) Channels() []Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Channel, 0, len(s.channels))
	for _, idx := range s.indices() {
		c := s.channels[idx]
		out = append(out, Channel{
			Index:  c.Index,
			Name:   c.Name,
			Points: append([]Point(nil), c.Points...),
		})
	}
	return out
}

// Len returns the number of channels.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.channels)
}

// Rename sets the display name of channel idx. Unknown channels are ignored.
func (s *Set) Rename(idx int, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.channels[idx]; ok {
		c.Name = name
	}
}

func (s *Set) add(idx int, p Point) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.channels[idx]
	if !ok {
		c = &Channel{Index: idx, Name: strconv.Itoa(idx)}
		s.channels[idx] = c
	}
	c.Points = append(c.Points, p)
}

// indices must be called with the lock held.
func (s *Set) indices() []int {
	idx := make([]int, 0, len(s.channels))
	for i := range s.channels {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// Assembler pairs each channel sample with the most recent time sample.
type Assembler struct {
	set *Set
	now float64
}

func NewAssembler(set *Set) *Assembler {
	return &Assembler{set: set}
}

// Add consumes samples in stream order and returns the number of points added.
func (a *Assembler) Add(samples ...stream.Sample) int {
	added := 0
	for _, s := range samples {
		switch s.Kind {
		case stream.SampleTime:
			a.now = s.Value
		case stream.SampleChannel:
			a.set.add(s.Channel, Point{T: a.now, V: s.Value})
			added++
		}
	}
	return added
}
