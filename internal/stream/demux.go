package stream

import (
	"sort"
	"strconv"

	"codeberg.org/mutker/serialplot/internal/errors"
)

// store holds values received since the last flush, keyed by channel index.
// The channel count is not known up front; a channel appears the first time a
// cycle reaches it and is never removed, only emptied.
type store map[int][]float64

// indices returns the known channel indices in ascending order.
func (s store) indices() []int {
	idx := make([]int, 0, len(s))
	for i := range s {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// demux assigns lines to channels by their position within a cycle.
type demux struct {
	index   int
	pending store
}

func newDemux() *demux {
	return &demux{pending: make(store)}
}

// push consumes one line. A blank line ends the cycle. A line that is not a
// number is dropped without advancing the index and reported as an error.
// Magnitudes beyond float64 are kept as ±Inf.
func (d *demux) push(line string) error {
	if line == "" {
		d.index = 0
		return nil
	}

	v, err := strconv.ParseFloat(line, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return errors.New().Wrap(errors.ErrInvalidValue, err)
	}

	d.pending[d.index] = append(d.pending[d.index], v)
	d.index++

	return nil
}
