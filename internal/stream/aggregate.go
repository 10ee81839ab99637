package stream

// flush converts every non-empty pending buffer into samples under mode and
// empties it. elapsed and window are in seconds. Nothing is emitted for
// channels without pending values.
func flush(mode Mode, pending store, elapsed, window float64, emit func(Sample)) {
	switch mode {
	case ModeAll:
		flushAll(pending, elapsed, window, emit)
	case ModeLost:
		flushShared(pending, elapsed, emit, last)
	case ModeMean:
		flushShared(pending, elapsed, emit, mean)
	}
}

// flushAll spreads each channel's m values evenly over the window ending at
// elapsed+window so no value is dropped.
func flushAll(pending store, elapsed, window float64, emit func(Sample)) {
	now := elapsed + window

	for _, i := range pending.indices() {
		values := pending[i]
		m := len(values)
		if m == 0 {
			continue
		}

		for j, v := range values {
			emit(TimeSample(now - window*float64(m-j)/float64(m)))
			emit(ChannelSample(i, v))
		}
		pending[i] = values[:0]
	}
}

// flushShared emits one timestamp for the pass followed by one reduced value
// per channel.
func flushShared(pending store, elapsed float64, emit func(Sample), reduce func([]float64) float64) {
	emit(TimeSample(elapsed))

	for _, i := range pending.indices() {
		values := pending[i]
		if len(values) == 0 {
			continue
		}

		emit(ChannelSample(i, reduce(values)))
		pending[i] = values[:0]
	}
}

func last(values []float64) float64 {
	return values[len(values)-1]
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
