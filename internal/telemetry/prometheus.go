package telemetry

import (
	"net/http"

	"codeberg.org/mutker/serialplot/internal/stream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "serialplot"

// streamMetrics holds the Prometheus collectors for read sessions.
type streamMetrics struct {
	registry *prometheus.Registry

	samples     *prometheus.CounterVec // By kind (time/channel)
	passes      prometheus.Counter
	warnings    prometheus.Counter
	fatals      *prometheus.CounterVec // By error code
	sessions    *prometheus.CounterVec // By outcome
	running     prometheus.Gauge
	lastChannel *prometheus.GaugeVec // By channel index
}

func newStreamMetrics() *streamMetrics {
	m := &streamMetrics{
		registry: prometheus.NewRegistry(),

		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "samples_total",
			Help:      "Total number of samples emitted by the reader",
		}, []string{"kind"}),

		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "passes_total",
			Help:      "Total number of flushes that emitted data",
		}),

		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "warnings_total",
			Help:      "Total number of lines that could not be parsed as numbers",
		}),

		fatals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "fatal_total",
			Help:      "Total number of sessions ended by a fatal error",
		}, []string{"code"}),

		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "ended_total",
			Help:      "Total number of finished read sessions",
		}, []string{"outcome"}),

		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "running",
			Help:      "Number of read sessions currently running",
		}),

		lastChannel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "channel_value",
			Help:      "Most recent value emitted per channel",
		}, []string{"channel"}),
	}

	m.registry.MustRegister(
		m.samples,
		m.passes,
		m.warnings,
		m.fatals,
		m.sessions,
		m.running,
		m.lastChannel,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// observe accounts for one drained batch and returns its channel sample count.
func (m *streamMetrics) observe(batch stream.Batch) int {
	times, values := 0, 0
	for _, s := range batch.Samples {
		switch s.Kind {
		case stream.SampleTime:
			times++
		case stream.SampleChannel:
			values++
			m.lastChannel.WithLabelValues(channelLabel(s.Channel)).Set(s.Value)
		}
	}

	m.samples.WithLabelValues("time").Add(float64(times))
	m.samples.WithLabelValues("channel").Add(float64(values))
	m.passes.Add(float64(batch.Passes))

	for _, d := range batch.Diagnostics {
		if d.IsWarning() {
			m.warnings.Inc()
			continue
		}
		m.fatals.WithLabelValues(string(d.Code())).Inc()
	}

	return values
}

func (m *streamMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
