package metrics

import (
	"ferryhq/ferry/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// StreamMetrics tracks relayed streams.
type StreamMetrics struct {
	chunksTotal       prometheus.Counter
	terminationsTotal *prometheus.CounterVec
}

// NewStreamMetrics creates and registers stream metrics.
func NewStreamMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *StreamMetrics {
	sm := &StreamMetrics{
		chunksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "stream_chunks_total",
				Help:      "Total number of SSE chunks written to clients",
			},
		),

		terminationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "stream_terminations_total",
				Help:      "Stream endings by reason",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(sm.chunksTotal, sm.terminationsTotal)
	return sm
}

// RecordChunk counts one written chunk.
func (sm *StreamMetrics) RecordChunk() {
	sm.chunksTotal.Inc()
}

// RecordTermination counts one stream ending.
func (sm *StreamMetrics) RecordTermination(reason string) {
	sm.terminationsTotal.WithLabelValues(reason).Inc()
}
