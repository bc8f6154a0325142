package metrics

import (
	"time"

	"ferryhq/ferry/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// BackendMetrics tracks outbound backend calls and backend reachability.
type BackendMetrics struct {
	callsTotal   *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	up           prometheus.Gauge
}

// NewBackendMetrics creates and registers backend metrics.
func NewBackendMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *BackendMetrics {
	bm := &BackendMetrics{
		callsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "backend_calls_total",
				Help:      "Total number of backend calls by step and outcome",
			},
			[]string{"step", "outcome"},
		),

		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "backend_call_duration_seconds",
				Help:      "Duration of backend calls in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"step"},
		),

		up: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "backend_up",
				Help:      "Whether the last readiness probe reached the backend (1=up, 0=down)",
			},
		),
	}

	registry.MustRegister(bm.callsTotal, bm.callDuration, bm.up)
	return bm
}

// RecordCall records one backend call.
func (bm *BackendMetrics) RecordCall(step, outcome string, d time.Duration) {
	bm.callsTotal.WithLabelValues(step, outcome).Inc()
	bm.callDuration.WithLabelValues(step).Observe(d.Seconds())
}

// SetUp records the probe result.
func (bm *BackendMetrics) SetUp(up bool) {
	if up {
		bm.up.Set(1)
	} else {
		bm.up.Set(0)
	}
}
