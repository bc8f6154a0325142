package metrics

import (
	"time"

	"ferryhq/ferry/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ChallengeMetrics tracks proof-of-work solving.
type ChallengeMetrics struct {
	solveDuration prometheus.Histogram
	attempts      prometheus.Histogram
	results       *prometheus.CounterVec
	queueDepth    prometheus.Gauge
}

// NewChallengeMetrics creates and registers solver metrics.
func NewChallengeMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ChallengeMetrics {
	cm := &ChallengeMetrics{
		solveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "challenge_solve_duration_seconds",
				Help:      "Time spent solving proof-of-work challenges",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),

		attempts: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "challenge_attempts",
				Help:      "Nonces tried per challenge",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 11), // 1 to ~1M
			},
		),

		results: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "challenge_results_total",
				Help:      "Challenge outcomes (solved, fallback, unsolvable, cancelled)",
			},
			[]string{"result"},
		),

		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "challenge_queue_depth",
				Help:      "Challenges waiting for a solver worker",
			},
		),
	}

	registry.MustRegister(cm.solveDuration, cm.attempts, cm.results, cm.queueDepth)
	return cm
}

// RecordSolve records one finished solve.
func (cm *ChallengeMetrics) RecordSolve(d time.Duration, attempts int, result string) {
	cm.solveDuration.Observe(d.Seconds())
	cm.attempts.Observe(float64(attempts))
	cm.results.WithLabelValues(result).Inc()
}

// SetQueueDepth records the number of pending solves.
func (cm *ChallengeMetrics) SetQueueDepth(depth int) {
	cm.queueDepth.Set(float64(depth))
}
