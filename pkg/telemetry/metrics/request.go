package metrics

import (
	"strconv"
	"time"

	"ferryhq/ferry/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks inbound HTTP requests.
//
// Metrics:
//   - ferry_gateway_requests_total: request count by route and status code
//   - ferry_gateway_request_duration_seconds: request duration by route and mode
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of inbound requests",
			},
			[]string{"route", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "Duration of chat completion requests in seconds",
				// Streams run for tens of seconds.
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"route", "mode"},
		),
	}

	registry.MustRegister(rm.requestsTotal, rm.requestDuration)
	return rm
}

// RecordRequest counts one finished request.
func (rm *RequestMetrics) RecordRequest(route string, status int) {
	rm.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// RecordDuration records the duration of a request in the given mode
// ("stream" or "buffered").
func (rm *RequestMetrics) RecordDuration(route, mode string, d time.Duration) {
	rm.requestDuration.WithLabelValues(route, mode).Observe(d.Seconds())
}
