package metrics

import (
	"time"

	"ferryhq/ferry/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Collector owns every gateway metric. It implements the observer
// interfaces of the challenge, backend and stream packages, so one value is
// handed to each component.
//
// When metrics are disabled the collector still registers its metrics but
// records nothing; callers never need a nil check.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics   *RequestMetrics
	backendMetrics   *BackendMetrics
	challengeMetrics *ChallengeMetrics
	streamMetrics    *StreamMetrics
}

// NewCollector creates a collector on registry. If registry is nil a new
// one is created with the Go runtime and process collectors.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}

	return &Collector{
		config:           cfg,
		registry:         registry,
		requestMetrics:   NewRequestMetrics(cfg, registry),
		backendMetrics:   NewBackendMetrics(cfg, registry),
		challengeMetrics: NewChallengeMetrics(cfg, registry),
		streamMetrics:    NewStreamMetrics(cfg, registry),
	}
}

// ObserveRequest counts a finished inbound request.
func (c *Collector) ObserveRequest(route string, status int) {
	if !c.config.Enabled {
		return
	}
	c.requestMetrics.RecordRequest(route, status)
}

// ObserveRequestDuration records the duration of a chat completion.
func (c *Collector) ObserveRequestDuration(route, mode string, d time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.requestMetrics.RecordDuration(route, mode, d)
}

// ObserveBackendCall implements backend.Observer.
func (c *Collector) ObserveBackendCall(step, outcome string, d time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.backendMetrics.RecordCall(step, outcome, d)
}

// SetBackendUp records a readiness probe result.
func (c *Collector) SetBackendUp(up bool) {
	if !c.config.Enabled {
		return
	}
	c.backendMetrics.SetUp(up)
}

// ObserveSolve implements challenge.Observer.
func (c *Collector) ObserveSolve(d time.Duration, attempts int, result string) {
	if !c.config.Enabled {
		return
	}
	c.challengeMetrics.RecordSolve(d, attempts, result)
}

// SetSolverQueueDepth implements challenge.Observer.
func (c *Collector) SetSolverQueueDepth(depth int) {
	if !c.config.Enabled {
		return
	}
	c.challengeMetrics.SetQueueDepth(depth)
}

// ObserveChunk implements stream.Observer.
func (c *Collector) ObserveChunk() {
	if !c.config.Enabled {
		return
	}
	c.streamMetrics.RecordChunk()
}

// ObserveTermination implements stream.Observer.
func (c *Collector) ObserveTermination(reason string) {
	if !c.config.Enabled {
		return
	}
	c.streamMetrics.RecordTermination(reason)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
