package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrNotProbed is reported by Check before the first probe has finished.
var ErrNotProbed = errors.New("backend not probed yet")

// ProbeConfig configures the readiness probe.
type ProbeConfig struct {
	// Schedule is a standard cron expression. Empty disables probing and
	// the backend is always reported ready.
	Schedule string

	// Timeout bounds one probe (default: 10s).
	Timeout time.Duration

	// OnResult is called after every probe.
	OnResult func(up bool)

	Logger *slog.Logger
}

// Probe periodically fetches a challenge to check that the backend still
// answers. It never solves or opens a conversation.
type Probe struct {
	client  Client
	devices *DeviceSource
	config  ProbeConfig
	cron    *cron.Cron
	logger  *slog.Logger

	mu       sync.Mutex
	running  bool
	probed   bool
	lastErr  error
	lastTime time.Time
}

// NewProbe creates a probe. Start must be called to schedule it.
func NewProbe(client Client, devices *DeviceSource, cfg ProbeConfig) *Probe {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.OnResult == nil {
		cfg.OnResult = func(bool) {}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if devices == nil {
		devices = &DeviceSource{}
	}

	return &Probe{
		client:  client,
		devices: devices,
		config:  cfg,
		cron:    cron.New(),
		logger:  cfg.Logger.With("component", "backend.probe"),
	}
}

// Enabled reports whether a schedule is configured.
func (p *Probe) Enabled() bool {
	return p.config.Schedule != ""
}

// Start schedules the probe and runs it once immediately. It stops when ctx
// is cancelled or Stop is called. Without a schedule it does nothing.
func (p *Probe) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.Enabled() {
		p.logger.Info("backend probe schedule not configured, skipping probe")
		return nil
	}

	if _, err := cron.ParseStandard(p.config.Schedule); err != nil {
		return fmt.Errorf("invalid probe schedule %q: %w", p.config.Schedule, err)
	}

	if _, err := p.cron.AddFunc(p.config.Schedule, func() { _ = p.Run(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule backend probe: %w", err)
	}

	p.cron.Start()
	p.running = true

	p.logger.Info("backend probe started",
		"schedule", p.config.Schedule,
		"timeout", p.config.Timeout,
	)

	go func() { _ = p.Run(ctx) }()
	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

// Run probes the backend once and records the result.
func (p *Probe) Run(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	start := time.Now()
	_, err := p.client.FetchChallenge(probeCtx, p.devices.ID())
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		err = &TimeoutError{Step: StepChallenge, Timeout: p.config.Timeout}
	}

	p.mu.Lock()
	p.probed = true
	p.lastErr = err
	p.lastTime = time.Now()
	p.mu.Unlock()

	p.config.OnResult(err == nil)

	if err != nil {
		p.logger.WarnContext(ctx, "backend probe failed",
			"outcome", Outcome(err),
			"duration", time.Since(start),
			"error", err,
		)
		return err
	}

	p.logger.DebugContext(ctx, "backend probe succeeded", "duration", time.Since(start))
	return nil
}

// Check reports the last probe result. It matches the health check function
// signature. A disabled probe is always healthy.
func (p *Probe) Check(context.Context) error {
	if !p.Enabled() {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.probed {
		return ErrNotProbed
	}
	return p.lastErr
}

// LastRun returns when the last probe finished, zero if never.
func (p *Probe) LastRun() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastTime
}

// Stop stops the scheduler and waits for a running probe to complete.
func (p *Probe) Stop() {
	p.mu.Lock()
	running := p.running
	p.running = false
	p.mu.Unlock()

	if running {
		<-p.cron.Stop().Done()
		p.logger.Info("backend probe stopped")
	}
}
