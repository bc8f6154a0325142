package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"ferryhq/ferry/pkg/backend"
	"ferryhq/ferry/pkg/backend/chatgpt"
	"ferryhq/ferry/pkg/challenge"
	"ferryhq/ferry/pkg/cli"
	"ferryhq/ferry/pkg/config"
	"ferryhq/ferry/pkg/proxy/handlers"
	"ferryhq/ferry/pkg/server"
	"ferryhq/ferry/pkg/stream"
	"ferryhq/ferry/pkg/telemetry/health"
	"ferryhq/ferry/pkg/telemetry/logging"
	"ferryhq/ferry/pkg/telemetry/metrics"
	"ferryhq/ferry/pkg/telemetry/tracing"
	"ferryhq/ferry/pkg/translator"
)

// watchDebounce is how long the config watcher waits for writes to settle.
const watchDebounce = 500 * time.Millisecond

var runFlags struct {
	listenAddress string
	logLevel      string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gateway",
	Long: `Start the gateway with the specified configuration.

Examples:
  # Start with defaults (listens on 0.0.0.0:3040)
  ferry run

  # Start with a config file
  ferry run --config /etc/ferry/config.yaml

  # Override the listen address and log level
  ferry run --listen 127.0.0.1:8080 --log-level debug`,
	Args: cobra.NoArgs,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, func(c *config.Config) {
		if runFlags.listenAddress != "" {
			c.Server.ListenAddress = runFlags.listenAddress
		}
		if runFlags.logLevel != "" {
			c.Telemetry.Logging.Level = runFlags.logLevel
		}
	})
	if err != nil {
		return err
	}

	log, err := logging.New(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
		Redact:    cfg.Telemetry.Logging.Redact,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", "failed to initialize logging", err)
	}
	logger := log.Slog()
	slog.SetDefault(logger)

	ctx, cancel := cli.SetupSignalHandler(cmd.Context())
	defer cancel()

	gw, err := buildGateway(cfg, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer gw.close(logger)

	if err := gw.probe.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	defer gw.probe.Stop()

	if cfg.Telemetry.Logging.Watch {
		go watchLogLevel(ctx, cmd, log, logger)
	}

	opts := server.Options{
		Config: cfg,
		Chat:   gw.chat,
		Health: gw.health,
		Build: server.BuildInfo{
			Version:   Version,
			Commit:    GitCommit,
			BuildTime: BuildDate,
		},
		Logger: logger,
	}
	if cfg.Telemetry.Metrics.Enabled {
		opts.Metrics = gw.metrics
	}

	srv, err := server.New(opts)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	logger.Info("starting ferry",
		"version", Version,
		"listen_address", cfg.Server.ListenAddress,
		"history_mode", cfg.Translation.HistoryMode,
		"device_scope", cfg.Backend.DeviceScope,
		"proxy", backend.RedactURL(cfg.Backend.ProxyURL),
		"metrics", cfg.Telemetry.Metrics.Enabled,
		"tracing", cfg.Telemetry.Tracing.Enabled,
	)

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	logger.Info("ferry stopped")
	return nil
}

// gateway holds the wired components of one running process.
type gateway struct {
	chat    *handlers.ChatHandler
	health  *health.Checker
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	pool    *challenge.Pool
	probe   *backend.Probe
}

func buildGateway(cfg *config.Config, logger *slog.Logger) (*gateway, error) {
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	transport, err := backend.NewTransport(backend.TransportConfig{
		ProxyURL:       cfg.Backend.ProxyURL,
		ConnectTimeout: cfg.Backend.ConnectTimeout,
	})
	if err != nil {
		tracer.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to build backend transport: %w", err)
	}

	client, err := chatgpt.New(chatgpt.Config{
		BaseURL:           cfg.Backend.BaseURL,
		RequirementsPath:  cfg.Backend.RequirementsPath,
		ExchangePath:      cfg.Backend.ExchangePath,
		ConversationPath:  cfg.Backend.ConversationPath,
		UserAgent:         cfg.Backend.UserAgent,
		Model:             cfg.Backend.Model,
		ChallengeTimeout:  cfg.Backend.ChallengeTimeout,
		ExchangeTimeout:   cfg.Backend.ExchangeTimeout,
		StreamTimeout:     cfg.Backend.StreamTimeout,
		StreamIdleTimeout: cfg.Backend.StreamIdleTimeout,
		HTTPClient:        &http.Client{Transport: transport},
		Logger:            logger,
	})
	if err != nil {
		tracer.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	devices, err := backend.NewDeviceSource(cfg.Backend.DeviceScope)
	if err != nil {
		tracer.Shutdown(context.Background())
		return nil, err
	}

	mode, err := translator.ParseHistoryMode(cfg.Translation.HistoryMode)
	if err != nil {
		tracer.Shutdown(context.Background())
		return nil, err
	}

	pool := challenge.NewPool(challenge.PoolConfig{
		Workers:     cfg.Challenge.Workers,
		QueueSize:   cfg.Challenge.QueueSize,
		MaxAttempts: cfg.Challenge.MaxAttempts,
		Fallback:    cfg.Challenge.FallbackToken,
		UserAgent:   cfg.Backend.UserAgent,
		Observer:    collector,
		Logger:      logger,
	})

	gw := &gateway{
		health:  health.New(0),
		metrics: collector,
		tracer:  tracer,
		pool:    pool,
	}

	session, err := backend.NewSession(backend.SessionConfig{
		Client:  client,
		Solver:  pool,
		Devices: devices,
		Retry: backend.RetryConfig{
			MaxAttempts:     cfg.Backend.Retry.MaxAttempts,
			InitialInterval: cfg.Backend.Retry.InitialInterval,
			MaxInterval:     cfg.Backend.Retry.MaxInterval,
		},
		Observer: collector,
		Tracer:   tracer,
		Logger:   logger,
	})
	if err != nil {
		gw.close(logger)
		return nil, err
	}

	gw.chat, err = handlers.NewChatHandler(handlers.ChatConfig{
		Opener:       session,
		Inbound:      translator.NewInbound(mode),
		Multiplexer:  stream.New(stream.Config{Observer: collector, Logger: logger}),
		Model:        cfg.Translation.Model,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Observer:     collector,
		Tracer:       tracer,
		Logger:       logger,
	})
	if err != nil {
		gw.close(logger)
		return nil, err
	}

	gw.probe = backend.NewProbe(client, devices, backend.ProbeConfig{
		Schedule: cfg.Backend.Probe.Schedule,
		Timeout:  cfg.Backend.Probe.Timeout,
		OnResult: collector.SetBackendUp,
		Logger:   logger,
	})
	gw.health.RegisterCheck("backend", gw.probe.Check)

	return gw, nil
}

// close releases the solver workers and flushes pending spans.
func (g *gateway) close(logger *slog.Logger) {
	g.pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.tracer.Shutdown(ctx); err != nil {
		logger.Warn("tracer shutdown failed", "error", err)
	}
}

// watchLogLevel applies the log level of the config file whenever it
// changes. Nothing else is reloaded.
func watchLogLevel(ctx context.Context, cmd *cobra.Command, log *logging.Logger, logger *slog.Logger) {
	if !configRequired(cmd) && !fileExists(cfgFile) {
		logger.Info("config file not found, log level watch disabled", "path", cfgFile)
		return
	}

	w, err := config.NewWatcher(cfgFile, watchDebounce, logger)
	if err != nil {
		logger.Warn("config watcher unavailable", "path", cfgFile, "error", err)
		return
	}

	err = w.Watch(ctx, func(c *config.Config) {
		level := c.Telemetry.Logging.Level
		if runFlags.logLevel != "" {
			level = runFlags.logLevel
		}
		if err := log.SetLevel(level); err != nil {
			logger.Warn("ignoring log level from config", "level", level, "error", err)
			return
		}
		logger.Info("log level updated", "level", level)
	})
	if err != nil {
		logger.Warn("config watcher stopped", "error", err)
	}
}
