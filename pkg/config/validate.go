package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// Validate checks the whole configuration and returns a ValidationError
// listing every invalid field, or nil.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateBackend(&cfg.Backend)...)
	errs = append(errs, validateChallenge(&cfg.Challenge)...)
	errs = append(errs, validateTranslation(&cfg.Translation)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: %v", cfg.ListenAddress, err),
		})
	}

	errs = append(errs, nonNegative("server.read_timeout", cfg.ReadTimeout)...)
	errs = append(errs, nonNegative("server.write_timeout", cfg.WriteTimeout)...)
	errs = append(errs, nonNegative("server.idle_timeout", cfg.IdleTimeout)...)
	errs = append(errs, nonNegative("server.shutdown_timeout", cfg.ShutdownTimeout)...)

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes exceeds reasonable limit (10MB)",
		})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_body_bytes",
			Message: "max body bytes must be non-negative",
		})
	}
	if cfg.CORS.MaxAge < 0 {
		errs = append(errs, FieldError{
			Field:   "server.cors.max_age",
			Message: "max age must be non-negative",
		})
	}

	return errs
}

func validateBackend(cfg *BackendConfig) []FieldError {
	var errs []FieldError

	if cfg.BaseURL == "" {
		errs = append(errs, FieldError{
			Field:   "backend.base_url",
			Message: "base URL is required",
		})
	} else if u, err := url.Parse(cfg.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "backend.base_url",
			Message: fmt.Sprintf("invalid URL %q: must be absolute", cfg.BaseURL),
		})
	}

	for field, path := range map[string]string{
		"backend.requirements_path": cfg.RequirementsPath,
		"backend.conversation_path": cfg.ConversationPath,
	} {
		if path == "" || path[0] != '/' {
			errs = append(errs, FieldError{Field: field, Message: "path must start with /"})
		}
	}
	if cfg.ExchangePath != "" && cfg.ExchangePath[0] != '/' {
		errs = append(errs, FieldError{
			Field:   "backend.exchange_path",
			Message: "path must start with /",
		})
	}

	if cfg.ProxyURL != "" {
		u, err := url.Parse(cfg.ProxyURL)
		switch {
		case err != nil:
			errs = append(errs, FieldError{
				Field:   "backend.proxy_url",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		case u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "socks5" && u.Scheme != "socks5h":
			errs = append(errs, FieldError{
				Field:   "backend.proxy_url",
				Message: fmt.Sprintf("unsupported scheme %q: must be 'http', 'https', 'socks5' or 'socks5h'", u.Scheme),
			})
		}
	}

	if cfg.Model == "" {
		errs = append(errs, FieldError{
			Field:   "backend.model",
			Message: "backend model is required",
		})
	}
	if cfg.DeviceScope != "request" && cfg.DeviceScope != "process" {
		errs = append(errs, FieldError{
			Field:   "backend.device_scope",
			Message: fmt.Sprintf("invalid device scope %q: must be 'request' or 'process'", cfg.DeviceScope),
		})
	}

	errs = append(errs, nonNegative("backend.connect_timeout", cfg.ConnectTimeout)...)
	errs = append(errs, nonNegative("backend.challenge_timeout", cfg.ChallengeTimeout)...)
	errs = append(errs, nonNegative("backend.exchange_timeout", cfg.ExchangeTimeout)...)
	errs = append(errs, nonNegative("backend.stream_timeout", cfg.StreamTimeout)...)
	errs = append(errs, nonNegative("backend.stream_idle_timeout", cfg.StreamIdleTimeout)...)

	if cfg.Retry.MaxAttempts < 1 {
		errs = append(errs, FieldError{
			Field:   "backend.retry.max_attempts",
			Message: "max attempts must be at least 1",
		})
	}
	if cfg.Retry.MaxAttempts > 10 {
		errs = append(errs, FieldError{
			Field:   "backend.retry.max_attempts",
			Message: "max attempts exceeds reasonable limit (10)",
		})
	}
	if cfg.Retry.MaxInterval < cfg.Retry.InitialInterval {
		errs = append(errs, FieldError{
			Field:   "backend.retry.max_interval",
			Message: "max interval must not be less than initial interval",
		})
	}

	if cfg.Probe.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Probe.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "backend.probe.schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}
	errs = append(errs, nonNegative("backend.probe.timeout", cfg.Probe.Timeout)...)

	return errs
}

func validateChallenge(cfg *ChallengeConfig) []FieldError {
	var errs []FieldError

	if cfg.Workers < 0 {
		errs = append(errs, FieldError{
			Field:   "challenge.workers",
			Message: "workers must be non-negative",
		})
	}
	if cfg.QueueSize < 1 {
		errs = append(errs, FieldError{
			Field:   "challenge.queue_size",
			Message: "queue size must be at least 1",
		})
	}
	if cfg.MaxAttempts < 1 {
		errs = append(errs, FieldError{
			Field:   "challenge.max_attempts",
			Message: "max attempts must be at least 1",
		})
	}

	return errs
}

func validateTranslation(cfg *TranslationConfig) []FieldError {
	var errs []FieldError

	if cfg.HistoryMode != "flatten" && cfg.HistoryMode != "multi_turn" {
		errs = append(errs, FieldError{
			Field:   "translation.history_mode",
			Message: fmt.Sprintf("invalid history mode %q: must be 'flatten' or 'multi_turn'", cfg.HistoryMode),
		})
	}
	if cfg.Model == "" {
		errs = append(errs, FieldError{
			Field:   "translation.model",
			Message: "advertised model is required",
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	if cfg.Logging.Format != "json" && cfg.Logging.Format != "text" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Path == "" || cfg.Metrics.Path[0] != '/' {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with /",
			})
		}
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	switch cfg.Tracing.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never' or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	return errs
}

func nonNegative(field string, d time.Duration) []FieldError {
	if d < 0 {
		return []FieldError{{Field: field, Message: "duration must be non-negative"}}
	}
	return nil
}
