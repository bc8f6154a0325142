package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate_DefaultConfig(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Errorf("expected default config to pass validation, got error: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := &Config{}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation to fail")
	}

	validationErr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(validationErr.Errors) < 2 {
		t.Errorf("expected multiple errors, got %d", len(validationErr.Errors))
	}
	if !strings.Contains(validationErr.Error(), "validation failed with") {
		t.Errorf("error message should mention multiple errors: %s", validationErr.Error())
	}
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"listen address without port", func(c *Config) { c.Server.ListenAddress = "localhost" }, "server.listen_address"},
		{"negative read timeout", func(c *Config) { c.Server.ReadTimeout = -time.Second }, "server.read_timeout"},
		{"huge header limit", func(c *Config) { c.Server.MaxHeaderBytes = 11 * 1024 * 1024 }, "server.max_header_bytes"},
		{"negative body limit", func(c *Config) { c.Server.MaxBodyBytes = -1 }, "server.max_body_bytes"},
		{"relative base url", func(c *Config) { c.Backend.BaseURL = "chat.openai.com" }, "backend.base_url"},
		{"requirements path without slash", func(c *Config) { c.Backend.RequirementsPath = "sentinel" }, "backend.requirements_path"},
		{"exchange path without slash", func(c *Config) { c.Backend.ExchangePath = "exchange" }, "backend.exchange_path"},
		{"ftp proxy", func(c *Config) { c.Backend.ProxyURL = "ftp://proxy:21" }, "backend.proxy_url"},
		{"unknown device scope", func(c *Config) { c.Backend.DeviceScope = "global" }, "backend.device_scope"},
		{"zero retry attempts", func(c *Config) { c.Backend.Retry.MaxAttempts = 0 }, "backend.retry.max_attempts"},
		{"inverted retry intervals", func(c *Config) { c.Backend.Retry.MaxInterval = time.Millisecond }, "backend.retry.max_interval"},
		{"bad cron schedule", func(c *Config) { c.Backend.Probe.Schedule = "every minute" }, "backend.probe.schedule"},
		{"negative workers", func(c *Config) { c.Challenge.Workers = -1 }, "challenge.workers"},
		{"zero queue", func(c *Config) { c.Challenge.QueueSize = 0 }, "challenge.queue_size"},
		{"unknown history mode", func(c *Config) { c.Translation.HistoryMode = "raw" }, "translation.history_mode"},
		{"empty advertised model", func(c *Config) { c.Translation.Model = "" }, "translation.model"},
		{"unknown log level", func(c *Config) { c.Telemetry.Logging.Level = "trace" }, "telemetry.logging.level"},
		{"unknown log format", func(c *Config) { c.Telemetry.Logging.Format = "xml" }, "telemetry.logging.format"},
		{"metrics path without slash", func(c *Config) { c.Telemetry.Metrics.Path = "metrics" }, "telemetry.metrics.path"},
		{"tracing without endpoint", func(c *Config) {
			c.Telemetry.Tracing.Enabled = true
			c.Telemetry.Tracing.Endpoint = ""
		}, "telemetry.tracing.endpoint"},
		{"unknown sampler", func(c *Config) { c.Telemetry.Tracing.Sampler = "sometimes" }, "telemetry.tracing.sampler"},
		{"ratio above one", func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 }, "telemetry.tracing.sample_ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			verr := err.(ValidationError)
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error for %s, got %v", tt.wantField, verr.Errors)
			}
		})
	}
}

func TestValidate_AcceptedValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"socks5h proxy", func(c *Config) { c.Backend.ProxyURL = "socks5h://127.0.0.1:1080" }},
		{"https proxy", func(c *Config) { c.Backend.ProxyURL = "https://proxy.example:443" }},
		{"process device scope", func(c *Config) { c.Backend.DeviceScope = "process" }},
		{"cron schedule", func(c *Config) { c.Backend.Probe.Schedule = "*/5 * * * *" }},
		{"descriptor schedule", func(c *Config) { c.Backend.Probe.Schedule = "@every 30s" }},
		{"exchange path", func(c *Config) { c.Backend.ExchangePath = "/backend-anon/sentinel/exchange" }},
		{"multi turn", func(c *Config) { c.Translation.HistoryMode = "multi_turn" }},
		{"never sampler", func(c *Config) { c.Telemetry.Tracing.Sampler = "never" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := Validate(cfg); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestFieldError_Error(t *testing.T) {
	err := FieldError{Field: "backend.model", Message: "backend model is required"}
	if got := err.Error(); got != "backend.model: backend model is required" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestValidationError_SingleError(t *testing.T) {
	err := ValidationError{Errors: []FieldError{{Field: "a", Message: "b"}}}
	if got := err.Error(); got != "configuration validation failed: a: b" {
		t.Errorf("unexpected message %q", got)
	}
}
