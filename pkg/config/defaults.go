package config

import (
	"time"

	"ferryhq/ferry/pkg/backend/chatgpt"
)

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "0.0.0.0:3040"
	DefaultReadTimeout     = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576  // 1MB
	DefaultMaxBodyBytes    = 10485760 // 10MB

	// Backend defaults
	DefaultBackendBaseURL        = "https://chat.openai.com"
	DefaultRequirementsPath      = "/backend-anon/sentinel/chat-requirements"
	DefaultConversationPath      = "/backend-anon/conversation"
	DefaultBackendModel          = "text-davinci-002-render-sha"
	DefaultDeviceScope           = "request"
	DefaultConnectTimeout        = 10 * time.Second
	DefaultChallengeTimeout      = 15 * time.Second
	DefaultExchangeTimeout       = 15 * time.Second
	DefaultStreamTimeout         = 30 * time.Second
	DefaultStreamIdleTimeout     = 60 * time.Second
	DefaultRetryMaxAttempts      = 3
	DefaultRetryInitialInterval  = 250 * time.Millisecond
	DefaultRetryMaxInterval      = 2 * time.Second
	DefaultProbeTimeout          = 10 * time.Second
	DefaultChallengeQueueSize    = 64
	DefaultChallengeMaxAttempts  = 1000000
	DefaultTranslationHistory    = "flatten"
	DefaultTranslationModel      = "gpt-3.5-turbo"

	// Telemetry defaults
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "ferry"
	DefaultMetricsSubsystem   = "gateway"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingServiceName = "ferry"
)

// Default CORS lists, matching what browser clients of the original service expect.
var (
	DefaultCORSAllowedOrigins = []string{"*"}
	DefaultCORSAllowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}
	DefaultCORSAllowedHeaders = []string{"Content-Type", "Authorization"}
)

// Default returns a configuration with every default applied. Boolean
// fields whose default is true are set here; YAML decoded on top of it only
// changes the keys present in the file.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.CORS.Enabled = true
	cfg.Telemetry.Logging.Redact = true
	cfg.Telemetry.Metrics.Enabled = true
	cfg.Telemetry.Tracing.Insecure = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. Boolean
// fields are left alone.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyBackendDefaults(&cfg.Backend)
	applyChallengeDefaults(&cfg.Challenge)
	applyTranslationDefaults(&cfg.Translation)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyServerDefaults(s *ServerConfig) {
	if s.ListenAddress == "" {
		s.ListenAddress = DefaultListenAddress
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.MaxHeaderBytes == 0 {
		s.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if len(s.CORS.AllowedOrigins) == 0 {
		s.CORS.AllowedOrigins = append([]string(nil), DefaultCORSAllowedOrigins...)
	}
	if len(s.CORS.AllowedMethods) == 0 {
		s.CORS.AllowedMethods = append([]string(nil), DefaultCORSAllowedMethods...)
	}
	if len(s.CORS.AllowedHeaders) == 0 {
		s.CORS.AllowedHeaders = append([]string(nil), DefaultCORSAllowedHeaders...)
	}
}

func applyBackendDefaults(b *BackendConfig) {
	if b.BaseURL == "" {
		b.BaseURL = DefaultBackendBaseURL
	}
	if b.RequirementsPath == "" {
		b.RequirementsPath = DefaultRequirementsPath
	}
	if b.ConversationPath == "" {
		b.ConversationPath = DefaultConversationPath
	}
	if b.UserAgent == "" {
		b.UserAgent = chatgpt.DefaultUserAgent
	}
	if b.Model == "" {
		b.Model = DefaultBackendModel
	}
	if b.DeviceScope == "" {
		b.DeviceScope = DefaultDeviceScope
	}
	if b.ConnectTimeout == 0 {
		b.ConnectTimeout = DefaultConnectTimeout
	}
	if b.ChallengeTimeout == 0 {
		b.ChallengeTimeout = DefaultChallengeTimeout
	}
	if b.ExchangeTimeout == 0 {
		b.ExchangeTimeout = DefaultExchangeTimeout
	}
	if b.StreamTimeout == 0 {
		b.StreamTimeout = DefaultStreamTimeout
	}
	if b.StreamIdleTimeout == 0 {
		b.StreamIdleTimeout = DefaultStreamIdleTimeout
	}
	if b.Retry.MaxAttempts == 0 {
		b.Retry.MaxAttempts = DefaultRetryMaxAttempts
	}
	if b.Retry.InitialInterval == 0 {
		b.Retry.InitialInterval = DefaultRetryInitialInterval
	}
	if b.Retry.MaxInterval == 0 {
		b.Retry.MaxInterval = DefaultRetryMaxInterval
	}
	if b.Probe.Timeout == 0 {
		b.Probe.Timeout = DefaultProbeTimeout
	}
}

func applyChallengeDefaults(c *ChallengeConfig) {
	if c.QueueSize == 0 {
		c.QueueSize = DefaultChallengeQueueSize
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultChallengeMaxAttempts
	}
}

func applyTranslationDefaults(t *TranslationConfig) {
	if t.HistoryMode == "" {
		t.HistoryMode = DefaultTranslationHistory
	}
	if t.Model == "" {
		t.Model = DefaultTranslationModel
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLogLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLogFormat
	}
	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Metrics.Subsystem == "" {
		t.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.Endpoint == "" {
		t.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
}
