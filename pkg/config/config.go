package config

import "time"

// Config is the process configuration. It is read-only after startup; only
// the log level may change at runtime (see Watcher).
type Config struct {
	// Server contains the inbound HTTP server configuration.
	Server ServerConfig `yaml:"server" envPrefix:"SERVER_"`

	// Backend contains the outbound backend protocol configuration.
	Backend BackendConfig `yaml:"backend" envPrefix:"BACKEND_"`

	// Challenge contains the proof-of-work solver configuration.
	Challenge ChallengeConfig `yaml:"challenge" envPrefix:"CHALLENGE_"`

	// Translation contains the request/response translation configuration.
	Translation TranslationConfig `yaml:"translation" envPrefix:"TRANSLATION_"`

	// Telemetry contains logging, metrics and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"TELEMETRY_"`
}

// ServerConfig contains configuration for the inbound HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "0.0.0.0:3040"
	ListenAddress string `yaml:"listen_address" env:"LISTEN_ADDRESS" jsonschema:"default=0.0.0.0:3040"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`

	// WriteTimeout is the maximum duration of a response write. Streams are
	// long-lived, so the default of 0 disables it.
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes" env:"MAX_HEADER_BYTES"`

	// MaxBodyBytes limits request body size.
	// Default: 10485760 (10MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`

	// AuthToken, when set, must be presented by /v1 requests in the
	// Authorization header. It is never forwarded to the backend.
	AuthToken string `yaml:"auth_token" env:"AUTH_TOKEN"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors" envPrefix:"CORS_"`
}

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" env:"ENABLED"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
	AllowedMethods []string `yaml:"allowed_methods" env:"ALLOWED_METHODS"`
	AllowedHeaders []string `yaml:"allowed_headers" env:"ALLOWED_HEADERS"`

	// MaxAge is the preflight cache duration in seconds; 0 omits the header.
	MaxAge int `yaml:"max_age" env:"MAX_AGE"`
}

// BackendConfig contains the backend protocol configuration.
type BackendConfig struct {
	// BaseURL is the backend origin.
	// Default: "https://chat.openai.com"
	BaseURL string `yaml:"base_url" env:"BASE_URL"`

	RequirementsPath string `yaml:"requirements_path" env:"REQUIREMENTS_PATH"`

	// ExchangePath enables a separate credential exchange call. When empty
	// the requirements token is used as the credential.
	ExchangePath string `yaml:"exchange_path" env:"EXCHANGE_PATH"`

	ConversationPath string `yaml:"conversation_path" env:"CONVERSATION_PATH"`

	// ProxyURL is the outbound forward proxy: http, https, socks5 or socks5h.
	ProxyURL string `yaml:"proxy_url" env:"PROXY_URL"`

	UserAgent string `yaml:"user_agent" env:"USER_AGENT"`

	// Model is the backend model slug.
	// Default: "text-davinci-002-render-sha"
	Model string `yaml:"model" env:"MODEL"`

	// DeviceScope is "request" (new device id per request) or "process".
	// Default: "request"
	DeviceScope string `yaml:"device_scope" env:"DEVICE_SCOPE" jsonschema:"enum=request,enum=process"`

	ConnectTimeout   time.Duration `yaml:"connect_timeout" env:"CONNECT_TIMEOUT"`
	ChallengeTimeout time.Duration `yaml:"challenge_timeout" env:"CHALLENGE_TIMEOUT"`
	ExchangeTimeout  time.Duration `yaml:"exchange_timeout" env:"EXCHANGE_TIMEOUT"`

	// StreamTimeout bounds the conversation call until response headers.
	StreamTimeout time.Duration `yaml:"stream_timeout" env:"STREAM_TIMEOUT"`

	// StreamIdleTimeout bounds the wait between two events.
	StreamIdleTimeout time.Duration `yaml:"stream_idle_timeout" env:"STREAM_IDLE_TIMEOUT"`

	Retry RetryConfig `yaml:"retry" envPrefix:"RETRY_"`
	Probe ProbeConfig `yaml:"probe" envPrefix:"PROBE_"`
}

// RetryConfig bounds retries of the challenge and exchange calls.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	InitialInterval time.Duration `yaml:"initial_interval" env:"INITIAL_INTERVAL"`
	MaxInterval     time.Duration `yaml:"max_interval" env:"MAX_INTERVAL"`
}

// ProbeConfig schedules the backend readiness probe.
type ProbeConfig struct {
	// Schedule is a standard cron expression; empty disables probing.
	Schedule string        `yaml:"schedule" env:"SCHEDULE"`
	Timeout  time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// ChallengeConfig contains the proof-of-work solver configuration.
type ChallengeConfig struct {
	// Workers is the number of solver goroutines; 0 means runtime.NumCPU().
	Workers int `yaml:"workers" env:"WORKERS"`

	// QueueSize bounds pending solves.
	// Default: 64
	QueueSize int `yaml:"queue_size" env:"QUEUE_SIZE"`

	// MaxAttempts is the nonce ceiling.
	// Default: 1000000
	MaxAttempts int `yaml:"max_attempts" env:"MAX_ATTEMPTS"`

	// FallbackToken sends a static token instead of failing when the
	// ceiling is reached.
	FallbackToken bool `yaml:"fallback_token" env:"FALLBACK_TOKEN"`
}

// TranslationConfig contains translation configuration.
type TranslationConfig struct {
	// HistoryMode is "flatten" or "multi_turn".
	// Default: "flatten"
	HistoryMode string `yaml:"history_mode" env:"HISTORY_MODE" jsonschema:"enum=flatten,enum=multi_turn"`

	// Model is the model id advertised to clients.
	// Default: "gpt-3.5-turbo"
	Model string `yaml:"model" env:"MODEL"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging" envPrefix:"LOGGING_"`
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`
	Tracing TracingConfig `yaml:"tracing" envPrefix:"TRACING_"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level" env:"LEVEL" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format" env:"FORMAT" jsonschema:"enum=json,enum=text"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source" env:"ADD_SOURCE"`

	// Redact masks tokens and keys in log attributes.
	// Default: true
	Redact bool `yaml:"redact" env:"REDACT"`

	// Watch reloads the log level when the config file changes.
	Watch bool `yaml:"watch" env:"WATCH"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Default: true
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// Default: "/metrics"
	Path string `yaml:"path" env:"PATH"`

	// Default: "ferry"
	Namespace string `yaml:"namespace" env:"NAMESPACE"`

	// Default: "gateway"
	Subsystem string `yaml:"subsystem" env:"SUBSYSTEM"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// Sampler is "always", "never" or "ratio".
	// Default: "ratio"
	Sampler string `yaml:"sampler" env:"SAMPLER" jsonschema:"enum=always,enum=never,enum=ratio"`

	// SampleRatio is the fraction of traces sampled by the ratio sampler.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio" env:"SAMPLE_RATIO"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`

	// Insecure disables TLS to the collector.
	// Default: true
	Insecure bool `yaml:"insecure" env:"INSECURE"`

	// Default: "ferry"
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}
