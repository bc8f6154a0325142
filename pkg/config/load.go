package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. FERRY_SERVER_LISTEN_ADDRESS.
const EnvPrefix = "FERRY_"

// Compatibility variables read before the prefixed ones, so a FERRY_
// variable wins when both are set.
const (
	EnvPort          = "PORT"
	EnvAllProxy      = "ALL_PROXY"
	EnvAuthorization = "AUTHORIZATION"
)

// Options control Load.
type Options struct {
	// Path is the YAML file to read. Empty skips the file.
	Path string

	// Required makes a missing file an error. When false, a missing file
	// leaves defaults and environment in effect.
	Required bool

	// Override runs after environment parsing and before validation.
	// Command-line flags are applied here.
	Override func(*Config)

	// Environment replaces the process environment when non-nil.
	Environment map[string]string
}

// Load builds the configuration: defaults, then the YAML file, then the
// compatibility variables, then FERRY_ variables, then Override. The
// result is validated; a ValidationError lists every invalid field.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	if opts.Path != "" {
		if err := decodeFile(opts.Path, cfg, opts.Required); err != nil {
			return nil, err
		}
	}

	environ := opts.Environment
	if environ == nil {
		environ = env.ToMap(os.Environ())
	}
	if err := applyEnv(cfg, environ); err != nil {
		return nil, err
	}

	if opts.Override != nil {
		opts.Override(cfg)
	}

	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML onto the defaults without consulting the environment.
// It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

func decodeFile(path string, cfg *Config, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, environ map[string]string) error {
	if port := environ[EnvPort]; port != "" {
		cfg.Server.ListenAddress = net.JoinHostPort("0.0.0.0", port)
	}
	if proxyURL := environ[EnvAllProxy]; proxyURL != "" {
		cfg.Backend.ProxyURL = proxyURL
	}
	if token := environ[EnvAuthorization]; token != "" {
		cfg.Server.AuthToken = token
	}

	if err := env.ParseWithOptions(cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	}); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}
