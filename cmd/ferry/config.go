package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ferryhq/ferry/pkg/backend"
	"ferryhq/ferry/pkg/cli"
	"ferryhq/ferry/pkg/config"
)

const maskedValue = "********"

var configFlags struct {
	output string
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the gateway configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate the configuration",
	Long: `Load the configuration the way "ferry run" does (defaults, config file,
dotenv file, environment) and validate it. On success the effective
configuration is printed with secrets masked.

Examples:
  ferry config validate
  ferry config validate --config /etc/ferry/config.yaml --output json`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeSchema(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd, configSchemaCmd)

	configValidateCmd.Flags().StringVarP(&configFlags.output, "output", "o", "text", "output format (text, json)")
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(configFlags.output)
	if err != nil {
		return cli.NewConfigError("output", "invalid output format", err)
	}

	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), &configReport{
		Path:   configSource(cmd),
		Config: maskSecrets(cfg),
	})
}

// loadConfig reads the configuration for a command. The default config
// path may be absent; an explicit --config must exist.
func loadConfig(cmd *cobra.Command, override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		Path:     cfgFile,
		Required: configRequired(cmd),
		Override: override,
	})
	if err == nil {
		return cfg, nil
	}

	var verr config.ValidationError
	if errors.As(err, &verr) {
		return nil, cli.NewConfigError("", "invalid configuration", err)
	}
	return nil, cli.NewConfigError("config", "failed to load "+cfgFile, err)
}

func configSource(cmd *cobra.Command) string {
	if !configRequired(cmd) && !fileExists(cfgFile) {
		return ""
	}
	return cfgFile
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// maskSecrets returns a copy of cfg that is safe to print.
func maskSecrets(cfg *config.Config) *config.Config {
	masked := *cfg
	if masked.Server.AuthToken != "" {
		masked.Server.AuthToken = maskedValue
	}
	masked.Backend.ProxyURL = backend.RedactURL(masked.Backend.ProxyURL)
	return &masked
}

// configReport is the result of config validate.
type configReport struct {
	Path   string
	Config *config.Config
}

func (r *configReport) WriteText(w io.Writer) error {
	source := r.Path
	if source == "" {
		source = "defaults and environment"
	}
	if _, err := fmt.Fprintf(w, "Configuration valid (%s)\n\n", source); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r.Config); err != nil {
		return err
	}
	return enc.Close()
}

// MarshalJSON keys the configuration by its yaml names, so both outputs
// use the file's field names.
func (r *configReport) MarshalJSON() ([]byte, error) {
	raw, err := yaml.Marshal(r.Config)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := yaml.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Valid  bool           `json:"valid"`
		Path   string         `json:"path,omitempty"`
		Config map[string]any `json:"config"`
	}{Valid: true, Path: r.Path, Config: fields})
}

// writeSchema reflects the configuration types on their yaml tags.
func writeSchema(w io.Writer) error {
	r := &jsonschema.Reflector{
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: true,
	}
	schema := r.Reflect(&config.Config{})
	schema.Title = "ferry configuration"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
