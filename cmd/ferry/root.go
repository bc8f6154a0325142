package main

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ferryhq/ferry/pkg/cli"
)

const defaultConfigFile = "config.yaml"

var (
	cfgFile string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "ferry",
	Short: "OpenAI-compatible gateway for the anonymous ChatGPT backend",
	Long: `Ferry exposes an OpenAI-compatible /v1/chat/completions endpoint and drives
the login-free ChatGPT web backend to answer it.

Each request solves the backend's proof-of-work challenge, replays the
conversation, and relays the answer as OpenAI chunks or a single completion.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadEnvFile,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigFile, "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment (missing file is ignored)")
}

// loadEnvFile fills unset variables from the dotenv file. Variables already
// present in the environment win.
func loadEnvFile(cmd *cobra.Command, args []string) error {
	if envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return cli.NewConfigError("env-file", "failed to load "+envFile, err)
	}
	return nil
}

// configRequired reports whether a missing config file is an error: only
// when the user named one explicitly.
func configRequired(cmd *cobra.Command) bool {
	return cmd.Flags().Changed("config")
}
