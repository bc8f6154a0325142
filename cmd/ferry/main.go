// Ferry is an OpenAI-compatible chat completions gateway in front of the
// anonymous ChatGPT web backend.
//
// Usage:
//
//	# Start the gateway on 0.0.0.0:3040 with defaults
//	ferry run
//
//	# Start with a configuration file and an outbound SOCKS proxy
//	ALL_PROXY=socks5://127.0.0.1:1080 ferry run --config /etc/ferry/config.yaml
//
//	# Check the effective configuration
//	ferry config validate --output json
//
//	# Solve a proof-of-work challenge locally
//	ferry solve --seed 0.42 --difficulty 0fffff
package main

import (
	"fmt"
	"os"

	"ferryhq/ferry/pkg/cli"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}
