// Package config loads the ferry process configuration.
//
// Values are applied in this order, later sources overriding earlier ones:
//
//  1. Defaults (defaults.go)
//  2. The YAML file (a missing file is tolerated unless Options.Required)
//  3. Compatibility variables PORT, ALL_PROXY and AUTHORIZATION
//  4. FERRY_ environment variables, e.g. FERRY_BACKEND_PROXY_URL
//  5. Options.Override (command-line flags)
//  6. Validation, which reports every invalid field at once:
//
//	configuration validation failed with 2 errors:
//	  - backend.device_scope: invalid device scope "global": must be 'request' or 'process'
//	  - translation.history_mode: invalid history mode "raw": must be 'flatten' or 'multi_turn'
//
// The configuration is read-only after startup. Watcher re-reads the file
// on change so the caller can apply a new log level.
//
// A minimal file:
//
//	server:
//	  listen_address: "127.0.0.1:3040"
//	backend:
//	  proxy_url: "socks5h://127.0.0.1:1080"
//	translation:
//	  history_mode: multi_turn
package config
