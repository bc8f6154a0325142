// Package logging builds the process slog logger.
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Redact: true,
//	})
//	slog.SetDefault(logger.Slog())
//
// The level lives in a slog.LevelVar, so SetLevel takes effect for every
// logger derived from the default one.
//
// With Redact set, attributes are masked before they are written:
//
//   - Bearer tokens: Bearer abc.def → Bearer ***
//   - Proof and sentinel tokens: gAAAAABxyz… → gAAAAA***
//   - API keys: sk-abc123 → sk-***
//   - Any attribute whose key names a token, secret or credential
package logging
