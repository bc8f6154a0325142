// Package cli holds the helpers shared by the ferry commands: typed
// command errors and their exit codes, text and JSON result formatting,
// a progress bar for repeated solver runs, and signal handling for
// graceful shutdown.
//
//	ctx, stop := cli.SetupSignalHandler(context.Background())
//	defer stop()
//	return srv.Start(ctx)
package cli
