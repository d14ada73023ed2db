// Package app wires configuration, logging, telemetry and the startup store
// into the two entry points: a batch pipeline run and the read-only web
// server.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, file and environment
//	2. Initialize logging and telemetry
//	3. Resolve report paths and open the store
//	4. Build either a pipeline or the HTTP router on top
//
// # Usage
//
//	application, err := app.NewApplication(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer application.Close(ctx)
//	return application.Run(ctx)
//
// # Graceful Shutdown
//
// Run serves until SIGINT or SIGTERM, then drains in-flight requests within
// the configured shutdown timeout. Close flushes telemetry, closes the
// database pool and the log file.
//
// # Error Handling
//
// Initialization errors are returned to the caller. The package never calls
// os.Exit; main decides the exit code.
package app
