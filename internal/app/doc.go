// Package app wires the almanac server together and manages its lifecycle.
// It owns configuration loading, logger and OpenTelemetry setup, the bar
// store and cache connections, service construction, the HTTP router and
// graceful shutdown.
//
// # Initialization Flow
//
// New builds the application in dependency order:
//
//	1. Load configuration from YAML and ALMANAC_* environment variables
//	2. Initialize the slog logger and OpenTelemetry providers
//	3. Open the Postgres bar store and the result cache
//	4. Build the event calendar (with optional overlay watcher)
//	5. Construct services and mount handlers on the chi router
//	6. Create the http.Server with the configured timeouts
//
// # Usage
//
// The main entry point is typically:
//
//	app, err := app.New(ctx, app.Options{ConfigPath: path})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := app.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// Run blocks until SIGINT or SIGTERM and then stops components in
// reverse order: HTTP listener first, then the warmup job, the websocket
// hub, the overlay watcher, and finally the store, cache and telemetry
// providers. Active requests get ShutdownTimeout to finish.
package app
