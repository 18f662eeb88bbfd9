// Package app wires the dashboard together and manages its lifecycle.
//
// # Initialization Flow
//
//	1. Check that the configured dataset file exists
//	2. Initialize OpenTelemetry and the business metrics
//	3. Create the dataset loader and cache, load the dataset once
//	4. Start the WebSocket hub and subscribe it to dataset reloads
//	5. Build the filter pipeline, exporter and services
//	6. Set up the router, middleware and HTTP server
//
// A missing or unreadable dataset aborts startup with an error; nothing
// listens until the first load succeeded.
//
// # Usage
//
//	application, err := app.NewApplication(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// Run returns once ctx is cancelled and the shutdown finished: the HTTP
// server drains, WebSocket clients receive a close frame and the telemetry
// providers flush.
package app
