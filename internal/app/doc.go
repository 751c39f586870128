// Package app wires configuration, telemetry, the ranking service, the run
// broadcaster and the websocket hub behind a chi router, and owns the HTTP
// server lifecycle.
//
// Startup order:
//
//	1. Validate configuration
//	2. Initialize OpenTelemetry and the business metrics
//	3. Build the source, the ranking service and the run broadcaster
//	4. Mount handlers and middleware
//	5. Start the hub and the server, then load the source in the background
//
// Run blocks until SIGINT, SIGTERM or a server failure and then shuts down
// gracefully. Errors are returned to the caller; nothing here calls os.Exit.
package app
