// Package app wires the liciel server together and manages its lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, liciel.yaml and LICIEL_* variables
//	2. Initialize logging and OpenTelemetry
//	3. Open the payload store (memory, postgres or object storage)
//	4. Build the mission scanner and the WebSocket hub
//	5. Create the scan, payload, export and health services
//	6. Set up the router: /api, /healthz, /metrics and /ws
//
// Start launches the listener, the optional folder watcher and the optional
// initial scan. Stop drains HTTP requests, stops the watcher and the hub,
// closes the store and flushes telemetry.
//
// # Usage
//
//	app, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return app.Run()
//
// Initialization errors are returned to the caller; the package never
// calls os.Exit.
package app
