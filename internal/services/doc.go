// Package services implements the business logic behind the HTTP API.
//
// ScanService runs root scans one at a time, keeps the latest result for
// the mission endpoints, stores a payload of the scanned rows and reports
// progress to a notifier (the websocket hub in production). PayloadService
// fronts a payload.Store. ExportService renders a stored payload in one of
// the export formats. HealthService answers liveness and readiness.
//
// Handlers stay thin: they decode, call a service and map the returned
// sentinel errors to problem responses.
package services
