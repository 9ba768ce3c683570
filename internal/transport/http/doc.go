// Package http implements the HTTP handlers of the synthesis service.
// Handlers are thin: they decode and validate the request, call a service
// and render the result, leaving business rules to internal/services.
//
// # Routes
//
//	POST /api/scans                         scan the mission root, store a payload
//	GET  /api/scans/latest                  summary of the last scan
//	GET  /api/missions                      missions of the last scan (?field=&value=&domain=)
//	GET  /api/missions/facets               filter values with counts
//	GET  /api/missions/{id}                 mission detail view
//	POST /api/missions/payload              payload from the last scan, no rescan
//	POST /api/payloads                      store an interchange payload
//	GET  /api/payloads/{id}                 read a payload (ETag, 410 expired, 422 corrupt)
//	GET  /api/payloads/{id}/groups          city, address and unit tree
//	GET  /api/payloads/{id}/export.{format} csv, xlsx, html or pdf
//	GET  /healthz                           liveness
//	GET  /healthz/ready                     readiness
//
// # Error Handling
//
// Service errors are mapped to API errors by mapError and rendered as
// RFC 7807 problem documents by the shared ErrorHandler:
//
//	{
//	    "type": "/errors/payload/expired",
//	    "title": "Gone",
//	    "status": 410,
//	    "detail": "Payload has expired",
//	    "instance": "/api/payloads/6f1c...",
//	    "trace_id": "..."
//	}
//
// # Testing
//
// Handlers are tested with httptest against testify mocks of the
// service interfaces declared in interfaces.go.
package http
