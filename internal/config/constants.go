package config

import "time"

// Application constants
const (
	// Application Info
	AppName    = "liciel-synthese"
	AppVersion = "1.4.0"

	// EnvPrefix namespaces every environment variable (LICIEL_SERVER_PORT, ...).
	EnvPrefix = "LICIEL"

	// Payload stores
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreObject   = "object"

	// The hand-off payload expires this long after its createdAt stamp.
	DefaultPayloadTTL        = 10 * time.Minute
	DefaultPayloadMaxEntries = 256

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Watch mode
	DefaultWatchDebounce = 2 * time.Second

	// WebSocket
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// File Paths
	DefaultExportDir = "exports"
	DefaultLogFile   = "logs/liciel.log"
)

// API paths
const (
	APIBasePath       = "/api"
	HealthEndpoint    = "/healthz"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
