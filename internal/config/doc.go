// Package config provides centralized configuration management for the
// LICIEL synthesis service and its command line tools.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML file (LICIEL_CONFIG, or liciel.yaml / configs/liciel.yaml)
//	3. Default values (lowest priority)
//
// Optional .env.local and .env files are read first; they never override
// variables that are already set in the process environment.
//
// # Environment Variables
//
// All environment variables follow the pattern LICIEL_<SECTION>_<FIELD>:
//
//	LICIEL_SERVER_PORT=8080
//	LICIEL_SCAN_ROOT_DIR=/srv/missions
//	LICIEL_SCAN_WORKERS=4
//	LICIEL_PAYLOAD_STORE=postgres
//	LICIEL_PAYLOAD_TTL=10m
//	LICIEL_POSTGRES_URL=postgres://...
//	LICIEL_LOGGING_LEVEL=debug
//
// # Payload Stores
//
// The interchange payload can be held in memory (default), in Postgres or
// in an S3 compatible bucket. Every store honors the same expiry window.
package config
