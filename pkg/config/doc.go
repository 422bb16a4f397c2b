// Package config loads docvault configuration.
//
// Values are layered: built-in defaults, then the YAML file named by
// DOCVAULT_CONFIG_FILE, then environment variables. A .env file in the
// working directory is loaded first with godotenv and never overrides
// variables that are already set.
//
// Secrets are read from the environment only:
//
//	ENCRYPTION_KEY="<64 hex characters>"   # AES-256 key for stored API keys
//	JWT_SECRET="<at least 32 bytes>"
//	DATABASE_URL="postgres://localhost/docvault?sslmode=disable"
//	DOCVAULT_PDP_TOKEN="..."                # remote policy decision point
//
// Everything else has a DOCVAULT_ prefix:
//
//	DOCVAULT_PORT="8080"
//	DOCVAULT_HEALTH_PORT="9090"
//	DOCVAULT_LOG_LEVEL="info"               # debug, info, warn, error
//	DOCVAULT_STORAGE_TYPE="s3"              # none, filesystem, s3
//	DOCVAULT_REDIS_URL="redis://localhost:6379"
//	DOCVAULT_AUDIT_SINK="both"              # db, log, both
//
// LoadConfig validates the encryption key by building a cipher, so a missing
// or malformed key fails at startup with a secrets.ConfigurationError.
package config
