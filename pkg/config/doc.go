// Package config provides application configuration from environment
// variables with an optional YAML file underneath.
//
// # Overview
//
// Configuration is resolved in three layers: built-in defaults, then the
// YAML file named by STASH_CONFIG_FILE (if any), then environment variables.
// Later layers win.
//
// # Configuration Structure
//
// Server settings:
//
//	STASH_HOST="0.0.0.0"
//	STASH_PORT="8080"
//	STASH_READ_TIMEOUT="15s"
//	STASH_WRITE_TIMEOUT="15s"
//	STASH_SHUTDOWN_TIMEOUT="30s"
//
// Store settings:
//
//	STASH_STORE_TYPE="file"  # file, sqlite, postgres, redis, s3
//	STASH_STATE_FILE="/var/stash/state.json"
//	STASH_SAVE_DELAY="250ms"
//	STASH_WATCH_ENABLED="false"
//	STASH_BACKUP_SCHEDULE="@hourly"
//	STASH_SQLITE_PATH="/var/stash/stash.db"
//	STASH_POSTGRES_URL="postgres://localhost/stash"
//	STASH_REDIS_URL="redis://localhost:6379"
//	STASH_S3_BUCKET="stash-state"
//	STASH_S3_REGION="us-east-1"
//
// Observability settings:
//
//	STASH_LOG_LEVEL="info"  # debug, info, warn, error
//	STASH_METRICS_ENABLED="true"
//	STASH_OTEL_ENABLED="false"
//	STASH_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Store: %s\n", cfg.Store.Type)
//
// # Related Packages
//
//   - pkg/storage: backends configured by the store settings
//   - pkg/observability: logging and metrics configured here
package config
