// Package config loads grove's configuration.
//
// Values are layered: built-in defaults, then an optional YAML file named by
// GROVE_CONFIG_FILE, then GROVE_* environment variables.
//
// Server settings:
//
//	GROVE_HOST="0.0.0.0"
//	GROVE_PORT="8080"
//	GROVE_HEALTH_PORT="9090"
//	GROVE_REQUEST_TIMEOUT="10s"
//	GROVE_CORS_ORIGINS="https://a.example,https://b.example"
//
// Storage settings:
//
//	GROVE_STORAGE_DRIVER="postgres"  # postgres or sqlite
//	GROVE_DATABASE_URL="postgres://localhost/grove?sslmode=disable"
//	GROVE_DB_MAX_CONNS="20"
//	GROVE_DB_BOOTSTRAP="true"
//
// Rate limiting:
//
//	GROVE_RATE_LIMIT_ENABLED="true"
//	GROVE_RATE_LIMIT_REQUESTS="100"
//	GROVE_RATE_LIMIT_WINDOW="1m"
//	GROVE_REDIS_URL="redis://localhost:6379"  # shared limits when set
//
// Observability:
//
//	GROVE_LOG_LEVEL="info"
//	GROVE_METRICS_ENABLED="true"
//	GROVE_OTEL_ENABLED="false"
//	GROVE_OTEL_ENDPOINT="localhost:4317"
//
// Other:
//
//	GROVE_SEED="false"
//	GROVE_STATS_SCHEDULE="@every 1m"
//
// The same keys in YAML:
//
//	server:
//	  port: "8080"
//	storage:
//	  driver: postgres
//	  dsn: postgres://localhost/grove
//	observability:
//	  log_level: debug
//
// Watch re-reads the file when it changes; cmd/grove uses it to adjust the
// log level without a restart.
package config
