// Package config provides application configuration management.
//
// # Overview
//
// Configuration comes from an optional YAML file plus environment variables
// with sensible defaults for all settings. Environment variables win over
// the file; the file can be hot-reloaded with Watch.
//
// # Configuration Structure
//
// Server settings:
//
//	V6CONSOLE_HOST="0.0.0.0"
//	V6CONSOLE_PORT="7681"
//	V6CONSOLE_HEALTH_PORT="9090"
//	V6CONSOLE_READ_TIMEOUT="15s"
//	V6CONSOLE_WRITE_TIMEOUT="15s"
//
// Platform settings:
//
//	V6CONSOLE_PLATFORM_URL="https://server.vantage6.ai"
//	V6CONSOLE_PLATFORM_TIMEOUT="30s"
//	V6CONSOLE_PLATFORM_RETRY_MAX="3"
//
// Session and cache settings:
//
//	V6CONSOLE_SESSION_TTL="8h"
//	V6CONSOLE_SESSION_SWEEP_SCHEDULE="*/5 * * * *"
//	V6CONSOLE_CACHE_ENABLED="true"
//	V6CONSOLE_CACHE_TTL="30s"
//	V6CONSOLE_REDIS_URL="redis://localhost:6379"
//
// Observability settings:
//
//	V6CONSOLE_LOG_LEVEL="info"  # debug, info, warn, error
//	V6CONSOLE_METRICS_ENABLED="true"
//	V6CONSOLE_TRACING_ENABLED="false"
//	V6CONSOLE_TRACING_ENDPOINT="otel-collector:4317"
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
//	fmt.Printf("Platform: %s\n", cfg.Platform.URL)
//
// # Related Packages
//
//   - pkg/platform: Uses platform configuration
//   - pkg/observability: Uses observability configuration
package config
