// Package config provides 12-factor configuration for the orchestration host.
//
// Configuration is loaded from environment variables with sensible defaults
// and validated before use.
//
// Configuration Sections:
//   - Home: persistence root and items directory
//   - Loading: collision policy, hydration policy and workers, exclude globs
//   - BuildLog: drain grace period, compression, buffering, stream bandwidth
//   - Server: HTTP server settings (port, host)
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting
//
// Example Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("Serving %s on %s\n", cfg.Home.Dir, cfg.Server.Addr())
//
// Environment Variables:
//   - CI_HOME, CI_ITEMS_DIR, CI_CREATE_MISSING
//   - CI_COLLISION_POLICY, CI_HYDRATION_POLICY, CI_HYDRATION_WORKERS, CI_LOADER_EXCLUDE
//   - CI_LOG_DRAIN_TIMEOUT, CI_LOG_COMPRESS, CI_LOG_BUFFER_SIZE, CI_LOG_STREAM_BPS
//   - PORT, HOST, LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
