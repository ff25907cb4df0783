// Package config provides centralized configuration management for the
// almanac service. It loads configuration from layered sources and
// validates the result before anything else starts.
//
// # Configuration Sources
//
// Configuration is assembled from the following sources, later layers
// overriding earlier ones:
//
//	1. Built-in defaults (Default)
//	2. YAML configuration file (--config, or ./config.yaml when present)
//	3. Environment variables (highest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern ALMANAC_<SECTION>_<KEY>:
//
//	ALMANAC_SERVER_PORT=8072
//	ALMANAC_DATABASE_HOST=db.internal
//	ALMANAC_CACHE_BACKEND=redis
//	ALMANAC_CACHE_REDIS_ADDRESS=127.0.0.1:6379
//	ALMANAC_LOGGING_LEVEL=debug
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load(configPath)
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
