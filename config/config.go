// Package config holds the engine's runtime configuration, loaded from
// environment variables in the style of the pack's owl-common-family
// LoadFromEnv constructors (the teacher itself took all configuration as
// CLI flags via cobra; this package supplements that with an
// environment-variable path suited to running the engine as a service).
package config

import (
	"os"
	"strconv"
)

// EngineConfig is the runtime configuration for a terminology engine
// instance.
type EngineConfig struct {
	// DatabasePath is the directory holding the component store and
	// search index (spec §5).
	DatabasePath string
	// ReadOnly opens the store without permitting further imports.
	ReadOnly bool
	// BatchSize is the default import batch size (spec §4.2).
	BatchSize int
	// ImportWorkers bounds the import pipeline's worker pool size.
	ImportWorkers int
	// LogLevel is passed straight to logging.Options.
	LogLevel string
	// HTTPAddr is the address the HTTP server listens on, if started.
	HTTPAddr string
	// CacheAddr is the optional redis "host:port" backing the facade's
	// result cache. Empty disables caching.
	CacheAddr string
}

const (
	suffixDatabasePath  = "DB_PATH"
	suffixReadOnly      = "READ_ONLY"
	suffixBatchSize     = "BATCH_SIZE"
	suffixImportWorkers = "IMPORT_WORKERS"
	suffixLogLevel      = "LOG_LEVEL"
	suffixHTTPAddr      = "HTTP_ADDR"
	suffixCacheAddr     = "CACHE_ADDR"

	defaultBatchSize     = 5000
	defaultImportWorkers = 4
)

// LoadFromEnv builds an EngineConfig from environment variables named
// "<prefix>_<SUFFIX>" (e.g. LoadFromEnv("SCT") reads SCT_BATCH_SIZE),
// applying the defaults spec §4.2/§6 name where a variable is unset.
func LoadFromEnv(prefix string) *EngineConfig {
	return &EngineConfig{
		DatabasePath:  os.Getenv(envKey(prefix, suffixDatabasePath)),
		ReadOnly:      envBool(envKey(prefix, suffixReadOnly), false),
		BatchSize:     envInt(envKey(prefix, suffixBatchSize), defaultBatchSize),
		ImportWorkers: envInt(envKey(prefix, suffixImportWorkers), defaultImportWorkers),
		LogLevel:      envOr(envKey(prefix, suffixLogLevel), "info"),
		HTTPAddr:      envOr(envKey(prefix, suffixHTTPAddr), ":8080"),
		CacheAddr:     os.Getenv(envKey(prefix, suffixCacheAddr)),
	}
}

func envKey(prefix, suffix string) string {
	return prefix + "_" + suffix
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
