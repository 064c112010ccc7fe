// Package config loads daemon configuration from environment
// variables. Nothing here is secret: passwords never pass through
// configuration, they arrive per request and die with the call.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Store drivers accepted by LOCKSPACE_STORE.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

// Config holds all daemon configuration.
type Config struct {
	// Server
	ListenAddr string

	// Logging
	LogLevel  string
	LogFormat string

	// Store backend
	StoreDriver string
	DatabaseURL string // postgres
	MongoURI    string // mongo
	MongoDB     string // mongo
	DataPath    string // file

	// Uploads
	MaxUploadBytes int64

	// Sessions
	TokenTTL time.Duration

	// Metrics
	MetricsEnabled bool
}

// Load reads configuration from environment variables with defaults.
// The listen address defaults to loopback: the daemon trusts its
// bearer tokens, not the network.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:     envOr("LOCKSPACE_LISTEN_ADDR", "127.0.0.1:8787"),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		LogFormat:      envOr("LOG_FORMAT", "json"),
		StoreDriver:    envOr("LOCKSPACE_STORE", StoreFile),
		DatabaseURL:    envOr("DATABASE_URL", ""),
		MongoURI:       envOr("MONGO_URI", ""),
		MongoDB:        envOr("MONGO_DB", "lockspace"),
		DataPath:       envOr("LOCKSPACE_PATH", ""),
		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 32<<20),
		TokenTTL:       time.Duration(envInt64("TOKEN_TTL_MIN", 15)) * time.Minute,
		MetricsEnabled: envBool("METRICS_ENABLED", true),
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 15 * time.Minute
	}

	switch cfg.StoreDriver {
	case StoreFile:
		if cfg.DataPath == "" {
			cfg.DataPath = DefaultDataPath()
		}
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for LOCKSPACE_STORE=postgres")
		}
	case StoreMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("MONGO_URI is required for LOCKSPACE_STORE=mongo")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("unknown LOCKSPACE_STORE %q", cfg.StoreDriver)
	}

	return cfg, nil
}

// DefaultDataPath is where the file store lives when LOCKSPACE_PATH is
// unset.
func DefaultDataPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "lockspace.json"
	}
	return filepath.Join(home, ".lockspace", "store.json")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
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

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}
