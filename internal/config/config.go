// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// StoreDriver selects the document store adapter.
type StoreDriver string

const (
	StoreDriverSQLite   StoreDriver = "sqlite"
	StoreDriverBolt     StoreDriver = "bolt"
	StoreDriverJSONFile StoreDriver = "jsonfile"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr    string
	StoreDriver   StoreDriver
	DataDir       string
	EncryptionKey []byte
	KeySource     KeySource
	LogLevel      slog.Level
	SeedFile      string
}

// SQLitePath returns the database file used by the sqlite driver.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "missioncontrol.sqlite")
}

// Load reads configuration from environment variables and returns a validated Config.
// Optional variables with defaults: MC_LISTEN_ADDR (127.0.0.1:8080),
// MC_STORE_DRIVER (sqlite), MC_DATA_DIR (./data), MC_LOG_LEVEL (info).
// MC_ENCRYPTION_KEY must be 64 hex characters; without it, a host-derived key
// is used only when MC_ALLOW_DERIVED_KEY=true.
func Load() (*Config, error) {
	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("MC_LISTEN_ADDR"); ok && v != "" {
		listenAddr = v
	}

	driver := StoreDriverSQLite
	if v, ok := os.LookupEnv("MC_STORE_DRIVER"); ok && v != "" {
		driver = StoreDriver(strings.ToLower(strings.TrimSpace(v)))
		switch driver {
		case StoreDriverSQLite, StoreDriverBolt, StoreDriverJSONFile:
		default:
			return nil, fmt.Errorf("MC_STORE_DRIVER must be one of sqlite, bolt, jsonfile; got %q", v)
		}
	}

	dataDir := "./data"
	if v, ok := os.LookupEnv("MC_DATA_DIR"); ok && v != "" {
		dataDir = v
	}

	logLevel := slog.LevelInfo
	if v, ok := os.LookupEnv("MC_LOG_LEVEL"); ok && v != "" {
		if err := logLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("MC_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	allowDerived := false
	if v, ok := os.LookupEnv("MC_ALLOW_DERIVED_KEY"); ok && v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("MC_ALLOW_DERIVED_KEY has invalid boolean %q: %w", v, err)
		}
		allowDerived = parsed
	}

	key, source, err := resolveKey(os.Getenv("MC_ENCRYPTION_KEY"), allowDerived)
	if err != nil {
		return nil, err
	}

	return &Config{
		ListenAddr:    listenAddr,
		StoreDriver:   driver,
		DataDir:       dataDir,
		EncryptionKey: key,
		KeySource:     source,
		LogLevel:      logLevel,
		SeedFile:      os.Getenv("MC_SEED_FILE"),
	}, nil
}
