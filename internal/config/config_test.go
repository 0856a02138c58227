package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every MC_ env var that Load() reads.
var allConfigKeys = []string{
	"MC_LISTEN_ADDR",
	"MC_STORE_DRIVER",
	"MC_DATA_DIR",
	"MC_ENCRYPTION_KEY",
	"MC_ALLOW_DERIVED_KEY",
	"MC_LOG_LEVEL",
	"MC_SEED_FILE",
}

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// isolateConfigEnv saves and unsets all MC_ env vars so tests don't
// inherit values from the host environment.
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("MC_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("MC_STORE_DRIVER", "bolt")
	t.Setenv("MC_DATA_DIR", "/var/lib/mc")
	t.Setenv("MC_ENCRYPTION_KEY", testKeyHex)
	t.Setenv("MC_LOG_LEVEL", "debug")
	t.Setenv("MC_SEED_FILE", "/etc/mc/seed.yaml")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, StoreDriverBolt, cfg.StoreDriver)
	assert.Equal(t, "/var/lib/mc", cfg.DataDir)
	assert.Equal(t, "/var/lib/mc/missioncontrol.sqlite", cfg.SQLitePath())
	assert.Len(t, cfg.EncryptionKey, 32)
	assert.Equal(t, byte(0x1f), cfg.EncryptionKey[31])
	assert.Equal(t, KeySourceEnv, cfg.KeySource)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "/etc/mc/seed.yaml", cfg.SeedFile)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("MC_ENCRYPTION_KEY", testKeyHex)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, StoreDriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Empty(t, cfg.SeedFile)
}

func TestLoad_MissingKeyFails(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoEncryptionKey)
}

func TestLoad_DerivedKeyWhenAllowed(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("MC_ALLOW_DERIVED_KEY", "true")

	orig := hostname
	t.Cleanup(func() { hostname = orig })
	hostname = func() (string, error) { return "build-host-01", nil }

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, KeySourceDerived, cfg.KeySource)
	assert.Len(t, cfg.EncryptionKey, 32)

	again, err := DeriveHostKey()
	require.NoError(t, err)
	assert.Equal(t, cfg.EncryptionKey, again, "derivation is deterministic per host")

	hostname = func() (string, error) { return "build-host-02", nil }
	other, err := DeriveHostKey()
	require.NoError(t, err)
	assert.NotEqual(t, cfg.EncryptionKey, other)
}

func TestLoad_ExplicitKeyWinsOverDerived(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("MC_ENCRYPTION_KEY", testKeyHex)
	t.Setenv("MC_ALLOW_DERIVED_KEY", "true")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, KeySourceEnv, cfg.KeySource)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown store driver",
			env:     map[string]string{"MC_STORE_DRIVER": "postgres"},
			wantErr: "MC_STORE_DRIVER",
		},
		{
			name:    "bad log level",
			env:     map[string]string{"MC_LOG_LEVEL": "verbose"},
			wantErr: "MC_LOG_LEVEL",
		},
		{
			name:    "bad derived flag",
			env:     map[string]string{"MC_ALLOW_DERIVED_KEY": "sometimes"},
			wantErr: "MC_ALLOW_DERIVED_KEY",
		},
		{
			name:    "key not hex",
			env:     map[string]string{"MC_ENCRYPTION_KEY": strings.Repeat("zz", 32)},
			wantErr: "not valid hex",
		},
		{
			name:    "key too short",
			env:     map[string]string{"MC_ENCRYPTION_KEY": "abcd"},
			wantErr: "32 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			if _, ok := tt.env["MC_ENCRYPTION_KEY"]; !ok {
				t.Setenv("MC_ENCRYPTION_KEY", testKeyHex)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_StoreDriverCaseInsensitive(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("MC_ENCRYPTION_KEY", testKeyHex)
	t.Setenv("MC_STORE_DRIVER", " JSONFile ")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, StoreDriverJSONFile, cfg.StoreDriver)
}
