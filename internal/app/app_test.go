package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/missioncontrol/internal/application"
	"github.com/ericfisherdev/missioncontrol/internal/config"
	"github.com/ericfisherdev/missioncontrol/internal/domain/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T, driver config.StoreDriver) *config.Config {
	t.Helper()
	return &config.Config{
		StoreDriver:   driver,
		DataDir:       filepath.Join(t.TempDir(), "data"),
		EncryptionKey: bytes.Repeat([]byte{1}, 32),
		KeySource:     config.KeySourceEnv,
	}
}

func TestOpenStore_EveryDriverServesTheServices(t *testing.T) {
	drivers := []config.StoreDriver{
		config.StoreDriverSQLite,
		config.StoreDriverBolt,
		config.StoreDriverJSONFile,
	}

	for _, driver := range drivers {
		t.Run(string(driver), func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t, driver)

			store, err := OpenStore(ctx, cfg, testLogger())
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })

			cipher, err := NewCipher(cfg, testLogger())
			require.NoError(t, err)
			svc := NewServices(store, cipher, application.SystemClock{}, testLogger())

			cred, err := svc.Vault.Store(ctx, model.NewCredential{Name: "gh", Service: "github", Value: "secret"})
			require.NoError(t, err)
			got, err := svc.Vault.Get(ctx, cred.ID, true)
			require.NoError(t, err)
			require.NotNil(t, got.Value)
			assert.Equal(t, "secret", *got.Value)

			_, err = svc.Quotas.SetQuota(ctx, model.QuotaSpec{Type: model.QuotaTypeCost, Limit: 10})
			require.NoError(t, err)
			quotas, err := svc.Quotas.GetQuotas(ctx, "")
			require.NoError(t, err)
			assert.Len(t, quotas, 1)

			_, err = os.Stat(cfg.DataDir)
			assert.NoError(t, err)
		})
	}
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	cfg := testConfig(t, "postgres")

	_, err := OpenStore(context.Background(), cfg, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver")
}

func TestNewCipher_WarnsOnDerivedKey(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := testConfig(t, config.StoreDriverJSONFile)
	cfg.KeySource = config.KeySourceDerived

	_, err := NewCipher(cfg, logger)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "hostname-derived")

	buf.Reset()
	cfg.KeySource = config.KeySourceEnv
	_, err = NewCipher(cfg, logger)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestApplySeedFile(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.StoreDriverBolt)

	store, err := OpenStore(ctx, cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cipher, err := NewCipher(cfg, testLogger())
	require.NoError(t, err)
	svc := NewServices(store, cipher, application.SystemClock{}, testLogger())

	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
resources:
  - id: gpu-1
    name: A100
    type: gpu
    cost_per_hour: 2
quotas:
  - agent_id: agent-1
    type: tokens
    limit: 1000
`), 0o600))

	result, err := svc.ApplySeedFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, application.SeedResult{ResourcesCreated: 1, QuotasApplied: 1}, result)

	result, err = svc.ApplySeedFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, application.SeedResult{ResourcesSkipped: 1, QuotasApplied: 1}, result)

	res, err := svc.Catalog.Get(ctx, "gpu-1")
	require.NoError(t, err)
	assert.Equal(t, "A100", res.Name)
}
