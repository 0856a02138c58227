// Package app assembles the driven adapters and application services shared
// by the server and the admin CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ericfisherdev/missioncontrol/internal/adapter/driven/aesgcm"
	boltadapter "github.com/ericfisherdev/missioncontrol/internal/adapter/driven/bolt"
	"github.com/ericfisherdev/missioncontrol/internal/adapter/driven/jsonfile"
	sqliteadapter "github.com/ericfisherdev/missioncontrol/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/missioncontrol/internal/application"
	"github.com/ericfisherdev/missioncontrol/internal/config"
	"github.com/ericfisherdev/missioncontrol/internal/domain/model"
	"github.com/ericfisherdev/missioncontrol/internal/domain/port/driven"
)

// Services bundles the application services over one document store.
type Services struct {
	Vault     *application.VaultService
	Catalog   *application.CatalogService
	Scheduler *application.SchedulerService
	Ledger    *application.LedgerService
	Quotas    *application.QuotaService
	Metrics   *application.MetricsService
	Seeder    *application.Seeder
}

// OpenStore creates the data directory and opens the configured document store.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (driven.DocumentStore, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	switch cfg.StoreDriver {
	case config.StoreDriverSQLite:
		path := cfg.SQLitePath()
		db, err := sqliteadapter.NewDB(ctx, path)
		if err != nil {
			return nil, err
		}
		version, err := sqliteadapter.RunMigrations(db.Writer)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("database opened", "driver", cfg.StoreDriver, "path", path, "schema_version", version)
		return sqliteadapter.NewDocumentRepo(db), nil
	case config.StoreDriverBolt:
		store, err := boltadapter.Open(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		logger.Info("database opened", "driver", cfg.StoreDriver, "dir", cfg.DataDir)
		return store, nil
	case config.StoreDriverJSONFile:
		store, err := jsonfile.Open(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		logger.Info("database opened", "driver", cfg.StoreDriver, "dir", cfg.DataDir)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// NewCipher builds the vault cipher from the configured key and warns when
// the key was derived from the hostname.
func NewCipher(cfg *config.Config, logger *slog.Logger) (*aesgcm.Cipher, error) {
	if cfg.KeySource == config.KeySourceDerived {
		logger.Warn("using hostname-derived encryption key; anyone who knows the hostname can decrypt stored credentials, set MC_ENCRYPTION_KEY")
	}
	return aesgcm.New(cfg.EncryptionKey)
}

// NewServices wires every application service to the store.
func NewServices(store driven.DocumentStore, cipher driven.Cipher, clock driven.Clock, logger *slog.Logger) *Services {
	catalog := application.NewCatalogService(store, clock, logger)
	quotas := application.NewQuotaService(store, clock, logger)
	return &Services{
		Vault:     application.NewVaultService(store, cipher, clock, logger),
		Catalog:   catalog,
		Scheduler: application.NewSchedulerService(store, catalog, clock, logger),
		Ledger:    application.NewLedgerService(store, clock, logger),
		Quotas:    quotas,
		Metrics:   application.NewMetricsService(store, clock, logger),
		Seeder:    application.NewSeeder(catalog, quotas, logger),
	}
}

// ApplySeedFile loads a YAML seed file and applies it.
func (s *Services) ApplySeedFile(ctx context.Context, path string) (application.SeedResult, error) {
	seed, err := config.LoadSeed(path)
	if err != nil {
		return application.SeedResult{}, err
	}

	resources := make([]model.NewResource, 0, len(seed.Resources))
	for _, r := range seed.Resources {
		resources = append(resources, r.NewResource())
	}
	quotas := make([]model.QuotaSpec, 0, len(seed.Quotas))
	for _, q := range seed.Quotas {
		quotas = append(quotas, q.QuotaSpec())
	}

	return s.Seeder.Apply(ctx, resources, quotas)
}
