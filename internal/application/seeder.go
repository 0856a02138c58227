package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/missioncontrol/internal/domain/model"
)

// SeedResult counts what Seeder.Apply changed.
type SeedResult struct {
	ResourcesCreated int
	ResourcesSkipped int
	QuotasApplied    int
}

// Seeder provisions declared resources and quotas. Applying the same
// declarations twice leaves the store unchanged: resources are matched by id
// and quotas are upserted by scope and type.
type Seeder struct {
	catalog *CatalogService
	quotas  *QuotaService
	logger  *slog.Logger
}

// NewSeeder creates a new Seeder.
func NewSeeder(catalog *CatalogService, quotas *QuotaService, logger *slog.Logger) *Seeder {
	return &Seeder{catalog: catalog, quotas: quotas, logger: logger}
}

// Apply creates missing resources and applies every quota spec.
func (s *Seeder) Apply(ctx context.Context, resources []model.NewResource, quotas []model.QuotaSpec) (SeedResult, error) {
	var result SeedResult

	for _, in := range resources {
		if in.ID == "" {
			return result, model.NewValidationError("id", "seeded resources need an explicit id")
		}
		_, err := s.catalog.Get(ctx, in.ID)
		if err == nil {
			result.ResourcesSkipped++
			continue
		}
		if !isNotFound(err) {
			return result, fmt.Errorf("seed resource %q: %w", in.ID, err)
		}
		if _, err := s.catalog.Create(ctx, in); err != nil {
			return result, fmt.Errorf("seed resource %q: %w", in.ID, err)
		}
		result.ResourcesCreated++
	}

	for _, spec := range quotas {
		if _, err := s.quotas.SetQuota(ctx, spec); err != nil {
			return result, fmt.Errorf("seed quota %s: %w", model.QuotaID(derefStr(spec.AgentID), spec.Type), err)
		}
		result.QuotasApplied++
	}

	s.logger.Info("seed applied",
		"resources_created", result.ResourcesCreated,
		"resources_skipped", result.ResourcesSkipped,
		"quotas_applied", result.QuotasApplied,
	)
	return result, nil
}
