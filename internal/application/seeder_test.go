package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/missioncontrol/internal/application"
	"github.com/ericfisherdev/missioncontrol/internal/domain/model"
)

func TestSeeder_ApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	clock := newFakeClock(epoch)
	catalog := application.NewCatalogService(store, clock, discardLogger())
	quotas := application.NewQuotaService(store, clock, discardLogger())
	seeder := application.NewSeeder(catalog, quotas, discardLogger())

	resources := []model.NewResource{
		{ID: "gpu-1", Name: "A100", Type: "gpu", CostPerHour: 2},
		{ID: "vm-1", Name: "builder", Type: "vm"},
	}
	specs := []model.QuotaSpec{
		{Type: model.QuotaTypeCost, Limit: 500},
		{AgentID: ptr("agent-1"), Type: model.QuotaTypeAPICalls, Limit: 100},
	}

	first, err := seeder.Apply(ctx, resources, specs)
	require.NoError(t, err)
	assert.Equal(t, application.SeedResult{ResourcesCreated: 2, QuotasApplied: 2}, first)

	_, err = quotas.UpdateQuotaUsage(ctx, "agent-1:api_calls", 40)
	require.NoError(t, err)

	second, err := seeder.Apply(ctx, resources, specs)
	require.NoError(t, err)
	assert.Equal(t, application.SeedResult{ResourcesSkipped: 2, QuotasApplied: 2}, second)

	all, err := quotas.GetQuotas(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.InDelta(t, 40.0, all[1].CurrentUsage, 1e-9, "re-seeding keeps accrued usage")

	list, err := catalog.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestSeeder_RequiresResourceID(t *testing.T) {
	store := newMemStore()
	clock := newFakeClock(epoch)
	seeder := application.NewSeeder(
		application.NewCatalogService(store, clock, discardLogger()),
		application.NewQuotaService(store, clock, discardLogger()),
		discardLogger(),
	)

	_, err := seeder.Apply(context.Background(), []model.NewResource{{Name: "x", Type: "vm"}}, nil)
	assert.ErrorIs(t, err, model.ErrValidation)
}
