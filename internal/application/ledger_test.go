package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/missioncontrol/internal/application"
	"github.com/ericfisherdev/missioncontrol/internal/domain/model"
)

func TestLedger_RecordDefaults(t *testing.T) {
	ledger := application.NewLedgerService(newMemStore(), newFakeClock(epoch), discardLogger())

	entry, err := ledger.Record(context.Background(), model.NewCostEntry{Type: "api", Amount: 1.25})
	require.NoError(t, err)

	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "USD", entry.Currency)
	assert.Equal(t, "general", entry.Category)
	assert.Equal(t, epoch, entry.PeriodStart)
	assert.Equal(t, epoch, entry.PeriodEnd)
	assert.Equal(t, epoch, entry.RecordedAt)
	assert.NotNil(t, entry.Metadata)
	assert.Nil(t, entry.AgentID)
}

func TestLedger_RecordValidation(t *testing.T) {
	tests := []struct {
		name  string
		in    model.NewCostEntry
		field string
	}{
		{name: "missing type", in: model.NewCostEntry{Amount: 1}, field: "type"},
		{name: "negative amount", in: model.NewCostEntry{Type: "api", Amount: -1}, field: "amount"},
		{
			name:  "period end before start",
			in:    model.NewCostEntry{Type: "api", Amount: 1, PeriodStart: epoch, PeriodEnd: epoch.Add(-time.Hour)},
			field: "period_end",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := application.NewLedgerService(newMemStore(), newFakeClock(epoch), discardLogger())
			_, err := ledger.Record(context.Background(), tt.in)

			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestLedger_RecordDuplicateIDRejected(t *testing.T) {
	ctx := context.Background()
	ledger := application.NewLedgerService(newMemStore(), newFakeClock(epoch), discardLogger())

	_, err := ledger.Record(ctx, model.NewCostEntry{ID: "cost-1", Type: "api", Amount: 1})
	require.NoError(t, err)

	_, err = ledger.Record(ctx, model.NewCostEntry{ID: "cost-1", Type: "api", Amount: 99})
	assert.ErrorIs(t, err, model.ErrValidation)

	summary, err := ledger.Summarize(ctx, model.CostFilter{})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, summary.Total, 1e-9)
}

func TestLedger_Summarize(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(epoch)
	ledger := application.NewLedgerService(newMemStore(), clock, discardLogger())

	entries := []model.NewCostEntry{
		{Type: "compute", Category: "gpu", Amount: 10, AgentID: ptr("agent-1")},
		{Type: "api", Category: "llm", Amount: 20, AgentID: ptr("agent-2")},
		{Type: "compute", Category: "gpu", Amount: 30},
	}
	for _, e := range entries {
		clock.Advance(time.Minute)
		_, err := ledger.Record(ctx, e)
		require.NoError(t, err)
	}

	tests := []struct {
		name      string
		filter    model.CostFilter
		wantTotal float64
		wantItems int
	}{
		{name: "everything", filter: model.CostFilter{}, wantTotal: 60, wantItems: 3},
		{name: "by agent", filter: model.CostFilter{AgentID: "agent-1"}, wantTotal: 10, wantItems: 1},
		{name: "by type", filter: model.CostFilter{Type: "compute"}, wantTotal: 40, wantItems: 2},
		{name: "from excludes first", filter: model.CostFilter{From: epoch.Add(90 * time.Second)}, wantTotal: 50, wantItems: 2},
		{name: "no match", filter: model.CostFilter{Type: "storage"}, wantTotal: 0, wantItems: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, err := ledger.Summarize(ctx, tt.filter)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantTotal, summary.Total, 1e-9)
			assert.Len(t, summary.Items, tt.wantItems)
		})
	}

	summary, err := ledger.Summarize(ctx, model.CostFilter{})
	require.NoError(t, err)
	assert.InDelta(t, 40.0, summary.ByType["compute"], 1e-9)
	assert.InDelta(t, 20.0, summary.ByType["api"], 1e-9)
	assert.InDelta(t, 40.0, summary.ByCategory["gpu"], 1e-9)
	assert.Len(t, summary.ByAgent, 2, "entries without an agent stay out of ByAgent")
	assert.InDelta(t, 10.0, summary.ByAgent["agent-1"], 1e-9)

	for i := 1; i < len(summary.Items); i++ {
		assert.False(t, summary.Items[i].RecordedAt.Before(summary.Items[i-1].RecordedAt))
	}
}

func TestLedger_EmptyReferencesStoredAsNull(t *testing.T) {
	ctx := context.Background()
	ledger := application.NewLedgerService(newMemStore(), newFakeClock(epoch), discardLogger())

	entry, err := ledger.Record(ctx, model.NewCostEntry{
		Type:       "api_usage",
		Amount:     5,
		AgentID:    ptr(""),
		ResourceID: ptr(""),
		BookingID:  ptr(""),
	})
	require.NoError(t, err)
	assert.Nil(t, entry.AgentID)
	assert.Nil(t, entry.ResourceID)
	assert.Nil(t, entry.BookingID)

	_, err = ledger.Record(ctx, model.NewCostEntry{Type: "api_usage", Amount: 3, AgentID: ptr("agent-1")})
	require.NoError(t, err)

	summary, err := ledger.Summarize(ctx, model.CostFilter{})
	require.NoError(t, err)
	assert.InDelta(t, 8.0, summary.Total, 1e-9)
	assert.Equal(t, map[string]float64{"agent-1": 3}, summary.ByAgent)
	assert.NotContains(t, summary.ByAgent, "")
}

func TestLedger_ConcurrentRecordSameIDKeepsFirst(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	ledger := application.NewLedgerService(store, newFakeClock(epoch), discardLogger())

	const callers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(amount float64) {
			defer wg.Done()
			_, err := ledger.Record(ctx, model.NewCostEntry{ID: "cost-fixed", Type: "api", Amount: amount})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, model.ErrValidation):
				rejected++
			}
		}(float64(i + 1))
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, callers-1, rejected)
	assert.Equal(t, 1, store.putCount())
}
