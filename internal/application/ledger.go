package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ericfisherdev/missioncontrol/internal/domain/model"
	"github.com/ericfisherdev/missioncontrol/internal/domain/port/driven"
)

// LedgerService records immutable cost entries and aggregates them.
type LedgerService struct {
	costs  collection[model.CostEntry]
	clock  driven.Clock
	locks  keyedMutex
	logger *slog.Logger
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(store driven.DocumentStore, clock driven.Clock, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		costs:  newCollection[model.CostEntry](store, driven.CollectionCosts),
		clock:  clock,
		logger: logger,
	}
}

// Record appends a cost entry. Currency defaults to USD and category to
// "general"; an unset period collapses to the recording instant.
func (s *LedgerService) Record(ctx context.Context, in model.NewCostEntry) (model.CostEntry, error) {
	if err := validateInput(in); err != nil {
		return model.CostEntry{}, err
	}

	now := s.clock.Now()
	entry := model.CostEntry{
		ID:          in.ID,
		Type:        in.Type,
		Category:    in.Category,
		Description: in.Description,
		Amount:      in.Amount,
		Currency:    in.Currency,
		AgentID:     strPtr(derefStr(in.AgentID)),
		ResourceID:  strPtr(derefStr(in.ResourceID)),
		BookingID:   strPtr(derefStr(in.BookingID)),
		Metadata:    in.Metadata,
		PeriodStart: in.PeriodStart.UTC(),
		PeriodEnd:   in.PeriodEnd.UTC(),
		RecordedAt:  now,
	}
	if entry.ID == "" {
		entry.ID = newID("cost")
	}
	if entry.Category == "" {
		entry.Category = model.DefaultCostCategory()
	}
	if entry.Currency == "" {
		entry.Currency = model.DefaultCurrency()
	}
	if entry.Metadata == nil {
		entry.Metadata = map[string]string{}
	}
	if in.PeriodStart.IsZero() {
		entry.PeriodStart = now
	}
	if in.PeriodEnd.IsZero() {
		entry.PeriodEnd = now
	}
	if entry.PeriodEnd.Before(entry.PeriodStart) {
		return model.CostEntry{}, model.NewValidationError("period_end", "must not be before period_start")
	}

	unlock := s.locks.Lock(entry.ID)
	defer unlock()

	// Entries are append-only; an explicit id must not overwrite history.
	if _, err := s.costs.get(ctx, entry.ID); err == nil {
		return model.CostEntry{}, model.NewValidationError("id", fmt.Sprintf("cost entry %s already recorded", entry.ID))
	} else if !errors.Is(err, model.ErrNotFound) {
		return model.CostEntry{}, err
	}

	if err := s.costs.put(ctx, entry.ID, entry); err != nil {
		return model.CostEntry{}, fmt.Errorf("record cost %q: %w", entry.ID, err)
	}

	s.logger.Info("cost recorded", "cost_id", entry.ID, "type", entry.Type, "amount", entry.Amount, "agent_id", derefStr(entry.AgentID))
	return entry, nil
}

// Summarize totals the entries matching the filter by type, category and agent.
// Entries without an agent count toward Total but not ByAgent.
func (s *LedgerService) Summarize(ctx context.Context, f model.CostFilter) (model.CostSummary, error) {
	all, err := s.costs.list(ctx)
	if err != nil {
		return model.CostSummary{}, fmt.Errorf("list costs: %w", err)
	}

	summary := model.CostSummary{
		ByType:     map[string]float64{},
		ByCategory: map[string]float64{},
		ByAgent:    map[string]float64{},
		Items:      []model.CostEntry{},
	}

	for _, c := range all {
		if f.AgentID != "" && derefStr(c.AgentID) != f.AgentID {
			continue
		}
		if f.Type != "" && c.Type != f.Type {
			continue
		}
		if !f.From.IsZero() && c.PeriodStart.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && c.PeriodEnd.After(f.To) {
			continue
		}

		summary.Items = append(summary.Items, c)
		summary.Total += c.Amount
		summary.ByType[c.Type] += c.Amount
		summary.ByCategory[c.Category] += c.Amount
		if agent := derefStr(c.AgentID); agent != "" {
			summary.ByAgent[agent] += c.Amount
		}
	}

	sort.Slice(summary.Items, func(i, j int) bool {
		if !summary.Items[i].RecordedAt.Equal(summary.Items[j].RecordedAt) {
			return summary.Items[i].RecordedAt.Before(summary.Items[j].RecordedAt)
		}
		return summary.Items[i].ID < summary.Items[j].ID
	})
	return summary, nil
}
