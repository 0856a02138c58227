package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ericfisherdev/missioncontrol/internal/domain/model"
	"github.com/ericfisherdev/missioncontrol/internal/domain/port/driven"
)

// QuotaService enforces usage ceilings per agent and globally.
//
// Resolution order: when several quotas match an agent and type, global
// quotas are evaluated before agent-scoped ones, each group in ascending id
// order. The first quota that would hard-stop wins; otherwise the first
// quota past its warning threshold is reported.
type QuotaService struct {
	quotas collection[model.Quota]
	clock  driven.Clock
	mu     sync.Mutex // serializes usage writes
	logger *slog.Logger
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(store driven.DocumentStore, clock driven.Clock, logger *slog.Logger) *QuotaService {
	return &QuotaService{
		quotas: newCollection[model.Quota](store, driven.CollectionQuotas),
		clock:  clock,
		logger: logger,
	}
}

// SetQuota creates or reconfigures the quota for the requested scope and type.
// Repeated calls update the single record keyed by "scope:type". Usage and
// period start carry over from the existing record unless spec sets them.
func (s *QuotaService) SetQuota(ctx context.Context, spec model.QuotaSpec) (model.Quota, error) {
	if err := validateInput(spec); err != nil {
		return model.Quota{}, err
	}

	period := spec.Period
	if period == "" {
		period = model.QuotaPeriodMonthly
	}
	switch period {
	case model.QuotaPeriodDaily, model.QuotaPeriodWeekly, model.QuotaPeriodMonthly:
	default:
		return model.Quota{}, model.NewValidationError("period", fmt.Sprintf("unknown period %q", period))
	}

	threshold := model.DefaultWarningThreshold()
	if spec.WarningThreshold != nil {
		threshold = *spec.WarningThreshold
	}
	if threshold < 0 || threshold > 1 {
		return model.Quota{}, model.NewValidationError("warning_threshold", "must be between 0 and 1")
	}

	hardStop := true
	if spec.HardStop != nil {
		hardStop = *spec.HardStop
	}

	agentID := derefStr(spec.AgentID)
	id := model.QuotaID(agentID, spec.Type)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	q := model.Quota{
		ID:               id,
		AgentID:          strPtr(agentID),
		Type:             spec.Type,
		Limit:            spec.Limit,
		Period:           period,
		WarningThreshold: threshold,
		HardStop:         hardStop,
		CurrentUsage:     spec.CurrentUsage,
		PeriodStart:      spec.PeriodStart.UTC(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	existing, err := s.quotas.get(ctx, id)
	switch {
	case err == nil:
		q.CreatedAt = existing.CreatedAt
		switch {
		case spec.CurrentUsage == 0:
			q.CurrentUsage = existing.CurrentUsage
		case spec.CurrentUsage < existing.CurrentUsage:
			return model.Quota{}, model.NewValidationError("current_usage",
				fmt.Sprintf("cannot decrease from %g to %g; reset the quota instead", existing.CurrentUsage, spec.CurrentUsage))
		}
		if spec.PeriodStart.IsZero() {
			q.PeriodStart = existing.PeriodStart
		}
	case isNotFound(err):
		if spec.PeriodStart.IsZero() {
			q.PeriodStart = now
		}
	default:
		return model.Quota{}, err
	}

	if err := s.quotas.put(ctx, id, q); err != nil {
		return model.Quota{}, fmt.Errorf("set quota %q: %w", id, err)
	}

	s.logger.Info("quota configured", "quota_id", id, "limit", q.Limit, "period", q.Period, "hard_stop", q.HardStop)
	return q, nil
}

// GetQuotas returns the quotas scoped to agentID together with every global
// quota. An empty agentID returns all quotas.
func (s *QuotaService) GetQuotas(ctx context.Context, agentID string) ([]model.Quota, error) {
	all, err := s.quotas.list(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quotas: %w", err)
	}

	if agentID == "" {
		sortQuotas(all)
		return all, nil
	}

	matched := make([]model.Quota, 0, len(all))
	for _, q := range all {
		if q.IsGlobal() || *q.AgentID == agentID {
			matched = append(matched, q)
		}
	}
	sortQuotas(matched)
	return matched, nil
}

// CheckQuota simulates adding amount of usage for agentID against every
// matching quota of quotaType. It never mutates state.
func (s *QuotaService) CheckQuota(ctx context.Context, agentID string, quotaType model.QuotaType, amount float64) (model.QuotaCheck, error) {
	if amount < 0 {
		return model.QuotaCheck{}, model.NewValidationError("amount", "must be at least 0")
	}

	matching, err := s.matching(ctx, agentID, quotaType)
	if err != nil {
		return model.QuotaCheck{}, err
	}
	return evaluate(matching, quotaType, amount), nil
}

// Consume checks the quotas and, when allowed, adds amount to every matching
// quota. A refused request returns the check together with model.ErrQuotaExceeded.
func (s *QuotaService) Consume(ctx context.Context, agentID string, quotaType model.QuotaType, amount float64) (model.QuotaCheck, error) {
	if amount < 0 {
		return model.QuotaCheck{}, model.NewValidationError("amount", "must be at least 0")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	matching, err := s.matching(ctx, agentID, quotaType)
	if err != nil {
		return model.QuotaCheck{}, err
	}

	check := evaluate(matching, quotaType, amount)
	if !check.Allowed {
		s.logger.Warn("quota hard stop", "quota_id", check.Quota.ID, "agent_id", agentID, "amount", amount)
		return check, fmt.Errorf("%s: %w", check.Reason, model.ErrQuotaExceeded)
	}

	now := s.clock.Now()
	for _, q := range matching {
		q.CurrentUsage += amount
		q.UpdatedAt = now
		if err := s.quotas.put(ctx, q.ID, q); err != nil {
			return model.QuotaCheck{}, fmt.Errorf("consume quota %q: %w", q.ID, err)
		}
	}
	return check, nil
}

// UpdateQuotaUsage commits an absolute usage value. Usage may only grow
// between resets.
func (s *QuotaService) UpdateQuotaUsage(ctx context.Context, id string, usage float64) (model.QuotaUsageResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.quotas.get(ctx, id)
	if err != nil {
		return model.QuotaUsageResult{}, err
	}
	if usage < 0 {
		return model.QuotaUsageResult{}, model.NewValidationError("current_usage", "must be at least 0")
	}
	if usage < q.CurrentUsage {
		return model.QuotaUsageResult{}, model.NewValidationError("current_usage",
			fmt.Sprintf("cannot decrease from %g to %g without a reset", q.CurrentUsage, usage))
	}

	q.CurrentUsage = usage
	q.UpdatedAt = s.clock.Now()
	if err := s.quotas.put(ctx, id, q); err != nil {
		return model.QuotaUsageResult{}, fmt.Errorf("update quota usage %q: %w", id, err)
	}

	ratio := q.UsagePercent(0)
	result := model.QuotaUsageResult{
		Quota:        q,
		UsagePercent: ratio,
		Warning:      ratio >= q.WarningThreshold,
		Exceeded:     ratio >= 1.0,
	}
	if result.Exceeded {
		s.logger.Warn("quota exceeded", "quota_id", id, "usage", usage, "limit", q.Limit)
	}
	return result, nil
}

// ResetQuota zeroes a quota's usage and starts a new period now.
func (s *QuotaService) ResetQuota(ctx context.Context, id string) (model.Quota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.quotas.get(ctx, id)
	if err != nil {
		return model.Quota{}, err
	}
	return s.resetLocked(ctx, q, s.clock.Now())
}

// ResetDue resets every quota whose period has elapsed at now. The core runs
// no timers; an external scheduler is expected to call this.
func (s *QuotaService) ResetDue(ctx context.Context, now time.Time) ([]model.Quota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.quotas.list(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quotas: %w", err)
	}
	sortQuotas(all)

	var reset []model.Quota
	for _, q := range all {
		if now.Before(q.PeriodEnd()) {
			continue
		}
		updated, err := s.resetLocked(ctx, q, now)
		if err != nil {
			return reset, err
		}
		reset = append(reset, updated)
	}
	return reset, nil
}

func (s *QuotaService) resetLocked(ctx context.Context, q model.Quota, now time.Time) (model.Quota, error) {
	q.CurrentUsage = 0
	q.PeriodStart = now
	q.UpdatedAt = now
	if err := s.quotas.put(ctx, q.ID, q); err != nil {
		return model.Quota{}, fmt.Errorf("reset quota %q: %w", q.ID, err)
	}
	s.logger.Info("quota reset", "quota_id", q.ID)
	return q, nil
}

// matching returns the quotas of quotaType that govern agentID, global first.
func (s *QuotaService) matching(ctx context.Context, agentID string, quotaType model.QuotaType) ([]model.Quota, error) {
	all, err := s.quotas.list(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quotas: %w", err)
	}

	var matched []model.Quota
	for _, q := range all {
		if q.Type != quotaType {
			continue
		}
		if q.IsGlobal() || (agentID != "" && *q.AgentID == agentID) {
			matched = append(matched, q)
		}
	}
	sortQuotas(matched)
	return matched, nil
}

// evaluate applies the first-match policy to quotas already in resolution
// order: the first hard stop refuses, otherwise the first warning is reported.
func evaluate(quotas []model.Quota, quotaType model.QuotaType, amount float64) model.QuotaCheck {
	for i := range quotas {
		q := quotas[i]
		ratio := q.UsagePercent(amount)
		if ratio >= 1.0 && q.HardStop {
			return model.QuotaCheck{
				Allowed:      false,
				Quota:        &q,
				Reason:       fmt.Sprintf("quota exceeded for %s: %g/%g", quotaType, q.CurrentUsage, q.Limit),
				UsagePercent: ratio,
			}
		}
	}

	for i := range quotas {
		q := quotas[i]
		ratio := q.UsagePercent(amount)
		if ratio >= q.WarningThreshold {
			return model.QuotaCheck{
				Allowed:      true,
				Quota:        &q,
				Warning:      fmt.Sprintf("approaching quota limit for %s: %.1f%%", quotaType, ratio*100),
				UsagePercent: ratio,
			}
		}
	}
	return model.QuotaCheck{Allowed: true}
}

// sortQuotas orders global quotas before agent-scoped ones, then by id.
func sortQuotas(quotas []model.Quota) {
	sort.Slice(quotas, func(i, j int) bool {
		gi, gj := quotas[i].IsGlobal(), quotas[j].IsGlobal()
		if gi != gj {
			return gi
		}
		return quotas[i].ID < quotas[j].ID
	})
}
