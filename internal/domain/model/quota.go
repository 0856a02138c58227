package model

import (
	"fmt"
	"time"
)

// GlobalScope is the scope label of quotas that apply to every agent.
const GlobalScope = "global"

const (
	defaultWarningThreshold = 0.8
)

// DefaultWarningThreshold returns the usage ratio at which a quota starts warning.
func DefaultWarningThreshold() float64 { return defaultWarningThreshold }

// Quota is a usage ceiling for one scope and type over a period.
// AgentID nil means the quota is global.
type Quota struct {
	ID               string      `json:"id"`
	AgentID          *string     `json:"agent_id"`
	Type             QuotaType   `json:"type"`
	Limit            float64     `json:"limit"`
	Period           QuotaPeriod `json:"period"`
	WarningThreshold float64     `json:"warning_threshold"`
	HardStop         bool        `json:"hard_stop"`
	CurrentUsage     float64     `json:"current_usage"`
	PeriodStart      time.Time   `json:"period_start"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// QuotaID returns the deterministic identifier for a scope and type.
// An empty agentID selects the global scope.
func QuotaID(agentID string, quotaType QuotaType) string {
	scope := agentID
	if scope == "" {
		scope = GlobalScope
	}
	return fmt.Sprintf("%s:%s", scope, quotaType)
}

// IsGlobal reports whether the quota applies to all agents.
func (q Quota) IsGlobal() bool {
	return q.AgentID == nil
}

// UsagePercent returns the usage ratio after adding amount to the current usage.
func (q Quota) UsagePercent(amount float64) float64 {
	return (q.CurrentUsage + amount) / q.Limit
}

// StateAt classifies a usage ratio against the quota thresholds.
func (q Quota) StateAt(ratio float64) QuotaState {
	switch {
	case ratio >= 1.0:
		return QuotaStateExceeded
	case ratio >= q.WarningThreshold:
		return QuotaStateWarning
	default:
		return QuotaStateUnderThreshold
	}
}

// State returns the quota's current state.
func (q Quota) State() QuotaState {
	return q.StateAt(q.UsagePercent(0))
}

// PeriodEnd returns the instant after which the quota is due for reset.
func (q Quota) PeriodEnd() time.Time {
	switch q.Period {
	case QuotaPeriodDaily:
		return q.PeriodStart.AddDate(0, 0, 1)
	case QuotaPeriodWeekly:
		return q.PeriodStart.AddDate(0, 0, 7)
	default:
		return q.PeriodStart.AddDate(0, 1, 0)
	}
}

// QuotaSpec is the input for configuring a quota. Pointer fields distinguish
// "unset, use default" from explicit zero values.
type QuotaSpec struct {
	AgentID          *string
	Type             QuotaType `validate:"required,oneof=api_calls cost tokens storage"`
	Limit            float64   `validate:"gt=0"`
	Period           QuotaPeriod
	WarningThreshold *float64
	HardStop         *bool
	CurrentUsage     float64 `validate:"gte=0"`
	PeriodStart      time.Time
}

// QuotaCheck is the outcome of simulating usage against the matching quotas.
// Quota is nil when no quota constrained the request.
type QuotaCheck struct {
	Allowed      bool
	Quota        *Quota
	Reason       string
	Warning      string
	UsagePercent float64
}

// QuotaUsageResult reports the thresholds crossed after committing usage.
type QuotaUsageResult struct {
	Quota        Quota
	UsagePercent float64
	Warning      bool
	Exceeded     bool
}
