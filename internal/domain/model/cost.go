package model

import "time"

const (
	defaultCurrency     = "USD"
	defaultCostCategory = "general"
)

// DefaultCurrency returns the currency applied to cost entries that omit one.
func DefaultCurrency() string { return defaultCurrency }

// DefaultCostCategory returns the category applied to cost entries that omit one.
func DefaultCostCategory() string { return defaultCostCategory }

// CostEntry is an immutable monetary amount attributable to an agent,
// resource, and/or booking.
type CostEntry struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Category    string            `json:"category"`
	Description string            `json:"description"`
	Amount      float64           `json:"amount"`
	Currency    string            `json:"currency"`
	AgentID     *string           `json:"agent_id"`
	ResourceID  *string           `json:"resource_id"`
	BookingID   *string           `json:"booking_id"`
	Metadata    map[string]string `json:"metadata"`
	PeriodStart time.Time         `json:"period_start"`
	PeriodEnd   time.Time         `json:"period_end"`
	RecordedAt  time.Time         `json:"recorded_at"`
}

// NewCostEntry is the input for recording a cost.
type NewCostEntry struct {
	ID          string
	Type        string `validate:"required"`
	Category    string
	Description string
	Amount      float64 `validate:"gte=0"`
	Currency    string
	AgentID     *string
	ResourceID  *string
	BookingID   *string
	Metadata    map[string]string
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// CostFilter narrows a cost summary. Zero values match everything.
type CostFilter struct {
	AgentID string
	Type    string
	From    time.Time
	To      time.Time
}

// CostSummary aggregates a set of cost entries by plain summation.
type CostSummary struct {
	Total      float64
	ByType     map[string]float64
	ByCategory map[string]float64
	ByAgent    map[string]float64
	Items      []CostEntry
}
