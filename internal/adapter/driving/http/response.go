package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/missioncontrol/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error     string   `json:"error"`
	Field     string   `json:"field,omitempty"`
	Conflicts []string `json:"conflicts,omitempty"`
}

// formatTime renders t as RFC 3339 in UTC.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// --- Requests ---

// StoreCredentialRequest is the JSON body for the store credential endpoint.
type StoreCredentialRequest struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Type        model.CredentialType `json:"type"`
	Service     string               `json:"service"`
	Description string               `json:"description"`
	Owner       string               `json:"owner"`
	Value       string               `json:"value"`
	Permissions []model.Permission   `json:"permissions"`
}

// CreateResourceRequest is the JSON body for the create resource endpoint.
type CreateResourceRequest struct {
	ID              string               `json:"id"`
	Name            string               `json:"name"`
	Type            string               `json:"type"`
	Description     string               `json:"description"`
	Specs           map[string]any       `json:"specs"`
	Status          model.ResourceStatus `json:"status"`
	CostPerHour     float64              `json:"cost_per_hour"`
	MaxBookingHours float64              `json:"max_booking_hours"`
	Owner           string               `json:"owner"`
	Tags            []string             `json:"tags"`
}

// UpdateResourceRequest is the JSON body for the update resource endpoint.
// Omitted fields are left unchanged.
type UpdateResourceRequest struct {
	Name            *string               `json:"name"`
	Description     *string               `json:"description"`
	Specs           map[string]any        `json:"specs"`
	Status          *model.ResourceStatus `json:"status"`
	CostPerHour     *float64              `json:"cost_per_hour"`
	MaxBookingHours *float64              `json:"max_booking_hours"`
	Owner           *string               `json:"owner"`
	Tags            []string              `json:"tags"`
}

// BookRequest is the JSON body for the book resource endpoint.
type BookRequest struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	BookedBy   string    `json:"booked_by"`
	AgentID    *string   `json:"agent_id"`
	Purpose    string    `json:"purpose"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Notes      string    `json:"notes"`
}

// RecordCostRequest is the JSON body for the record cost endpoint.
type RecordCostRequest struct {
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
	PeriodStart *time.Time        `json:"period_start"`
	PeriodEnd   *time.Time        `json:"period_end"`
}

// SetQuotaRequest is the JSON body for the set quota endpoint.
type SetQuotaRequest struct {
	AgentID          *string           `json:"agent_id"`
	Type             model.QuotaType   `json:"type"`
	Limit            float64           `json:"limit"`
	Period           model.QuotaPeriod `json:"period"`
	WarningThreshold *float64          `json:"warning_threshold"`
	HardStop         *bool             `json:"hard_stop"`
	CurrentUsage     float64           `json:"current_usage"`
	PeriodStart      *time.Time        `json:"period_start"`
}

// QuotaAmountRequest is the JSON body for the check and consume endpoints.
// Amount defaults to 1.
type QuotaAmountRequest struct {
	AgentID string          `json:"agent_id"`
	Type    model.QuotaType `json:"type"`
	Amount  *float64        `json:"amount"`
}

// UpdateUsageRequest is the JSON body for the update usage endpoint.
type UpdateUsageRequest struct {
	CurrentUsage *float64 `json:"current_usage"`
}

// --- Responses ---

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// CredentialResponse is the JSON representation of a credential. Value is
// present only when decryption was requested.
type CredentialResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Type        string             `json:"type"`
	Service     string             `json:"service"`
	Description string             `json:"description"`
	Owner       string             `json:"owner"`
	Permissions []model.Permission `json:"permissions"`
	CreatedAt   string             `json:"created_at"`
	UpdatedAt   string             `json:"updated_at"`
	LastUsed    *string            `json:"last_used"`
	UsageCount  int                `json:"usage_count"`
	Value       *string            `json:"value,omitempty"`
}

// ResourceResponse is the JSON representation of a catalog resource.
type ResourceResponse struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Type            string         `json:"type"`
	Description     string         `json:"description"`
	Specs           map[string]any `json:"specs"`
	Status          string         `json:"status"`
	CostPerHour     float64        `json:"cost_per_hour"`
	MaxBookingHours float64        `json:"max_booking_hours"`
	Owner           string         `json:"owner"`
	Tags            []string       `json:"tags"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
}

// BookingResponse is the JSON representation of a booking.
type BookingResponse struct {
	ID            string   `json:"id"`
	ResourceID    string   `json:"resource_id"`
	ResourceName  string   `json:"resource_name"`
	BookedBy      string   `json:"booked_by"`
	AgentID       *string  `json:"agent_id"`
	Purpose       string   `json:"purpose"`
	StartTime     string   `json:"start_time"`
	EndTime       string   `json:"end_time"`
	Status        string   `json:"status"`
	EstimatedCost float64  `json:"estimated_cost"`
	ActualCost    *float64 `json:"actual_cost"`
	Notes         string   `json:"notes"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

// CostEntryResponse is the JSON representation of a ledger entry.
type CostEntryResponse struct {
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
	PeriodStart string            `json:"period_start"`
	PeriodEnd   string            `json:"period_end"`
	RecordedAt  string            `json:"recorded_at"`
}

// CostSummaryResponse is the JSON representation of a cost summary.
type CostSummaryResponse struct {
	Total      float64             `json:"total"`
	ByType     map[string]float64  `json:"by_type"`
	ByCategory map[string]float64  `json:"by_category"`
	ByAgent    map[string]float64  `json:"by_agent"`
	Items      []CostEntryResponse `json:"items"`
}

// QuotaResponse is the JSON representation of a quota.
type QuotaResponse struct {
	ID               string  `json:"id"`
	AgentID          *string `json:"agent_id"`
	Type             string  `json:"type"`
	Limit            float64 `json:"limit"`
	Period           string  `json:"period"`
	WarningThreshold float64 `json:"warning_threshold"`
	HardStop         bool    `json:"hard_stop"`
	CurrentUsage     float64 `json:"current_usage"`
	UsagePercent     float64 `json:"usage_percent"`
	State            string  `json:"state"`
	PeriodStart      string  `json:"period_start"`
	PeriodEnd        string  `json:"period_end"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

// QuotaCheckResponse is the JSON representation of a quota check.
type QuotaCheckResponse struct {
	Allowed      bool           `json:"allowed"`
	Quota        *QuotaResponse `json:"quota,omitempty"`
	Reason       string         `json:"reason,omitempty"`
	Warning      string         `json:"warning,omitempty"`
	UsagePercent float64        `json:"usage_percent"`
}

// QuotaUsageResponse is the JSON representation of a usage update.
type QuotaUsageResponse struct {
	Quota        QuotaResponse `json:"quota"`
	UsagePercent float64       `json:"usage_percent"`
	Warning      bool          `json:"warning"`
	Exceeded     bool          `json:"exceeded"`
}

// ResetDueResponse lists the quotas reset by a reset-due sweep.
type ResetDueResponse struct {
	Reset []QuotaResponse `json:"reset"`
}

// MetricsResponse is the JSON representation of a metrics snapshot.
type MetricsResponse struct {
	Resources struct {
		Total     int            `json:"total"`
		ByType    map[string]int `json:"by_type"`
		Available int            `json:"available"`
	} `json:"resources"`
	Bookings struct {
		Total    int               `json:"total"`
		Active   int               `json:"active"`
		Today    int               `json:"today"`
		Upcoming []BookingResponse `json:"upcoming"`
	} `json:"bookings"`
	Credentials struct {
		Total        int            `json:"total"`
		ByType       map[string]int `json:"by_type"`
		RecentlyUsed int            `json:"recently_used"`
	} `json:"credentials"`
	Costs struct {
		Total   float64            `json:"total"`
		ByType  map[string]float64 `json:"by_type"`
		ByAgent map[string]float64 `json:"by_agent"`
	} `json:"costs"`
	Quotas struct {
		Total    int                   `json:"total"`
		Warning  int                   `json:"warning"`
		Exceeded int                   `json:"exceeded"`
		Details  []QuotaStatusResponse `json:"details"`
	} `json:"quotas"`
}

// QuotaStatusResponse is one entry of the quota metrics details.
type QuotaStatusResponse struct {
	ID           string  `json:"id"`
	Type         string  `json:"type"`
	AgentID      *string `json:"agent_id"`
	UsagePercent float64 `json:"usage_percent"`
	State        string  `json:"state"`
}

// --- Converters ---

func toCredentialResponse(c model.Credential) CredentialResponse {
	perms := c.Permissions
	if perms == nil {
		perms = []model.Permission{}
	}
	return CredentialResponse{
		ID:          c.ID,
		Name:        c.Name,
		Type:        string(c.Type),
		Service:     c.Service,
		Description: c.Description,
		Owner:       c.Owner,
		Permissions: perms,
		CreatedAt:   formatTime(c.CreatedAt),
		UpdatedAt:   formatTime(c.UpdatedAt),
		LastUsed:    formatTimePtr(c.LastUsed),
		UsageCount:  c.UsageCount,
		Value:       c.Value,
	}
}

func toResourceResponse(r model.Resource) ResourceResponse {
	specs := r.Specs
	if specs == nil {
		specs = map[string]any{}
	}
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return ResourceResponse{
		ID:              r.ID,
		Name:            r.Name,
		Type:            r.Type,
		Description:     r.Description,
		Specs:           specs,
		Status:          string(r.Status),
		CostPerHour:     r.CostPerHour,
		MaxBookingHours: r.MaxBookingHours,
		Owner:           r.Owner,
		Tags:            tags,
		CreatedAt:       formatTime(r.CreatedAt),
		UpdatedAt:       formatTime(r.UpdatedAt),
	}
}

func toBookingResponse(b model.Booking) BookingResponse {
	return BookingResponse{
		ID:            b.ID,
		ResourceID:    b.ResourceID,
		ResourceName:  b.ResourceName,
		BookedBy:      b.BookedBy,
		AgentID:       b.AgentID,
		Purpose:       b.Purpose,
		StartTime:     formatTime(b.StartTime),
		EndTime:       formatTime(b.EndTime),
		Status:        string(b.Status),
		EstimatedCost: b.EstimatedCost,
		ActualCost:    b.ActualCost,
		Notes:         b.Notes,
		CreatedAt:     formatTime(b.CreatedAt),
		UpdatedAt:     formatTime(b.UpdatedAt),
	}
}

func toBookingResponses(bookings []model.Booking) []BookingResponse {
	resp := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		resp = append(resp, toBookingResponse(b))
	}
	return resp
}

func toCostEntryResponse(c model.CostEntry) CostEntryResponse {
	metadata := c.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	return CostEntryResponse{
		ID:          c.ID,
		Type:        c.Type,
		Category:    c.Category,
		Description: c.Description,
		Amount:      c.Amount,
		Currency:    c.Currency,
		AgentID:     c.AgentID,
		ResourceID:  c.ResourceID,
		BookingID:   c.BookingID,
		Metadata:    metadata,
		PeriodStart: formatTime(c.PeriodStart),
		PeriodEnd:   formatTime(c.PeriodEnd),
		RecordedAt:  formatTime(c.RecordedAt),
	}
}

func toCostSummaryResponse(s model.CostSummary) CostSummaryResponse {
	items := make([]CostEntryResponse, 0, len(s.Items))
	for _, c := range s.Items {
		items = append(items, toCostEntryResponse(c))
	}
	return CostSummaryResponse{
		Total:      s.Total,
		ByType:     s.ByType,
		ByCategory: s.ByCategory,
		ByAgent:    s.ByAgent,
		Items:      items,
	}
}

func toQuotaResponse(q model.Quota) QuotaResponse {
	return QuotaResponse{
		ID:               q.ID,
		AgentID:          q.AgentID,
		Type:             string(q.Type),
		Limit:            q.Limit,
		Period:           string(q.Period),
		WarningThreshold: q.WarningThreshold,
		HardStop:         q.HardStop,
		CurrentUsage:     q.CurrentUsage,
		UsagePercent:     q.UsagePercent(0),
		State:            string(q.State()),
		PeriodStart:      formatTime(q.PeriodStart),
		PeriodEnd:        formatTime(q.PeriodEnd()),
		CreatedAt:        formatTime(q.CreatedAt),
		UpdatedAt:        formatTime(q.UpdatedAt),
	}
}

func toQuotaResponses(quotas []model.Quota) []QuotaResponse {
	resp := make([]QuotaResponse, 0, len(quotas))
	for _, q := range quotas {
		resp = append(resp, toQuotaResponse(q))
	}
	return resp
}

func toQuotaCheckResponse(c model.QuotaCheck) QuotaCheckResponse {
	resp := QuotaCheckResponse{
		Allowed:      c.Allowed,
		Reason:       c.Reason,
		Warning:      c.Warning,
		UsagePercent: c.UsagePercent,
	}
	if c.Quota != nil {
		q := toQuotaResponse(*c.Quota)
		resp.Quota = &q
	}
	return resp
}

func toMetricsResponse(m model.Metrics) MetricsResponse {
	var resp MetricsResponse

	resp.Resources.Total = m.Resources.Total
	resp.Resources.ByType = m.Resources.ByType
	resp.Resources.Available = m.Resources.Available

	resp.Bookings.Total = m.Bookings.Total
	resp.Bookings.Active = m.Bookings.Active
	resp.Bookings.Today = m.Bookings.Today
	resp.Bookings.Upcoming = toBookingResponses(m.Bookings.Upcoming)

	resp.Credentials.Total = m.Credentials.Total
	resp.Credentials.ByType = make(map[string]int, len(m.Credentials.ByType))
	for t, n := range m.Credentials.ByType {
		resp.Credentials.ByType[string(t)] = n
	}
	resp.Credentials.RecentlyUsed = m.Credentials.RecentlyUsed

	resp.Costs.Total = m.Costs.Total
	resp.Costs.ByType = m.Costs.ByType
	resp.Costs.ByAgent = m.Costs.ByAgent

	resp.Quotas.Total = m.Quotas.Total
	resp.Quotas.Warning = m.Quotas.Warning
	resp.Quotas.Exceeded = m.Quotas.Exceeded
	resp.Quotas.Details = make([]QuotaStatusResponse, 0, len(m.Quotas.Details))
	for _, d := range m.Quotas.Details {
		resp.Quotas.Details = append(resp.Quotas.Details, QuotaStatusResponse{
			ID:           d.ID,
			Type:         string(d.Type),
			AgentID:      d.AgentID,
			UsagePercent: d.UsagePercent,
			State:        string(d.State),
		})
	}
	return resp
}
