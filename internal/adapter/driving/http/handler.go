package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ericfisherdev/missioncontrol/internal/application"
	"github.com/ericfisherdev/missioncontrol/internal/domain/model"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	vault     *application.VaultService
	catalog   *application.CatalogService
	scheduler *application.SchedulerService
	ledger    *application.LedgerService
	quotas    *application.QuotaService
	metrics   *application.MetricsService
	clock     func() time.Time
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	vault *application.VaultService,
	catalog *application.CatalogService,
	scheduler *application.SchedulerService,
	ledger *application.LedgerService,
	quotas *application.QuotaService,
	metrics *application.MetricsService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		vault:     vault,
		catalog:   catalog,
		scheduler: scheduler,
		ledger:    ledger,
		quotas:    quotas,
		metrics:   metrics,
		clock:     func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging, request metrics and recovery middleware. Governance gauges and
// request metrics are exposed on GET /metrics from a dedicated registry.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(h.metrics, logger))
	reqMetrics := newRequestMetrics(reg)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)

	mux.HandleFunc("GET /api/v1/credentials", h.ListCredentials)
	mux.HandleFunc("POST /api/v1/credentials", h.StoreCredential)
	mux.HandleFunc("GET /api/v1/credentials/{id}", h.GetCredential)
	mux.HandleFunc("DELETE /api/v1/credentials/{id}", h.DeleteCredential)

	mux.HandleFunc("GET /api/v1/resources", h.ListResources)
	mux.HandleFunc("POST /api/v1/resources", h.CreateResource)
	mux.HandleFunc("GET /api/v1/resources/{id}", h.GetResource)
	mux.HandleFunc("PATCH /api/v1/resources/{id}", h.UpdateResource)

	mux.HandleFunc("GET /api/v1/bookings", h.ListBookings)
	mux.HandleFunc("POST /api/v1/bookings", h.Book)
	mux.HandleFunc("GET /api/v1/bookings/conflicts", h.CheckConflicts)
	mux.HandleFunc("GET /api/v1/bookings/{id}", h.GetBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", h.CancelBooking)

	mux.HandleFunc("POST /api/v1/costs", h.RecordCost)
	mux.HandleFunc("GET /api/v1/costs/summary", h.CostSummary)

	mux.HandleFunc("GET /api/v1/quotas", h.ListQuotas)
	mux.HandleFunc("PUT /api/v1/quotas", h.SetQuota)
	mux.HandleFunc("POST /api/v1/quotas/check", h.CheckQuota)
	mux.HandleFunc("POST /api/v1/quotas/consume", h.ConsumeQuota)
	mux.HandleFunc("POST /api/v1/quotas/reset-due", h.ResetDueQuotas)
	mux.HandleFunc("PUT /api/v1/quotas/{id}/usage", h.UpdateQuotaUsage)
	mux.HandleFunc("POST /api/v1/quotas/{id}/reset", h.ResetQuota)

	mux.HandleFunc("GET /api/v1/metrics", h.Metrics)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = reqMetrics.middleware(wrapped)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   formatTime(h.clock()),
	})
}

// --- Credentials ---

// ListCredentials returns metadata for every stored credential.
func (h *Handler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.vault.List(r.Context())
	if err != nil {
		h.writeServiceError(w, "failed to list credentials", err)
		return
	}

	resp := make([]CredentialResponse, 0, len(creds))
	for _, c := range creds {
		resp = append(resp, toCredentialResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

// StoreCredential encrypts and stores a new credential.
func (h *Handler) StoreCredential(w http.ResponseWriter, r *http.Request) {
	var req StoreCredentialRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cred, err := h.vault.Store(r.Context(), model.NewCredential{
		ID:          req.ID,
		Name:        req.Name,
		Type:        req.Type,
		Service:     req.Service,
		Description: req.Description,
		Owner:       req.Owner,
		Value:       req.Value,
		Permissions: req.Permissions,
	})
	if err != nil {
		h.writeServiceError(w, "failed to store credential", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCredentialResponse(cred))
}

// GetCredential returns a credential's metadata, or its decrypted value when
// include_value=true.
func (h *Handler) GetCredential(w http.ResponseWriter, r *http.Request) {
	includeValue := false
	if v := r.URL.Query().Get("include_value"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "include_value must be a boolean")
			return
		}
		includeValue = parsed
	}

	cred, err := h.vault.Get(r.Context(), r.PathValue("id"), includeValue)
	if err != nil {
		h.writeServiceError(w, "failed to get credential", err)
		return
	}
	writeJSON(w, http.StatusOK, toCredentialResponse(cred))
}

// DeleteCredential removes a credential.
func (h *Handler) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	if err := h.vault.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, "failed to delete credential", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Resources ---

// ListResources returns every catalog resource.
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.catalog.List(r.Context())
	if err != nil {
		h.writeServiceError(w, "failed to list resources", err)
		return
	}

	resp := make([]ResourceResponse, 0, len(resources))
	for _, res := range resources {
		resp = append(resp, toResourceResponse(res))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateResource registers a new resource.
func (h *Handler) CreateResource(w http.ResponseWriter, r *http.Request) {
	var req CreateResourceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.catalog.Create(r.Context(), model.NewResource{
		ID:              req.ID,
		Name:            req.Name,
		Type:            req.Type,
		Description:     req.Description,
		Specs:           req.Specs,
		Status:          req.Status,
		CostPerHour:     req.CostPerHour,
		MaxBookingHours: req.MaxBookingHours,
		Owner:           req.Owner,
		Tags:            req.Tags,
	})
	if err != nil {
		h.writeServiceError(w, "failed to create resource", err)
		return
	}
	writeJSON(w, http.StatusCreated, toResourceResponse(res))
}

// GetResource returns a single resource.
func (h *Handler) GetResource(w http.ResponseWriter, r *http.Request) {
	res, err := h.catalog.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, "failed to get resource", err)
		return
	}
	writeJSON(w, http.StatusOK, toResourceResponse(res))
}

// UpdateResource applies a partial update to a resource.
func (h *Handler) UpdateResource(w http.ResponseWriter, r *http.Request) {
	var req UpdateResourceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.catalog.Update(r.Context(), r.PathValue("id"), model.ResourceUpdate{
		Name:            req.Name,
		Description:     req.Description,
		Specs:           req.Specs,
		Status:          req.Status,
		CostPerHour:     req.CostPerHour,
		MaxBookingHours: req.MaxBookingHours,
		Owner:           req.Owner,
		Tags:            req.Tags,
	})
	if err != nil {
		h.writeServiceError(w, "failed to update resource", err)
		return
	}
	writeJSON(w, http.StatusOK, toResourceResponse(res))
}

// --- Bookings ---

// ListBookings returns bookings filtered by resource_id, agent_id, status,
// from and to.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, ok := queryTime(w, q.Get("from"), "from")
	if !ok {
		return
	}
	to, ok := queryTime(w, q.Get("to"), "to")
	if !ok {
		return
	}

	bookings, err := h.scheduler.List(r.Context(), model.BookingFilter{
		ResourceID: q.Get("resource_id"),
		AgentID:    q.Get("agent_id"),
		Status:     model.BookingStatus(q.Get("status")),
		From:       from,
		To:         to,
	})
	if err != nil {
		h.writeServiceError(w, "failed to list bookings", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponses(bookings))
}

// Book reserves a resource for a time window.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if !decodeBody(w, r, &req) {
		return
	}

	booking, err := h.scheduler.Book(r.Context(), model.NewBooking{
		ID:         req.ID,
		ResourceID: req.ResourceID,
		BookedBy:   req.BookedBy,
		AgentID:    req.AgentID,
		Purpose:    req.Purpose,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Notes:      req.Notes,
	})
	if err != nil {
		h.writeServiceError(w, "failed to book resource", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingResponse(booking))
}

// GetBooking returns a single booking.
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.scheduler.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, "failed to get booking", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

// CancelBooking cancels a booking and releases its window.
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.scheduler.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, "failed to cancel booking", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

// CheckConflicts lists confirmed bookings overlapping [start, end) on a resource.
func (h *Handler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resourceID := q.Get("resource_id")
	if resourceID == "" {
		writeError(w, http.StatusBadRequest, "resource_id is required")
		return
	}
	start, ok := queryTime(w, q.Get("start"), "start")
	if !ok {
		return
	}
	end, ok := queryTime(w, q.Get("end"), "end")
	if !ok {
		return
	}
	if start.IsZero() || end.IsZero() {
		writeError(w, http.StatusBadRequest, "start and end are required")
		return
	}

	conflicts, err := h.scheduler.CheckConflicts(r.Context(), resourceID, start, end)
	if err != nil {
		h.writeServiceError(w, "failed to check conflicts", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponses(conflicts))
}

// --- Costs ---

// RecordCost appends a ledger entry.
func (h *Handler) RecordCost(w http.ResponseWriter, r *http.Request) {
	var req RecordCostRequest
	if !decodeBody(w, r, &req) {
		return
	}

	in := model.NewCostEntry{
		ID:          req.ID,
		Type:        req.Type,
		Category:    req.Category,
		Description: req.Description,
		Amount:      req.Amount,
		Currency:    req.Currency,
		AgentID:     req.AgentID,
		ResourceID:  req.ResourceID,
		BookingID:   req.BookingID,
		Metadata:    req.Metadata,
	}
	if req.PeriodStart != nil {
		in.PeriodStart = *req.PeriodStart
	}
	if req.PeriodEnd != nil {
		in.PeriodEnd = *req.PeriodEnd
	}

	entry, err := h.ledger.Record(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, "failed to record cost", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCostEntryResponse(entry))
}

// CostSummary totals ledger entries filtered by agent_id, type, from and to.
func (h *Handler) CostSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, ok := queryTime(w, q.Get("from"), "from")
	if !ok {
		return
	}
	to, ok := queryTime(w, q.Get("to"), "to")
	if !ok {
		return
	}

	summary, err := h.ledger.Summarize(r.Context(), model.CostFilter{
		AgentID: q.Get("agent_id"),
		Type:    q.Get("type"),
		From:    from,
		To:      to,
	})
	if err != nil {
		h.writeServiceError(w, "failed to summarize costs", err)
		return
	}
	writeJSON(w, http.StatusOK, toCostSummaryResponse(summary))
}

// --- Quotas ---

// ListQuotas returns the quotas governing agent_id, or all quotas when unset.
func (h *Handler) ListQuotas(w http.ResponseWriter, r *http.Request) {
	quotas, err := h.quotas.GetQuotas(r.Context(), r.URL.Query().Get("agent_id"))
	if err != nil {
		h.writeServiceError(w, "failed to list quotas", err)
		return
	}
	writeJSON(w, http.StatusOK, toQuotaResponses(quotas))
}

// SetQuota creates or reconfigures a quota.
func (h *Handler) SetQuota(w http.ResponseWriter, r *http.Request) {
	var req SetQuotaRequest
	if !decodeBody(w, r, &req) {
		return
	}

	spec := model.QuotaSpec{
		AgentID:          req.AgentID,
		Type:             req.Type,
		Limit:            req.Limit,
		Period:           req.Period,
		WarningThreshold: req.WarningThreshold,
		HardStop:         req.HardStop,
		CurrentUsage:     req.CurrentUsage,
	}
	if req.PeriodStart != nil {
		spec.PeriodStart = *req.PeriodStart
	}

	q, err := h.quotas.SetQuota(r.Context(), spec)
	if err != nil {
		h.writeServiceError(w, "failed to set quota", err)
		return
	}
	writeJSON(w, http.StatusOK, toQuotaResponse(q))
}

// CheckQuota simulates usage without recording it.
func (h *Handler) CheckQuota(w http.ResponseWriter, r *http.Request) {
	var req QuotaAmountRequest
	if !decodeBody(w, r, &req) {
		return
	}

	check, err := h.quotas.CheckQuota(r.Context(), req.AgentID, req.Type, amountOrDefault(req.Amount))
	if err != nil {
		h.writeServiceError(w, "failed to check quota", err)
		return
	}
	writeJSON(w, http.StatusOK, toQuotaCheckResponse(check))
}

// ConsumeQuota checks and records usage in one step. A refused request is
// answered with 429 and the check result.
func (h *Handler) ConsumeQuota(w http.ResponseWriter, r *http.Request) {
	var req QuotaAmountRequest
	if !decodeBody(w, r, &req) {
		return
	}

	check, err := h.quotas.Consume(r.Context(), req.AgentID, req.Type, amountOrDefault(req.Amount))
	if errors.Is(err, model.ErrQuotaExceeded) {
		writeJSON(w, http.StatusTooManyRequests, toQuotaCheckResponse(check))
		return
	}
	if err != nil {
		h.writeServiceError(w, "failed to consume quota", err)
		return
	}
	writeJSON(w, http.StatusOK, toQuotaCheckResponse(check))
}

// UpdateQuotaUsage commits an absolute usage value.
func (h *Handler) UpdateQuotaUsage(w http.ResponseWriter, r *http.Request) {
	var req UpdateUsageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CurrentUsage == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "current_usage is required", Field: "current_usage"})
		return
	}

	result, err := h.quotas.UpdateQuotaUsage(r.Context(), r.PathValue("id"), *req.CurrentUsage)
	if err != nil {
		h.writeServiceError(w, "failed to update quota usage", err)
		return
	}
	writeJSON(w, http.StatusOK, QuotaUsageResponse{
		Quota:        toQuotaResponse(result.Quota),
		UsagePercent: result.UsagePercent,
		Warning:      result.Warning,
		Exceeded:     result.Exceeded,
	})
}

// ResetQuota zeroes a quota's usage.
func (h *Handler) ResetQuota(w http.ResponseWriter, r *http.Request) {
	q, err := h.quotas.ResetQuota(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, "failed to reset quota", err)
		return
	}
	writeJSON(w, http.StatusOK, toQuotaResponse(q))
}

// ResetDueQuotas resets every quota whose period has elapsed.
func (h *Handler) ResetDueQuotas(w http.ResponseWriter, r *http.Request) {
	reset, err := h.quotas.ResetDue(r.Context(), h.clock())
	if err != nil {
		h.writeServiceError(w, "failed to reset due quotas", err)
		return
	}
	writeJSON(w, http.StatusOK, ResetDueResponse{Reset: toQuotaResponses(reset)})
}

// --- Metrics ---

// Metrics returns the JSON metrics snapshot.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.metrics.Snapshot(r.Context())
	if err != nil {
		h.writeServiceError(w, "failed to build metrics", err)
		return
	}
	writeJSON(w, http.StatusOK, toMetricsResponse(m))
}

// --- Helpers ---

// writeServiceError maps domain errors to HTTP status codes. Unexpected
// errors and authentication failures are logged and reported as 500 without
// detail.
func (h *Handler) writeServiceError(w http.ResponseWriter, msg string, err error) {
	var (
		verr     *model.ValidationError
		conflict *model.ConflictError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error(), Field: verr.Field})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: conflict.Error(), Conflicts: conflict.BookingIDs})
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrQuotaExceeded):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		h.logger.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// queryTime parses an optional RFC 3339 query parameter.
func queryTime(w http.ResponseWriter, raw, name string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, name+" must be an RFC 3339 timestamp")
		return time.Time{}, false
	}
	return t.UTC(), true
}

func amountOrDefault(amount *float64) float64 {
	if amount == nil {
		return 1
	}
	return *amount
}
