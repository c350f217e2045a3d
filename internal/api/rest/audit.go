package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jobtrace/jobtrace-gateway/internal/service"
)

// QueryAuditLog handles GET /reconciliation/audit.
// Query params: page (default 1), limit (default 50), sortBy (default
// timestamp), sortOrder (default desc), actionType, target, startDate,
// endDate (RFC3339, inclusive). Invalid sort parameters are normalized, not
// rejected.
func (h *Handler) QueryAuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := service.AuditQuery{
		SortBy:     q.Get("sortBy"),
		SortOrder:  q.Get("sortOrder"),
		ActionType: q.Get("actionType"),
		Target:     q.Get("target"),
	}
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			query.Page = n
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			query.Limit = n
		}
	}
	if v := q.Get("startDate"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			query.StartDate = &t
		}
	}
	if v := q.Get("endDate"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			query.EndDate = &t
		}
	}

	page, err := h.auditService.QueryAuditLog(r.Context(), query)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to query audit log")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// ListReconciliationEvents handles GET /reconciliation/events, the read side
// of the poller's snapshots. Query params: service, limit (default 100).
func (h *Handler) ListReconciliationEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	events, err := h.auditService.ListDiscrepancyEvents(r.Context(), r.URL.Query().Get("service"), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list reconciliation events")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"data": events})
}
