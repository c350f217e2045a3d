package rest

import (
	"net/http"
	"time"

	"github.com/jobtrace/jobtrace-gateway/internal/models"
	"github.com/jobtrace/jobtrace-gateway/internal/reconciler"
)

// ListJobs handles GET /api/v1/jobs: a thin proxy over the upstream job API.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	svc := r.URL.Query().Get("service")
	if svc == "" {
		svc = h.service
	}

	jobs, err := h.jobs.ListJobs(r.Context(), svc)
	if err != nil {
		respondError(w, http.StatusBadGateway, "Upstream job service unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}

// DashboardSummary handles GET /api/v1/dashboard/summary: aggregated job
// counts for the configured service, cached for the configured TTL.
// Concurrent cache misses for the same service are collapsed into a single
// upstream query.
func (h *Handler) DashboardSummary(w http.ResponseWriter, r *http.Request) {
	svc := r.URL.Query().Get("service")
	if svc == "" {
		svc = h.service
	}

	if h.summaryCache != nil {
		if summary, ok := h.summaryCache.Get(svc); ok {
			respondJSON(w, http.StatusOK, summary)
			return
		}
	}

	result, err, _ := h.summaryGroup.Do(svc, func() (interface{}, error) {
		jobs, err := h.jobs.ListJobs(r.Context(), svc)
		if err != nil {
			return nil, err
		}
		summary := &models.DashboardSummary{
			Service:     svc,
			Total:       len(jobs),
			Counts:      reconciler.TallyCounts(jobs),
			GeneratedAt: time.Now().UTC(),
		}
		if h.summaryCache != nil {
			h.summaryCache.Add(svc, summary)
		}
		return summary, nil
	})
	if err != nil {
		respondError(w, http.StatusBadGateway, "Upstream job service unavailable")
		return
	}
	respondJSON(w, http.StatusOK, result.(*models.DashboardSummary))
}
