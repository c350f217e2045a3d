package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jobtrace/jobtrace-gateway/internal/command"
	"github.com/jobtrace/jobtrace-gateway/internal/hub"
	"github.com/jobtrace/jobtrace-gateway/internal/models"
	"github.com/jobtrace/jobtrace-gateway/internal/service"
	"github.com/jobtrace/jobtrace-gateway/internal/upstream"
	"golang.org/x/sync/singleflight"
)

// Handler manages HTTP request handlers.
type Handler struct {
	auditService *service.AuditService
	runner       *command.Runner
	hub          *hub.Hub
	jobs         upstream.JobSource
	service      string

	summaryCache *lru.LRU[string, *models.DashboardSummary]
	summaryGroup singleflight.Group
}

// NewHandler creates a new HTTP handler. cacheTTL of 0 disables the dashboard
// summary cache.
func NewHandler(as *service.AuditService, runner *command.Runner, h *hub.Hub, jobs upstream.JobSource, serviceName string, cacheTTL time.Duration) *Handler {
	handler := &Handler{
		auditService: as,
		runner:       runner,
		hub:          h,
		jobs:         jobs,
		service:      serviceName,
	}
	if cacheTTL > 0 {
		handler.summaryCache = lru.NewLRU[string, *models.DashboardSummary](16, nil, cacheTTL)
	}
	return handler
}

// SetupRoutes configures API routes.
func SetupRoutes(router *mux.Router, h *Handler) {
	// Reconciliation & audit core
	router.HandleFunc("/reconciliation/stream", h.StreamReconciliation).Methods("GET")
	router.HandleFunc("/reconciliation/audit", h.QueryAuditLog).Methods("GET")
	router.HandleFunc("/reconciliation/events", h.ListReconciliationEvents).Methods("GET")
	router.HandleFunc("/commands/run", h.RunCommand).Methods("POST")

	// Gateway glue over the upstream job API
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/jobs", h.ListJobs).Methods("GET")
	api.HandleFunc("/dashboard/summary", h.DashboardSummary).Methods("GET")

	// Health check
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "jobtrace-gateway"})
	}).Methods("GET")
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
