package models

import "time"

// Job is one job record as reported by the upstream job-processing service.
// Fields beyond ID and Status are carried through the gateway as-is.
type Job struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Status    string    `json:"status"`
	Service   string    `json:"service,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// DashboardSummary is the aggregated view served by the gateway's dashboard
// endpoint: total job count plus a per-status breakdown.
type DashboardSummary struct {
	Service     string    `json:"service"`
	Total       int       `json:"total"`
	Counts      CountMap  `json:"counts"`
	GeneratedAt time.Time `json:"generatedAt"`
}
