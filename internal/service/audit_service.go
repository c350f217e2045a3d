// Package service provides the read side of the audit subsystem: paginated,
// filtered, sorted access over the audit store for operational review.
package service

import (
	"context"
	"time"

	"github.com/jobtrace/jobtrace-gateway/internal/models"
	"github.com/jobtrace/jobtrace-gateway/internal/repository"
)

// sortColumns is the allow-list of sortable columns. Anything else silently
// falls back to "timestamp" so caller input is never interpolated into SQL.
var sortColumns = map[string]string{
	"timestamp":   "timestamp",
	"actor":       "actor",
	"action_type": "action_type",
	"actionType":  "action_type",
	"target":      "target",
	"outcome":     "outcome",
}

// AuditQuery is the caller-facing query, prior to normalization.
type AuditQuery struct {
	Page       int
	Limit      int
	SortBy     string
	SortOrder  string
	ActionType string
	Target     string
	StartDate  *time.Time
	EndDate    *time.Time
}

// Meta describes one page of results.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// AuditPage is the {data, meta} envelope returned to callers verbatim.
type AuditPage struct {
	Data []*models.CommandAudit `json:"data"`
	Meta Meta                   `json:"meta"`
}

// AuditService answers audit log queries against the store.
type AuditService struct {
	reader repository.AuditReader
}

func NewAuditService(reader repository.AuditReader) *AuditService {
	return &AuditService{reader: reader}
}

// Normalize applies defaults and the sort allow-list in place.
func (q *AuditQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if _, ok := sortColumns[q.SortBy]; !ok {
		q.SortBy = "timestamp"
	}
	if q.SortOrder != "asc" && q.SortOrder != "desc" {
		q.SortOrder = "desc"
	}
}

// QueryAuditLog returns one page of command audit rows with pagination
// metadata. Invalid sort parameters are normalized, not rejected.
func (s *AuditService) QueryAuditLog(ctx context.Context, q AuditQuery) (*AuditPage, error) {
	q.Normalize()

	order := "DESC"
	if q.SortOrder == "asc" {
		order = "ASC"
	}

	rows, total, err := s.reader.QueryAuditLog(ctx, repository.AuditLogQuery{
		Page:       q.Page,
		Limit:      q.Limit,
		SortColumn: sortColumns[q.SortBy],
		SortOrder:  order,
		ActionType: q.ActionType,
		Target:     q.Target,
		StartDate:  q.StartDate,
		EndDate:    q.EndDate,
	})
	if err != nil {
		return nil, err
	}

	totalPages := (total + q.Limit - 1) / q.Limit

	return &AuditPage{
		Data: rows,
		Meta: Meta{
			Page:       q.Page,
			Limit:      q.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// ListDiscrepancyEvents returns recent reconciliation snapshots, newest first.
func (s *AuditService) ListDiscrepancyEvents(ctx context.Context, svc string, limit int) ([]*models.DiscrepancyEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	return s.reader.ListDiscrepancyEvents(ctx, svc, limit)
}
