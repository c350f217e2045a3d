package repository

import (
	"context"

	"github.com/jobtrace/jobtrace-gateway/internal/models"
)

// DiscrepancyWriter is the store surface used by the reconciliation poller.
type DiscrepancyWriter interface {
	CreateDiscrepancyEvent(ctx context.Context, e *models.DiscrepancyEvent) error
}

// CommandAuditWriter is the store surface used by the command runner.
type CommandAuditWriter interface {
	CreateCommandAudit(ctx context.Context, a *models.CommandAudit) error
	FinalizeCommandAudit(ctx context.Context, id, outcome string, logs models.LogLines) error
}

// AuditReader is the store surface used by the audit query service.
type AuditReader interface {
	QueryAuditLog(ctx context.Context, q AuditLogQuery) ([]*models.CommandAudit, int, error)
	ListDiscrepancyEvents(ctx context.Context, service string, limit int) ([]*models.DiscrepancyEvent, error)
}
