package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jobtrace/jobtrace-gateway/internal/models"
)

// CreateDiscrepancyEvent appends one discrepancy event. The id and timestamp
// are store-assigned; status must be one of the enumerated values.
func (r *SQLiteRepository) CreateDiscrepancyEvent(ctx context.Context, e *models.DiscrepancyEvent) error {
	db, err := r.handle()
	if err != nil {
		return err
	}

	switch e.Status {
	case models.StatusVerified, models.StatusStale, models.StatusDiscrepancy:
	default:
		return fmt.Errorf("invalid discrepancy status %q", e.Status)
	}

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.Timestamp = time.Now().UTC()

	query := `
		INSERT INTO discrepancy_events (id, timestamp, service, status, counts, checksum, latency_ms, discrepancy_details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = db.ExecContext(ctx, query,
		e.ID,
		e.Timestamp,
		e.Service,
		e.Status,
		e.Counts,
		e.Checksum,
		e.LatencyMs,
		e.DiscrepancyDetails,
	)
	return err
}

// CreateCommandAudit appends one command audit row with outcome "running".
// The id and timestamp are store-assigned.
func (r *SQLiteRepository) CreateCommandAudit(ctx context.Context, a *models.CommandAudit) error {
	db, err := r.handle()
	if err != nil {
		return err
	}

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.Timestamp = time.Now().UTC()
	a.Outcome = models.OutcomeRunning

	query := `
		INSERT INTO command_audit (id, timestamp, actor, action_type, target, outcome, before_state, after_state, command_params, logs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = db.ExecContext(ctx, query,
		a.ID,
		a.Timestamp,
		a.Actor,
		a.ActionType,
		a.Target,
		a.Outcome,
		a.BeforeState,
		a.AfterState,
		a.CommandParams,
		a.Logs,
	)
	return err
}

// FinalizeCommandAudit records the terminal outcome and collected logs for
// one command audit row. The update only matches rows still in "running", so
// a repeated finalize (or a finalize for an unknown id) is a silent no-op and
// cannot overwrite a terminal outcome.
func (r *SQLiteRepository) FinalizeCommandAudit(ctx context.Context, id, outcome string, logs models.LogLines) error {
	db, err := r.handle()
	if err != nil {
		return err
	}

	switch outcome {
	case models.OutcomeSuccess, models.OutcomeFailure, models.OutcomeTimeout:
	default:
		return fmt.Errorf("invalid terminal outcome %q", outcome)
	}

	query := `UPDATE command_audit SET outcome = ?, logs = ? WHERE id = ? AND outcome = ?`
	_, err = db.ExecContext(ctx, query, outcome, logs, id, models.OutcomeRunning)
	return err
}

// GetCommandAudit returns one command audit row by id, or nil when absent.
func (r *SQLiteRepository) GetCommandAudit(ctx context.Context, id string) (*models.CommandAudit, error) {
	db, err := r.handle()
	if err != nil {
		return nil, err
	}

	var a models.CommandAudit
	err = db.GetContext(ctx, &a, `SELECT * FROM command_audit WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AuditLogQuery is the read primitive's input. SortColumn and SortOrder must
// already be validated against the allow-list by the caller (the query
// service); they are interpolated into the statement.
type AuditLogQuery struct {
	Page       int
	Limit      int
	SortColumn string
	SortOrder  string
	ActionType string
	Target     string
	StartDate  *time.Time
	EndDate    *time.Time
}

// QueryAuditLog returns one page of command audit rows matching the filters,
// plus the total count of matching rows across all pages.
func (r *SQLiteRepository) QueryAuditLog(ctx context.Context, q AuditLogQuery) ([]*models.CommandAudit, int, error) {
	db, err := r.handle()
	if err != nil {
		return nil, 0, err
	}

	where := " WHERE 1=1"
	args := []interface{}{}

	if q.ActionType != "" {
		where += " AND action_type = ?"
		args = append(args, q.ActionType)
	}
	if q.Target != "" {
		where += " AND target = ?"
		args = append(args, q.Target)
	}
	if q.StartDate != nil {
		where += " AND timestamp >= ?"
		args = append(args, *q.StartDate)
	}
	if q.EndDate != nil {
		where += " AND timestamp <= ?"
		args = append(args, *q.EndDate)
	}

	var total int
	if err := db.GetContext(ctx, &total, "SELECT COUNT(*) FROM command_audit"+where, args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		"SELECT * FROM command_audit%s ORDER BY %s %s, id ASC LIMIT ? OFFSET ?",
		where, q.SortColumn, q.SortOrder,
	)
	args = append(args, q.Limit, (q.Page-1)*q.Limit)

	rows := []*models.CommandAudit{}
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListDiscrepancyEvents returns the most recent discrepancy events, newest
// first.
func (r *SQLiteRepository) ListDiscrepancyEvents(ctx context.Context, service string, limit int) ([]*models.DiscrepancyEvent, error) {
	db, err := r.handle()
	if err != nil {
		return nil, err
	}

	query := `SELECT * FROM discrepancy_events WHERE 1=1`
	args := []interface{}{}
	if service != "" {
		query += " AND service = ?"
		args = append(args, service)
	}
	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	events := []*models.DiscrepancyEvent{}
	err = db.SelectContext(ctx, &events, query, args...)
	return events, err
}
