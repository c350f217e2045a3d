package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jobtrace/jobtrace-gateway/internal/models"
)

func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(":memory:")
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	if err := repo.Migrate(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestCreateDiscrepancyEvent(t *testing.T) {
	repo := setupTestRepo(t)

	e := &models.DiscrepancyEvent{
		Service:   "jobs-api",
		Status:    models.StatusVerified,
		Counts:    models.CountMap{"completed": 3, "failed": 1},
		Checksum:  "abc123",
		LatencyMs: 42,
	}
	if err := repo.CreateDiscrepancyEvent(context.Background(), e); err != nil {
		t.Fatalf("Failed to create discrepancy event: %v", err)
	}
	if e.ID == "" {
		t.Error("Event ID should be store-assigned")
	}
	if e.Timestamp.IsZero() {
		t.Error("Event timestamp should be store-assigned")
	}

	events, err := repo.ListDiscrepancyEvents(context.Background(), "jobs-api", 10)
	if err != nil {
		t.Fatalf("Failed to list events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Counts["completed"] != 3 || events[0].Counts["failed"] != 1 {
		t.Errorf("Counts did not round-trip: %v", events[0].Counts)
	}
	if events[0].Checksum != "abc123" {
		t.Errorf("Expected checksum abc123, got %s", events[0].Checksum)
	}
}

func TestCreateDiscrepancyEvent_InvalidStatus(t *testing.T) {
	repo := setupTestRepo(t)

	e := &models.DiscrepancyEvent{
		Service: "jobs-api",
		Status:  "bogus",
		Counts:  models.CountMap{},
	}
	if err := repo.CreateDiscrepancyEvent(context.Background(), e); err == nil {
		t.Fatal("Expected error for invalid status")
	}
}

func TestDiscrepancyEvents_AppendOnly(t *testing.T) {
	repo := setupTestRepo(t)

	e := &models.DiscrepancyEvent{
		Service: "jobs-api",
		Status:  models.StatusVerified,
		Counts:  models.CountMap{"pending": 1},
	}
	if err := repo.CreateDiscrepancyEvent(context.Background(), e); err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}

	db, _ := repo.handle()
	if _, err := db.Exec(`DELETE FROM discrepancy_events`); err == nil {
		t.Fatal("Delete on discrepancy_events should be rejected")
	} else if !strings.Contains(err.Error(), "append-only") {
		t.Errorf("Expected append-only rejection, got: %v", err)
	}
	if _, err := db.Exec(`UPDATE discrepancy_events SET status = 'stale'`); err == nil {
		t.Fatal("Update on discrepancy_events should be rejected")
	}

	events, err := repo.ListDiscrepancyEvents(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("Failed to list events: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("Row count changed after rejected delete: %d", len(events))
	}
}

func TestCommandAudit_AppendOnly(t *testing.T) {
	repo := setupTestRepo(t)

	a := &models.CommandAudit{Actor: "system", ActionType: "restart", Target: "svc-a"}
	if err := repo.CreateCommandAudit(context.Background(), a); err != nil {
		t.Fatalf("Failed to create command audit: %v", err)
	}

	db, _ := repo.handle()
	if _, err := db.Exec(`DELETE FROM command_audit WHERE id = ?`, a.ID); err == nil {
		t.Fatal("Delete on command_audit should be rejected")
	} else if !strings.Contains(err.Error(), "append-only") {
		t.Errorf("Expected append-only rejection, got: %v", err)
	}

	var count int
	if err := db.Get(&count, `SELECT COUNT(*) FROM command_audit`); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	if count != 1 {
		t.Errorf("Row count changed after rejected delete: %d", count)
	}
}

func TestCreateCommandAudit_ForcesRunning(t *testing.T) {
	repo := setupTestRepo(t)

	a := &models.CommandAudit{
		Actor:      "system",
		ActionType: "restart",
		Target:     "svc-a",
		Outcome:    models.OutcomeSuccess, // ignored
	}
	if err := repo.CreateCommandAudit(context.Background(), a); err != nil {
		t.Fatalf("Failed to create command audit: %v", err)
	}
	if a.Outcome != models.OutcomeRunning {
		t.Errorf("Expected outcome running at creation, got %s", a.Outcome)
	}

	got, err := repo.GetCommandAudit(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Failed to get command audit: %v", err)
	}
	if got.Outcome != models.OutcomeRunning {
		t.Errorf("Stored outcome should be running, got %s", got.Outcome)
	}
}

func TestFinalizeCommandAudit(t *testing.T) {
	repo := setupTestRepo(t)

	a := &models.CommandAudit{Actor: "system", ActionType: "restart", Target: "svc-a"}
	if err := repo.CreateCommandAudit(context.Background(), a); err != nil {
		t.Fatalf("Failed to create command audit: %v", err)
	}

	logs := models.LogLines{"restarting svc-a", "done"}
	if err := repo.FinalizeCommandAudit(context.Background(), a.ID, models.OutcomeSuccess, logs); err != nil {
		t.Fatalf("Failed to finalize: %v", err)
	}

	got, err := repo.GetCommandAudit(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Failed to get command audit: %v", err)
	}
	if got.Outcome != models.OutcomeSuccess {
		t.Errorf("Expected outcome success, got %s", got.Outcome)
	}
	if len(got.Logs) != 2 || got.Logs[1] != "done" {
		t.Errorf("Logs did not round-trip: %v", got.Logs)
	}
}

func TestFinalizeCommandAudit_UnknownID(t *testing.T) {
	repo := setupTestRepo(t)

	// Silent no-op.
	if err := repo.FinalizeCommandAudit(context.Background(), "no-such-id", models.OutcomeFailure, nil); err != nil {
		t.Fatalf("Finalize on unknown id should be a no-op, got: %v", err)
	}
}

func TestFinalizeCommandAudit_SecondFinalizeIsNoOp(t *testing.T) {
	repo := setupTestRepo(t)

	a := &models.CommandAudit{Actor: "system", ActionType: "restart", Target: "svc-a"}
	if err := repo.CreateCommandAudit(context.Background(), a); err != nil {
		t.Fatalf("Failed to create command audit: %v", err)
	}
	if err := repo.FinalizeCommandAudit(context.Background(), a.ID, models.OutcomeSuccess, models.LogLines{"done"}); err != nil {
		t.Fatalf("Failed to finalize: %v", err)
	}
	if err := repo.FinalizeCommandAudit(context.Background(), a.ID, models.OutcomeFailure, models.LogLines{"late"}); err != nil {
		t.Fatalf("Second finalize should be a no-op, got: %v", err)
	}

	got, err := repo.GetCommandAudit(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Failed to get command audit: %v", err)
	}
	if got.Outcome != models.OutcomeSuccess {
		t.Errorf("Second finalize overwrote terminal outcome: %s", got.Outcome)
	}
	if len(got.Logs) != 1 || got.Logs[0] != "done" {
		t.Errorf("Second finalize overwrote logs: %v", got.Logs)
	}
}

func TestFinalizeCommandAudit_InvalidOutcome(t *testing.T) {
	repo := setupTestRepo(t)

	if err := repo.FinalizeCommandAudit(context.Background(), "any", models.OutcomeRunning, nil); err == nil {
		t.Fatal("Expected error for non-terminal outcome")
	}
}

func TestQueryAuditLog_Pagination(t *testing.T) {
	repo := setupTestRepo(t)

	for i := 0; i < 7; i++ {
		a := &models.CommandAudit{
			Actor:      "system",
			ActionType: "restart",
			Target:     fmt.Sprintf("svc-%d", i),
		}
		if err := repo.CreateCommandAudit(context.Background(), a); err != nil {
			t.Fatalf("Failed to create row %d: %v", i, err)
		}
	}

	seen := map[string]bool{}
	for page := 1; page <= 3; page++ {
		rows, total, err := repo.QueryAuditLog(context.Background(), AuditLogQuery{
			Page: page, Limit: 3, SortColumn: "timestamp", SortOrder: "DESC",
		})
		if err != nil {
			t.Fatalf("Query page %d failed: %v", page, err)
		}
		if total != 7 {
			t.Errorf("Expected total 7, got %d", total)
		}
		for _, row := range rows {
			if seen[row.ID] {
				t.Errorf("Row %s returned on more than one page", row.ID)
			}
			seen[row.ID] = true
		}
	}
	if len(seen) != 7 {
		t.Errorf("Expected 7 distinct rows across pages, got %d", len(seen))
	}
}

func TestQueryAuditLog_Filters(t *testing.T) {
	repo := setupTestRepo(t)

	for _, spec := range []struct{ action, target string }{
		{"restart", "svc-a"},
		{"restart", "svc-b"},
		{"reload", "svc-a"},
	} {
		a := &models.CommandAudit{Actor: "system", ActionType: spec.action, Target: spec.target}
		if err := repo.CreateCommandAudit(context.Background(), a); err != nil {
			t.Fatalf("Failed to create row: %v", err)
		}
	}

	rows, total, err := repo.QueryAuditLog(context.Background(), AuditLogQuery{
		Page: 1, Limit: 10, SortColumn: "timestamp", SortOrder: "DESC",
		ActionType: "restart", Target: "svc-a",
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("Expected exactly one restart/svc-a row, got total=%d rows=%d", total, len(rows))
	}
	if rows[0].Target != "svc-a" || rows[0].ActionType != "restart" {
		t.Errorf("Filter returned wrong row: %+v", rows[0])
	}

	future := time.Now().Add(time.Hour)
	_, total, err = repo.QueryAuditLog(context.Background(), AuditLogQuery{
		Page: 1, Limit: 10, SortColumn: "timestamp", SortOrder: "DESC",
		StartDate: &future,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if total != 0 {
		t.Errorf("Expected no rows after future start date, got %d", total)
	}
}

func TestOperationsAfterClose(t *testing.T) {
	repo, err := NewSQLiteRepository(":memory:")
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	if err := repo.Migrate(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("Second close should be safe: %v", err)
	}

	a := &models.CommandAudit{Actor: "system", ActionType: "restart", Target: "svc-a"}
	if err := repo.CreateCommandAudit(context.Background(), a); err != ErrNotInitialized {
		t.Errorf("Expected ErrNotInitialized after close, got: %v", err)
	}
}
