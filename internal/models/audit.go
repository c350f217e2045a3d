package models

import "time"

// Discrepancy event statuses. The poller currently only ever records
// StatusVerified; StatusStale and StatusDiscrepancy are reserved for
// comparison logic against a prior snapshot that is not implemented yet.
const (
	StatusVerified    = "verified"
	StatusStale       = "stale"
	StatusDiscrepancy = "discrepancy"
)

// Command audit outcomes. A row is created as OutcomeRunning and updated
// exactly once to one of the terminal values.
const (
	OutcomeRunning = "running"
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeTimeout = "timeout"
)

// DiscrepancyEvent is one snapshot of upstream job counts and a content
// checksum, taken by the reconciliation poller. Append-only: no UPDATE or
// DELETE on discrepancy records.
type DiscrepancyEvent struct {
	ID                 string    `json:"id" db:"id"`
	Timestamp          time.Time `json:"timestamp" db:"timestamp"`
	Service            string    `json:"service" db:"service"`
	Status             string    `json:"status" db:"status"`
	Counts             CountMap  `json:"counts" db:"counts"`
	Checksum           string    `json:"checksum" db:"checksum"`
	LatencyMs          int64     `json:"latencyMs" db:"latency_ms"`
	DiscrepancyDetails JSONBlob  `json:"discrepancyDetails,omitempty" db:"discrepancy_details"`
}

// CommandAudit is the durable record of one triggered operation's lifecycle,
// from acceptance (outcome "running") to its terminal outcome. Rows are
// inserted once, finalized once, never deleted.
type CommandAudit struct {
	ID            string    `json:"id" db:"id"`
	Timestamp     time.Time `json:"timestamp" db:"timestamp"`
	Actor         string    `json:"actor" db:"actor"`
	ActionType    string    `json:"actionType" db:"action_type"`
	Target        string    `json:"target" db:"target"`
	Outcome       string    `json:"outcome" db:"outcome"`
	BeforeState   JSONBlob  `json:"beforeState,omitempty" db:"before_state"`
	AfterState    JSONBlob  `json:"afterState,omitempty" db:"after_state"`
	CommandParams JSONBlob  `json:"commandParams,omitempty" db:"command_params"`
	Logs          LogLines  `json:"logs" db:"logs"`
}
