package models

import "time"

// Event names published through the broadcast hub.
const (
	EventReconciliationUpdate = "reconciliation.update"
	EventCommandStatus        = "command.status"
)

// Command phases published under EventCommandStatus.
const (
	PhaseQueued  = "queued"
	PhaseRunning = "running"
	PhaseSuccess = "success"
	PhaseError   = "error"
)

// StreamMessage is one message delivered to hub subscribers and written to
// the websocket stream verbatim.
type StreamMessage struct {
	Event     string      `json:"event"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// CommandStatus is the payload for EventCommandStatus messages, one per
// phase transition of a running command.
type CommandStatus struct {
	CommandID string   `json:"commandId"`
	Phase     string   `json:"phase"`
	Logs      []string `json:"logs,omitempty"`
	Verified  bool     `json:"verified,omitempty"`
}
