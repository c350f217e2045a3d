// Package command executes externally-triggered operations with full
// lifecycle auditing and live progress over the broadcast hub.
package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jobtrace/jobtrace-gateway/internal/hub"
	"github.com/jobtrace/jobtrace-gateway/internal/metrics"
	"github.com/jobtrace/jobtrace-gateway/internal/models"
	"github.com/jobtrace/jobtrace-gateway/internal/repository"
)

// Executor is the hand-off seam for fire-and-forget execution. The default
// runs the task on a new goroutine; tests inject a synchronous one.
type Executor func(task func())

// Runner executes named commands, writing a "running" audit record up front
// and finalizing it with the outcome and captured logs regardless of the
// success or failure path.
type Runner struct {
	store    repository.CommandAuditWriter
	hub      *hub.Hub
	delegate Delegate
	executor Executor
	logger   *slog.Logger
}

// NewRunner creates a runner. A nil executor defaults to goroutine hand-off.
func NewRunner(store repository.CommandAuditWriter, h *hub.Hub, delegate Delegate, executor Executor, logger *slog.Logger) *Runner {
	if executor == nil {
		executor = func(task func()) { go task() }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:    store,
		hub:      h,
		delegate: delegate,
		executor: executor,
		logger:   logger,
	}
}

// Submit hands the command off for execution and returns immediately. All
// subsequent phases are observable via the hub or the audit log.
func (r *Runner) Submit(commandID, command string, params map[string]interface{}) {
	r.executor(func() { r.run(context.Background(), commandID, command, params) })
}

func (r *Runner) run(ctx context.Context, commandID, command string, params map[string]interface{}) {
	r.publishStatus(commandID, models.PhaseQueued, nil, false)

	target := "unknown"
	if t, ok := params["target"].(string); ok && t != "" {
		target = t
	}

	audit := &models.CommandAudit{
		Actor:         "system",
		ActionType:    command,
		Target:        target,
		CommandParams: params,
	}
	if err := r.store.CreateCommandAudit(ctx, audit); err != nil {
		// Without the initial row there is nothing to finalize; the command
		// does not run against an unaudited store.
		r.logger.Error("failed to create command audit", "command_id", commandID, "command", command, "error", err)
		r.publishStatus(commandID, models.PhaseError, []string{"audit write failed: " + err.Error()}, false)
		return
	}

	r.publishStatus(commandID, models.PhaseRunning, nil, false)

	var lines models.LogLines
	outcome := models.OutcomeSuccess
	phase := models.PhaseSuccess

	// Once the running row exists it must be finalized exactly once, so the
	// whole tail runs deferred. The delegate is opaque external code; a panic
	// from it is contained here, recorded as a failure, and never reaches the
	// executor goroutine. The finalize precedes the terminal publish: the
	// audit trail is the authoritative record and must never trail what was
	// broadcast.
	defer func() {
		if p := recover(); p != nil {
			outcome = models.OutcomeFailure
			phase = models.PhaseError
			lines = append(lines, fmt.Sprintf("panic: %v", p))
			r.logger.Error("command panicked", "command_id", commandID, "command", command, "target", target, "panic", p)
		}
		if finErr := r.store.FinalizeCommandAudit(ctx, audit.ID, outcome, lines); finErr != nil {
			r.logger.Error("failed to finalize command audit", "command_id", commandID, "audit_id", audit.ID, "error", finErr)
		}
		metrics.CommandsTotal.WithLabelValues(outcome).Inc()
		r.publishStatus(commandID, phase, lines, outcome == models.OutcomeSuccess)
	}()

	logs, err := r.delegate.Execute(ctx, command, params)
	lines = models.LogLines(logs)
	if err != nil {
		outcome = models.OutcomeFailure
		phase = models.PhaseError
		lines = append(lines, err.Error())
		r.logger.Warn("command failed", "command_id", commandID, "command", command, "target", target, "error", err)
		return
	}
	r.logger.Info("command succeeded", "command_id", commandID, "command", command, "target", target)
}

func (r *Runner) publishStatus(commandID, phase string, logs []string, verified bool) {
	r.hub.Publish(models.EventCommandStatus, models.CommandStatus{
		CommandID: commandID,
		Phase:     phase,
		Logs:      logs,
		Verified:  verified,
	})
}
