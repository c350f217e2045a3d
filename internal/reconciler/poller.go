// Package reconciler runs the background poller that samples upstream job
// state on a fixed cadence and records a discrepancy event per cycle.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jobtrace/jobtrace-gateway/internal/hub"
	"github.com/jobtrace/jobtrace-gateway/internal/metrics"
	"github.com/jobtrace/jobtrace-gateway/internal/models"
	"github.com/jobtrace/jobtrace-gateway/internal/repository"
	"github.com/jobtrace/jobtrace-gateway/internal/upstream"
)

// ErrCycleInFlight is returned by RunCycle when a prior cycle is still
// executing. Cycles are serialized; a tick that lands mid-cycle is skipped
// rather than overlapped against the store.
var ErrCycleInFlight = errors.New("reconciliation cycle already in flight")

// Poller samples the upstream job source on a fixed interval.
type Poller struct {
	source       upstream.JobSource
	store        repository.DiscrepancyWriter
	hub          *hub.Hub
	service      string
	interval     time.Duration
	queryTimeout time.Duration
	logger       *slog.Logger

	inFlight atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a poller. queryTimeout bounds each upstream query; interval is
// the cadence between cycle starts.
func New(source upstream.JobSource, store repository.DiscrepancyWriter, h *hub.Hub, service string, interval, queryTimeout time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		source:       source,
		store:        store,
		hub:          h,
		service:      service,
		interval:     interval,
		queryTimeout: queryTimeout,
		logger:       logger,
	}
}

// Start launches the background loop. It returns an error if the poller is
// already running.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return errors.New("poller already started")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(loopCtx)
	p.logger.Info("reconciliation poller started", "service", p.service, "interval", p.interval)
	return nil
}

// Stop cancels the loop and waits for any in-flight cycle to finish. Safe to
// call when the poller was never started.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.logger.Info("reconciliation poller stopped")
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Failures are terminal to this cycle only; the next tick
			// proceeds independently.
			if err := p.RunCycle(ctx); err != nil && err != ErrCycleInFlight {
				p.logger.Error("reconciliation cycle failed", "service", p.service, "error", err)
			}
		}
	}
}

// RunCycle executes one poll cycle: query upstream, tally counts, compute the
// checksum, persist a discrepancy event, then publish it to live subscribers.
// The store write happens-before the publish.
func (p *Poller) RunCycle(ctx context.Context) error {
	if !p.inFlight.CompareAndSwap(false, true) {
		metrics.ReconcileCyclesTotal.WithLabelValues("skipped").Inc()
		p.logger.Warn("reconciliation tick skipped: previous cycle still running", "service", p.service)
		return ErrCycleInFlight
	}
	defer p.inFlight.Store(false)

	cycleStart := time.Now()

	queryCtx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	jobs, err := p.source.ListJobs(queryCtx, p.service)
	cancel()
	latencyMs := time.Since(cycleStart).Milliseconds()
	if err != nil {
		metrics.ReconcileCyclesTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("upstream query: %w", err)
	}

	event := &models.DiscrepancyEvent{
		Service: p.service,
		// The poller only ever records "verified"; stale/discrepancy are
		// reserved for comparison against a prior snapshot, which is not
		// implemented.
		Status:    models.StatusVerified,
		Counts:    TallyCounts(jobs),
		Checksum:  Checksum(jobs),
		LatencyMs: latencyMs,
	}

	if err := p.store.CreateDiscrepancyEvent(ctx, event); err != nil {
		metrics.ReconcileCyclesTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("persist discrepancy event: %w", err)
	}

	p.hub.Publish(models.EventReconciliationUpdate, event)

	metrics.ReconcileCyclesTotal.WithLabelValues("success").Inc()
	metrics.ReconcileCycleDuration.Observe(time.Since(cycleStart).Seconds())
	p.logger.Debug("reconciliation cycle complete",
		"service", p.service,
		"checksum", event.Checksum,
		"latency_ms", latencyMs,
	)
	return nil
}
