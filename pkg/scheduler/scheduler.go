// Package scheduler runs the global poll tick that keeps tracked shipments
// current (§4.4). Unlike a per-shipment timer, every eligible shipment is
// re-evaluated against a single shared ticker — the shape the teacher uses
// for its worker pool's lifecycle (pkg/queue/pool.go: Start/Stop, a stop
// channel, and a WaitGroup for graceful drain), reduced here to one
// ticking goroutine instead of a fixed worker count, since the work unit
// is a tick, not a long-running session.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/airfreight/trackingd/pkg/adapters"
	"github.com/airfreight/trackingd/pkg/config"
	"github.com/airfreight/trackingd/pkg/ingest"
	"github.com/airfreight/trackingd/pkg/metrics"
	"github.com/airfreight/trackingd/pkg/models"
	"github.com/airfreight/trackingd/pkg/store"
)

// Scheduler owns the single global poll tick.
type Scheduler struct {
	shipments *store.ShipmentStore
	registry  *adapters.Registry
	pipeline  *ingest.Pipeline
	cfg       config.SchedulerConfig

	sem map[string]chan struct{}

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool

	mu            sync.Mutex
	lastTickAt    time.Time
	lastTickCount int

	log *slog.Logger
}

// New constructs a Scheduler. It does not start ticking until Start is
// called.
func New(shipments *store.ShipmentStore, registry *adapters.Registry, pipeline *ingest.Pipeline, cfg config.SchedulerConfig) *Scheduler {
	sem := make(map[string]chan struct{}, len(registry.All()))
	for _, a := range registry.All() {
		n := cfg.PerSourceParallel
		if n <= 0 {
			n = 1
		}
		sem[a.SourceID()] = make(chan struct{}, n)
	}
	return &Scheduler{
		shipments: shipments,
		registry:  registry,
		pipeline:  pipeline,
		cfg:       cfg,
		sem:       sem,
		stopCh:    make(chan struct{}),
		log:       slog.With("component", "scheduler"),
	}
}

// Start begins the tick loop. Safe to call once; subsequent calls are no-ops.
func (s *Scheduler) Start(ctx context.Context) {
	if s.started {
		s.log.Warn("scheduler already started, ignoring duplicate Start call")
		return
	}
	s.started = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.runTick(ctx)
			}
		}
	}()

	s.log.Info("scheduler started", "tick_interval", s.cfg.TickInterval, "batch_size", s.cfg.BatchSize)
}

// Stop signals the tick loop to exit and waits up to deadline for the
// in-flight tick (if any) to finish draining.
func (s *Scheduler) Stop(deadline time.Duration) {
	s.stopOnce.Do(func() { close(s.stopCh) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("scheduler stopped gracefully")
	case <-time.After(deadline):
		s.log.Warn("scheduler stop deadline exceeded, returning without waiting for in-flight tick")
	}
}

// runTick selects due shipments and fetches every registered adapter for
// each, applying whatever events come back through the ingestion pipeline.
// last_tracked_at is set for every selected shipment regardless of fetch
// outcome (§4.4): the scheduler never retries a shipment sooner because one
// source happened to fail.
func (s *Scheduler) runTick(ctx context.Context) {
	now := time.Now().UTC()
	due, err := s.shipments.ListDueForPoll(ctx, now, time.Minute, s.cfg.BatchSize)
	if err != nil {
		s.log.Error("failed to list shipments due for poll", "error", err)
		return
	}

	var wg sync.WaitGroup
	for _, sh := range due {
		wg.Add(1)
		go func(sh *models.Shipment) {
			defer wg.Done()
			s.pollShipment(ctx, sh)
			if err := s.shipments.MarkTracked(ctx, sh.ShipmentID, now); err != nil {
				s.log.Error("failed to mark shipment tracked", "shipment_id", sh.ShipmentID, "error", err)
			}
		}(sh)
	}
	wg.Wait()

	s.mu.Lock()
	s.lastTickAt = now
	s.lastTickCount = len(due)
	s.mu.Unlock()

	s.log.Debug("poll tick complete", "shipments_polled", len(due))
}

func (s *Scheduler) pollShipment(ctx context.Context, sh *models.Shipment) {
	var wg sync.WaitGroup
	for _, a := range s.registry.All() {
		wg.Add(1)
		go func(a adapters.Adapter) {
			defer wg.Done()
			sem := s.sem[a.SourceID()]
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			s.fetchAndApply(ctx, a, sh)
		}(a)
	}
	wg.Wait()
}

func (s *Scheduler) fetchAndApply(ctx context.Context, a adapters.Adapter, sh *models.Shipment) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	timer := metrics.NewTimer()
	events, err := a.Fetch(fetchCtx, sh)
	if err != nil {
		s.log.Warn("adapter fetch failed", "source_id", a.SourceID(), "shipment_id", sh.ShipmentID, "error", err)
		timer.ObserveDuration(metrics.PollDuration, a.SourceID())
		metrics.PollTicksTotal.WithLabelValues(a.SourceID(), "fetch_error").Inc()
		return
	}
	timer.ObserveDuration(metrics.PollDuration, a.SourceID())
	metrics.PollTicksTotal.WithLabelValues(a.SourceID(), "ok").Inc()

	for _, e := range events {
		outcome, err := s.pipeline.Apply(ctx, sh.ShipmentID, e, a.SourceID())
		if err != nil && outcome == ingest.OutcomeRejected {
			s.log.Warn("rejected polled event", "source_id", a.SourceID(), "shipment_id", sh.ShipmentID, "code", e.Code, "error", err)
		}
	}
}

// RunOnce executes a single poll tick synchronously and returns the
// resulting health snapshot, for the admin one-shot endpoint (§6: POST
// /tracking/process-updates) — the same selection-and-fetch logic the
// ticking goroutine runs, just invoked on demand instead of waiting for
// the next tick.
func (s *Scheduler) RunOnce(ctx context.Context) Health {
	s.runTick(ctx)
	return s.Health()
}

// PollShipmentNow fetches every registered adapter for a single shipment
// immediately, outside the regular tick, for the operator-triggered force
// refresh endpoints (§6: POST /tracking/update/{awb}, /tracking/bulk-update).
// last_tracked_at is updated exactly as a regular tick would.
func (s *Scheduler) PollShipmentNow(ctx context.Context, sh *models.Shipment) {
	s.pollShipment(ctx, sh)
	if err := s.shipments.MarkTracked(ctx, sh.ShipmentID, time.Now().UTC()); err != nil {
		s.log.Error("failed to mark shipment tracked after forced refresh", "shipment_id", sh.ShipmentID, "error", err)
	}
}

// Health reports the most recent tick's size, for the health/status endpoint.
type Health struct {
	LastTickAt    time.Time
	LastTickCount int
}

// Health returns a snapshot of the scheduler's last completed tick.
func (s *Scheduler) Health() Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Health{LastTickAt: s.lastTickAt, LastTickCount: s.lastTickCount}
}
