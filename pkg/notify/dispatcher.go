package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/airfreight/trackingd/pkg/config"
	"github.com/airfreight/trackingd/pkg/metrics"
	"github.com/airfreight/trackingd/pkg/models"
	"github.com/airfreight/trackingd/pkg/store"
	"github.com/airfreight/trackingd/pkg/trackerrors"
)

// Dispatcher drains pending notification jobs on a fixed sweep interval,
// delivering each through the Deliverer registered for its subscription's
// method. Lifecycle mirrors pkg/scheduler.Scheduler: a single ticking
// goroutine, a stop channel, and a WaitGroup for graceful drain.
type Dispatcher struct {
	jobs          *store.JobStore
	events        *store.EventStore
	subscriptions *store.SubscriptionStore
	shipments     *store.ShipmentStore
	registry      *Registry
	cfg           config.NotifyConfig

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool

	log *slog.Logger
}

// New constructs a Dispatcher. It does not start sweeping until Start is
// called.
func New(jobs *store.JobStore, events *store.EventStore, subscriptions *store.SubscriptionStore, shipments *store.ShipmentStore, registry *Registry, cfg config.NotifyConfig) *Dispatcher {
	return &Dispatcher{
		jobs:          jobs,
		events:        events,
		subscriptions: subscriptions,
		shipments:     shipments,
		registry:      registry,
		cfg:           cfg,
		stopCh:        make(chan struct{}),
		log:           slog.With("component", "notify"),
	}
}

// Start begins the sweep loop. Safe to call once; subsequent calls are no-ops.
func (d *Dispatcher) Start(ctx context.Context) {
	if d.started {
		d.log.Warn("dispatcher already started, ignoring duplicate Start call")
		return
	}
	d.started = true

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-d.stopCh:
				return
			case <-ticker.C:
				d.sweep(ctx)
			}
		}
	}()

	d.log.Info("notification dispatcher started", "sweep_interval", d.cfg.SweepInterval, "max_attempts", d.cfg.MaxAttempts)
}

// Stop signals the sweep loop to exit and waits up to deadline for the
// in-flight sweep (if any) to finish.
func (d *Dispatcher) Stop(deadline time.Duration) {
	d.stopOnce.Do(func() { close(d.stopCh) })

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info("notification dispatcher stopped gracefully")
	case <-time.After(deadline):
		d.log.Warn("notification dispatcher stop deadline exceeded")
	}
}

// sweep delivers every job due for an attempt, one at a time per job but
// concurrently across jobs, bounded by PerMethodParallel concurrent
// deliveries in total: the bound is one semaphore shared by every delivery
// method, not a separate bound per method. Before
// that, it recovers orphaned events (§4.6): events flagged
// notification_sent=false whose matching subscriptions have no job row at
// all, because the ingestion pipeline's post-commit emit step never ran or
// failed. ListDue alone cannot find these — it only re-attempts jobs that
// already exist — so without this pass a crash between Apply's commit and
// emit would lose that notification permanently.
func (d *Dispatcher) sweep(ctx context.Context) {
	d.recoverOrphans(ctx)

	due, err := d.jobs.ListDue(ctx, time.Now().UTC(), 500)
	if err != nil {
		d.log.Error("failed to list due notification jobs", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	sem := make(chan struct{}, max(d.cfg.PerMethodParallel, 1))
	var wg sync.WaitGroup
	for _, job := range due {
		wg.Add(1)
		sem <- struct{}{}
		go func(job *models.NotificationJob) {
			defer wg.Done()
			defer func() { <-sem }()
			d.attempt(ctx, job)
		}(job)
	}
	wg.Wait()

	d.log.Debug("notification sweep complete", "jobs_attempted", len(due))
}

// recoverOrphans enqueues a job for every orphaned event/subscription pair
// so it is picked up by the ListDue pass later in the same sweep tick.
// EnqueueDB's ON CONFLICT DO NOTHING makes this safe to run every tick even
// though the orphan query and a concurrent normal emit can race.
func (d *Dispatcher) recoverOrphans(ctx context.Context) {
	orphans, err := d.jobs.ListOrphanedEvents(ctx, 500)
	if err != nil {
		d.log.Error("failed to list orphaned notification events", "error", err)
		return
	}
	for _, o := range orphans {
		if err := d.jobs.EnqueueDB(ctx, o.EventID, o.SubscriptionID); err != nil {
			d.log.Error("failed to recover orphaned notification", "event_id", o.EventID, "subscription_id", o.SubscriptionID, "error", err)
			continue
		}
		d.log.Warn("recovered orphaned notification", "event_id", o.EventID, "subscription_id", o.SubscriptionID)
	}
	if len(orphans) > 0 {
		metrics.NotificationsRecoveredTotal.Add(float64(len(orphans)))
		d.log.Info("recovered orphaned notifications", "count", len(orphans))
	}
}

func (d *Dispatcher) attempt(ctx context.Context, job *models.NotificationJob) {
	log := d.log.With("job_id", job.JobID, "subscription_id", job.SubscriptionID)

	sub, err := d.subscriptions.GetByID(ctx, job.SubscriptionID)
	if err != nil {
		log.Error("subscription missing for queued job, failing permanently", "error", err)
		d.finish(ctx, job, "unknown", trackerrors.NewPermanentUpstreamError("notify", err))
		return
	}
	event, err := d.events.GetByID(ctx, job.EventID)
	if err != nil {
		log.Error("event missing for queued job, failing permanently", "error", err)
		d.finish(ctx, job, string(sub.Method), trackerrors.NewPermanentUpstreamError("notify", err))
		return
	}
	shipment, err := d.shipments.GetByID(ctx, sub.ShipmentID)
	if err != nil {
		log.Error("shipment missing for queued job, failing permanently", "error", err)
		d.finish(ctx, job, string(sub.Method), trackerrors.NewPermanentUpstreamError("notify", err))
		return
	}

	deliverer := d.registry.For(sub.Method)
	if deliverer == nil {
		log.Error("no deliverer configured for method", "method", sub.Method)
		d.finish(ctx, job, string(sub.Method), trackerrors.NewPermanentUpstreamError("notify", errors.New("unconfigured delivery method")))
		return
	}

	deliverCtx, cancel := context.WithTimeout(ctx, d.cfg.DeliverTimeout)
	defer cancel()

	timer := metrics.NewTimer()
	err = deliverer.Deliver(deliverCtx, Delivery{Job: job, Subscription: sub, Event: event, Shipment: shipment})
	timer.ObserveDuration(metrics.NotificationDeliveryDuration, string(sub.Method))

	d.finish(ctx, job, string(sub.Method), err)
}

// finish records the outcome of a delivery attempt: success marks the job
// DELIVERED; a permanent error fails it immediately; anything else
// (including an unclassified error) is treated as transient and rescheduled
// with exponential backoff, up to MaxAttempts (§4.6).
func (d *Dispatcher) finish(ctx context.Context, job *models.NotificationJob, method string, err error) {
	log := d.log.With("job_id", job.JobID)

	if err == nil {
		if rerr := d.jobs.RecordAttempt(ctx, job.JobID, job.AttemptCount+1, models.NotificationDelivered, "", time.Time{}); rerr != nil {
			log.Error("failed to record successful delivery", "error", rerr)
		}
		if merr := d.events.MarkNotificationSent(ctx, job.EventID); merr != nil {
			log.Warn("failed to mark event notification_sent", "error", merr)
		}
		metrics.NotificationsDeliveredTotal.WithLabelValues(method).Inc()
		return
	}

	attempts := job.AttemptCount + 1
	if trackerrors.IsPermanentUpstreamError(err) || attempts >= d.cfg.MaxAttempts {
		if rerr := d.jobs.RecordAttempt(ctx, job.JobID, attempts, models.NotificationFailed, err.Error(), time.Time{}); rerr != nil {
			log.Error("failed to record failed delivery", "error", rerr)
		}
		log.Warn("notification delivery failed permanently", "attempts", attempts, "error", err)
		metrics.NotificationsFailedTotal.WithLabelValues(method).Inc()
		return
	}

	backoff := d.cfg.InitialBackoff << (attempts - 1)
	if backoff > d.cfg.MaxBackoff || backoff <= 0 {
		backoff = d.cfg.MaxBackoff
	}
	nextAttempt := time.Now().UTC().Add(backoff)
	if rerr := d.jobs.RecordAttempt(ctx, job.JobID, attempts, models.NotificationPending, err.Error(), nextAttempt); rerr != nil {
		log.Error("failed to reschedule failed delivery", "error", rerr)
	}
	log.Warn("notification delivery failed, rescheduled", "attempts", attempts, "next_attempt_at", nextAttempt, "error", err)
}
