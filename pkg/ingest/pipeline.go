package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/airfreight/trackingd/pkg/adapters/manual"
	"github.com/airfreight/trackingd/pkg/hub"
	"github.com/airfreight/trackingd/pkg/metrics"
	"github.com/airfreight/trackingd/pkg/models"
	"github.com/airfreight/trackingd/pkg/store"
	"github.com/airfreight/trackingd/pkg/trackerrors"
)

// CacheInvalidator drops a stale public-snapshot cache entry after a
// shipment's derived state changes. Implemented by pkg/cache.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, awbNumber string)
}

// Pipeline is the single path through which every canonical event is
// applied (§4.2). Adapters (pkg/adapters) and the direct-submission API
// handler (pkg/api) both call Apply; neither talks to the stores directly.
type Pipeline struct {
	shipments     *store.ShipmentStore
	events        *store.EventStore
	subscriptions *store.SubscriptionStore
	jobs          *store.JobStore
	catalog       *store.CatalogStore

	cache CacheInvalidator

	log *slog.Logger
}

// New constructs a Pipeline. cache may be nil — a nil-safe, fail-open
// dependency in the style of the teacher's Slack notification service: a
// dead cache must never block event ingestion. WebSocket fan-out is not a
// direct dependency of Pipeline at all — it happens out-of-band via
// notifyCommitted's pg_notify, picked up by pkg/hub.Listener in this or any
// other process, exactly the way the teacher's EventPublisher decouples
// persistence from delivery.
func New(shipments *store.ShipmentStore, events *store.EventStore, subscriptions *store.SubscriptionStore, jobs *store.JobStore, catalog *store.CatalogStore, cache CacheInvalidator) *Pipeline {
	return &Pipeline{
		shipments:     shipments,
		events:        events,
		subscriptions: subscriptions,
		jobs:          jobs,
		catalog:       catalog,
		cache:         cache,
		log:           slog.With("component", "ingest"),
	}
}

// Apply runs the full five-step §4.2 algorithm for one canonical event
// reported by sourceID against shipmentID, returning which of the three
// outcomes occurred.
func (p *Pipeline) Apply(ctx context.Context, shipmentID string, event *models.Event, sourceID string) (outcome Outcome, err error) {
	log := p.log.With("shipment_id", shipmentID, "code", event.Code, "source_id", sourceID)

	timer := metrics.NewTimer()
	outcome = OutcomeRejected
	defer func() {
		timer.ObserveDuration(metrics.IngestionDuration, sourceID)
		metrics.EventsIngestedTotal.WithLabelValues(sourceID, string(outcome)).Inc()
		if outcome == OutcomeDuplicate {
			metrics.EventsDuplicateTotal.WithLabelValues(sourceID).Inc()
		}
	}()

	// Step 1: existence and eligibility. Quiescence (§4.4) only gates which
	// shipments the poll scheduler selects for refresh — Apply itself must
	// still accept a late-arriving event for an already-DELIVERED/CANCELLED
	// shipment (§8 scenario S3: an out-of-order event applied after the
	// terminal one still succeeds). tracking_enabled=false only blocks
	// external-source applies; a manual operator submission is allowed
	// regardless (§4.2 step 1).
	shipment, err := p.shipments.GetByID(ctx, shipmentID)
	if err != nil {
		return OutcomeRejected, err
	}
	if !shipment.TrackingEnabled && sourceID != manual.SourceID {
		return OutcomeRejected, trackerrors.ErrDisabled
	}

	event.ShipmentID = shipmentID
	event.Source.SourceID = sourceID
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	p.classify(ctx, event)

	tx, err := p.shipments.BeginTx(ctx)
	if err != nil {
		return OutcomeRejected, trackerrors.NewStoreError("begin apply transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Step 2: dedup against candidates in the ±300s window for this
	// shipment+code, independent of which source reported them.
	candidates, err := p.events.FindCandidateDuplicates(ctx, tx, shipmentID, event.Code, event.EventDatetime)
	if err != nil {
		return OutcomeRejected, err
	}
	for _, existing := range candidates {
		if event.IsDuplicateOf(existing) {
			log.Debug("duplicate event discarded", "existing_event_id", existing.EventID)
			return OutcomeDuplicate, trackerrors.NewDuplicateError(shipmentID, event.Code)
		}
	}

	// Step 3: persist.
	if err := p.events.Append(ctx, tx, event); err != nil {
		return OutcomeRejected, err
	}

	// Notify within the same transaction so cross-process hub listeners
	// (pkg/hub.Listener) only ever observe a NOTIFY for an event that is
	// actually committed — never one rolled back by a later step.
	p.notifyCommitted(ctx, tx, shipment, event)

	// Step 4: derive and apply the shipment's new state, in the same
	// transaction as the event insert.
	derived, err := deriveFromLog(ctx, tx, shipmentID)
	if err != nil {
		return OutcomeRejected, err
	}
	if derived.changed {
		if err := p.shipments.UpdateDerived(ctx, tx, shipmentID, derived.Status, derived.Location, derived.DeliveryDate); err != nil {
			return OutcomeRejected, err
		}
	}

	if err := tx.Commit(); err != nil {
		return OutcomeRejected, trackerrors.NewStoreError("commit apply transaction", err)
	}

	// Step 5: post-commit emit. Best-effort — a failure here is logged and
	// left for the notification sweeper's orphan recovery to heal (a missed
	// cache invalidation lapses when the cache TTL expires); it never turns
	// a committed Apply back into an error for the caller.
	p.emit(ctx, shipment, event)

	return OutcomeCreated, nil
}

// classify enriches event with catalog-derived flags (is_milestone,
// is_critical) ahead of persistence. A code absent from the catalog is
// left as a plain status/location update — not every event is a milestone.
func (p *Pipeline) classify(ctx context.Context, event *models.Event) {
	if p.catalog == nil {
		return
	}
	m, err := p.catalog.GetMilestone(ctx, event.Code)
	if err != nil {
		return
	}
	event.IsMilestone = true
	event.IsCritical = m.Critical
	if event.Category == "" {
		event.Category = models.CategoryMilestone
	}
}

// notificationPayload is the envelope sent over pg_notify; pkg/hub forwards
// it verbatim as a WebSocket message, so its shape must stay in lockstep
// with whatever the client-facing contract documents for each type.
type notificationPayload struct {
	Type       string        `json:"type"`
	ShipmentID string        `json:"shipment_id"`
	Event      *models.Event `json:"event"`
}

// notifyCommitted emits pg_notify on the shipment (and, if known, customer)
// channel in the same transaction as the event insert. PostgreSQL queues
// NOTIFY until COMMIT, so a rolled-back Apply never produces a phantom
// notification. Adapted from the teacher's persistAndNotify/notifyOnly pair
// (pkg/events/publisher.go), which also fires one or more typed NOTIFYs per
// call rather than maintaining an in-process subscriber list — delivery to
// every process, including this one, goes through the same LISTEN path
// (pkg/hub.Listener), so there is exactly one delivery mechanism, not two.
func (p *Pipeline) notifyCommitted(ctx context.Context, tx *sql.Tx, shipment *models.Shipment, event *models.Event) {
	notify := func(channel, msgType string) {
		payload, err := json.Marshal(notificationPayload{Type: msgType, ShipmentID: shipment.ShipmentID, Event: event})
		if err != nil {
			p.log.Warn("failed to marshal notify payload", "shipment_id", shipment.ShipmentID, "type", msgType, "error", err)
			return
		}
		if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, channel, string(payload)); err != nil {
			p.log.Warn("pg_notify failed", "channel", channel, "type", msgType, "error", err)
		}
	}

	shipmentChannel := hub.ShipmentTopic(shipment.ShipmentID)
	notify(shipmentChannel, hub.TypeTrackingEvent)
	if event.IsCritical || event.IsException || event.IsMilestone {
		notify(shipmentChannel, hub.TypeCriticalUpdate)
	}
	if shipment.CustomerID != "" {
		notify(hub.CustomerTopic(shipment.CustomerID), hub.TypeCustomerTrackingUpdate)
	}
}

func (p *Pipeline) emit(ctx context.Context, shipment *models.Shipment, event *models.Event) {
	log := p.log.With("shipment_id", shipment.ShipmentID, "event_id", event.EventID)

	subs, err := p.subscriptions.ListActiveForShipment(ctx, shipment.ShipmentID)
	if err != nil {
		log.Warn("failed to list subscriptions for notification fan-out", "error", err)
	}
	for _, sub := range subs {
		if !sub.Matches(event) {
			continue
		}
		if err := p.jobs.EnqueueDB(ctx, event.EventID, sub.SubscriptionID); err != nil {
			log.Warn("failed to enqueue notification job", "subscription_id", sub.SubscriptionID, "error", err)
		}
	}

	if p.cache != nil {
		p.cache.Invalidate(ctx, shipment.AWBNumber)
	}
}
