package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/airfreight/trackingd/pkg/models"
	"github.com/airfreight/trackingd/pkg/trackerrors"
)

// SubscriptionStore persists subscriber notification preferences (§3
// Subscription). Rows are written by Create, called from pkg/api's
// subscribe handler, and consumed here for matching during dispatch.
type SubscriptionStore struct {
	db *sql.DB
}

// NewSubscriptionStore constructs a SubscriptionStore over an open pool.
func NewSubscriptionStore(db *sql.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// Create inserts a subscription. The (shipment_id, subscriber_id, method)
// unique constraint surfaces as a ValidationError on conflict.
func (s *SubscriptionStore) Create(ctx context.Context, sub *models.Subscription) error {
	if sub.SubscriptionID == "" {
		sub.SubscriptionID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (
			subscription_id, shipment_id, subscriber_id, method, endpoint,
			filter_milestone, filter_exception, filter_location, filter_all_events, active, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now())`,
		sub.SubscriptionID, sub.ShipmentID, sub.SubscriberID, sub.Method, sub.Endpoint,
		sub.FilterMilestone, sub.FilterException, sub.FilterLocationUpdates, sub.FilterAllEvents, sub.Active,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return trackerrors.NewValidationError("subscription", "a subscription already exists for this shipment, subscriber, and method")
		}
		return trackerrors.NewStoreError("create subscription", err)
	}
	return nil
}

// ListActiveForShipment returns every active subscription on a shipment,
// for matching against a newly applied event (§4.6).
func (s *SubscriptionStore) ListActiveForShipment(ctx context.Context, shipmentID string) ([]*models.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subscription_id, shipment_id, subscriber_id, method, endpoint,
		       filter_milestone, filter_exception, filter_location, filter_all_events, active, created_at
		FROM subscriptions WHERE shipment_id = $1 AND active = TRUE`, shipmentID)
	if err != nil {
		return nil, trackerrors.NewStoreError("list subscriptions", err)
	}
	defer rows.Close()

	var out []*models.Subscription
	for rows.Next() {
		var sub models.Subscription
		if err := rows.Scan(&sub.SubscriptionID, &sub.ShipmentID, &sub.SubscriberID, &sub.Method, &sub.Endpoint,
			&sub.FilterMilestone, &sub.FilterException, &sub.FilterLocationUpdates, &sub.FilterAllEvents, &sub.Active, &sub.CreatedAt); err != nil {
			return nil, trackerrors.NewStoreError("scan subscription", err)
		}
		out = append(out, &sub)
	}
	return out, rows.Err()
}

// GetByID looks up a single subscription, for the notification dispatcher
// loading a queued job's subscription.
func (s *SubscriptionStore) GetByID(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.QueryRowContext(ctx, `
		SELECT subscription_id, shipment_id, subscriber_id, method, endpoint,
		       filter_milestone, filter_exception, filter_location, filter_all_events, active, created_at
		FROM subscriptions WHERE subscription_id = $1`, subscriptionID,
	).Scan(&sub.SubscriptionID, &sub.ShipmentID, &sub.SubscriberID, &sub.Method, &sub.Endpoint,
		&sub.FilterMilestone, &sub.FilterException, &sub.FilterLocationUpdates, &sub.FilterAllEvents, &sub.Active, &sub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, trackerrors.NewNotFoundError("subscription", subscriptionID)
	}
	if err != nil {
		return nil, trackerrors.NewStoreError("get subscription", err)
	}
	return &sub, nil
}
