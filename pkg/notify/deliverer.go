// Package notify is the §4.6 notification dispatcher: it drains pending
// NotificationJob rows created by the ingestion pipeline, delivers each to
// its subscriber over the subscription's method, and retries transient
// failures with exponential backoff up to a bounded attempt count.
package notify

import (
	"context"

	"github.com/airfreight/trackingd/pkg/models"
)

// Delivery carries everything a Deliverer needs to render and send one
// notification, gathered once by the dispatcher per job.
type Delivery struct {
	Job          *models.NotificationJob
	Subscription *models.Subscription
	Event        *models.Event
	Shipment     *models.Shipment
}

// Deliverer sends one Delivery over a specific channel. Errors should be
// trackerrors.TransientUpstreamError (retryable) or
// trackerrors.PermanentUpstreamError (not retryable); any other error is
// treated as transient by the dispatcher to avoid silently dropping a
// notification because of an unclassified failure.
type Deliverer interface {
	Deliver(ctx context.Context, d Delivery) error
}

// Registry selects the Deliverer for a subscription's method.
type Registry struct {
	byMethod map[models.DeliveryMethod]Deliverer
}

// NewRegistry builds a Registry from a method-to-deliverer mapping. A
// method absent from the map has no configured transport — jobs for it
// fail permanently rather than retrying forever against nothing.
func NewRegistry(byMethod map[models.DeliveryMethod]Deliverer) *Registry {
	return &Registry{byMethod: byMethod}
}

// For returns the Deliverer for method, or nil if none is configured.
func (r *Registry) For(method models.DeliveryMethod) Deliverer {
	return r.byMethod[method]
}
