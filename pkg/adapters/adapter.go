// Package adapters fetches canonical events from upstream cargo-tracking
// sources (§4.1). Every adapter implements the same Fetch contract so the
// scheduler (pkg/scheduler) can poll any source without knowing its
// transport.
package adapters

import (
	"context"

	"github.com/airfreight/trackingd/pkg/models"
)

// Adapter fetches the canonical events a single upstream source currently
// has to offer for a shipment. Fetch must distinguish transient failures
// (network timeout, 5xx, rate limiting — see trackerrors.TransientUpstreamError)
// from permanent ones (auth rejected, malformed response — see
// trackerrors.PermanentUpstreamError) so the scheduler knows whether a
// retry next tick is worthwhile.
type Adapter interface {
	// SourceID identifies which row in the source priority table this
	// adapter reports events under.
	SourceID() string
	Fetch(ctx context.Context, shipment *models.Shipment) ([]*models.Event, error)
}

// Registry holds the fixed set of adapters the scheduler polls; All returns
// every one of them, with no per-shipment or per-source-type selection.
type Registry struct {
	adapters []Adapter
}

// NewRegistry constructs a Registry over a fixed set of adapters, kept in
// the order given. It does not sort them by source priority, and the
// scheduler fetches a shipment's adapters concurrently, so registration
// order does not decide which source's events are applied first.
func NewRegistry(adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// All returns every registered adapter.
func (r *Registry) All() []Adapter {
	return r.adapters
}
