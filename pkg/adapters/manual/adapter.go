// Package manual represents the MANUAL source (§3 Source): operator-entered
// events submitted directly through the API rather than polled. Its Fetch
// always returns no events — there is nothing upstream to poll — so the
// scheduler can still list it alongside every other adapter without a
// special case.
package manual

import (
	"context"

	"github.com/airfreight/trackingd/pkg/models"
)

// SourceID is the MANUAL source's row in the source priority table, also
// used by pkg/ingest.Pipeline.Apply to exempt manual submissions from the
// tracking_enabled eligibility check (§4.2 step 1) and by pkg/api when
// submitting an operator-entered event.
const SourceID = "manual-entry"

// Adapter is a no-poll placeholder satisfying adapters.Adapter so the
// manual source participates in the same registry as polled sources.
type Adapter struct{}

// New constructs the manual-entry adapter.
func New() *Adapter { return &Adapter{} }

// SourceID identifies this adapter's row in the source priority table.
func (a *Adapter) SourceID() string { return SourceID }

// Fetch always returns an empty, error-free result: manual events arrive
// through pkg/ingest.Pipeline.Apply directly from an operator-facing API
// call, never from a poll.
func (a *Adapter) Fetch(_ context.Context, _ *models.Shipment) ([]*models.Event, error) {
	return nil, nil
}
