// Package customs is a stub for the customs-authority source (§4.1: not
// shipped in this release). See pkg/adapters/carrier for the same rationale.
package customs

import (
	"context"

	"github.com/airfreight/trackingd/pkg/models"
)

const sourceID = "customs-authority"

// Adapter is the stub customs adapter.
type Adapter struct{}

// New constructs the stub customs adapter.
func New() *Adapter { return &Adapter{} }

// SourceID identifies this adapter's row in the source priority table.
func (a *Adapter) SourceID() string { return sourceID }

// Fetch is unimplemented by design; see package doc comment.
func (a *Adapter) Fetch(_ context.Context, _ *models.Shipment) ([]*models.Event, error) {
	return nil, nil
}
