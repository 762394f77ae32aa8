// Package groundhandler is a stub for the ground-handler system source
// (§4.1: not shipped in this release). See pkg/adapters/carrier for the
// same rationale.
package groundhandler

import (
	"context"

	"github.com/airfreight/trackingd/pkg/models"
)

const sourceID = "ground-handler"

// Adapter is the stub ground-handler adapter.
type Adapter struct{}

// New constructs the stub ground-handler adapter.
func New() *Adapter { return &Adapter{} }

// SourceID identifies this adapter's row in the source priority table.
func (a *Adapter) SourceID() string { return sourceID }

// Fetch is unimplemented by design; see package doc comment.
func (a *Adapter) Fetch(_ context.Context, _ *models.Shipment) ([]*models.Event, error) {
	return nil, nil
}
