// Package carrier is a stub for the direct carrier-API source (§4.1: not
// shipped in this release). It participates in scheduling and priority
// ordering like any other source, but Fetch always returns an empty result
// and never fails, so wiring it in today costs nothing and swapping in a
// real implementation later requires no changes outside this package.
package carrier

import (
	"context"

	"github.com/airfreight/trackingd/pkg/models"
)

const sourceID = "carrier-api"

// Adapter is the stub carrier-API adapter.
type Adapter struct{}

// New constructs the stub carrier adapter.
func New() *Adapter { return &Adapter{} }

// SourceID identifies this adapter's row in the source priority table.
func (a *Adapter) SourceID() string { return sourceID }

// Fetch is unimplemented by design; see package doc comment.
func (a *Adapter) Fetch(_ context.Context, _ *models.Shipment) ([]*models.Event, error) {
	return nil, nil
}
