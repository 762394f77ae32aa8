package manual

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/airfreight/trackingd/pkg/models"
)

func TestAdapter_SourceID(t *testing.T) {
	a := New()
	assert.Equal(t, SourceID, a.SourceID())
	assert.Equal(t, "manual-entry", SourceID)
}

// TestAdapter_Fetch_AlwaysEmpty verifies the manual source never surfaces
// events through the poll path — they arrive only via
// pkg/ingest.Pipeline.Apply from an operator-facing API call.
func TestAdapter_Fetch_AlwaysEmpty(t *testing.T) {
	a := New()
	events, err := a.Fetch(context.Background(), &models.Shipment{ShipmentID: "sh-1"})
	assert.NoError(t, err)
	assert.Nil(t, events)
}
