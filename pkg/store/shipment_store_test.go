package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airfreight/trackingd/pkg/models"
)

func shipmentColumnNames() []string {
	return []string{
		"shipment_id", "awb_number", "customer_id", "origin_airport", "destination_airport",
		"route_airports", "flight_number", "flight_date", "pieces", "weight_kg", "volume_m3",
		"commodity", "declared_value", "declared_currency", "current_status", "current_location",
		"pickup_date", "delivery_date", "estimated_delivery_date", "tracking_enabled",
		"tracking_frequency_minutes", "last_tracked_at", "created_at", "updated_at",
	}
}

// TestShipmentStore_ListDueForPoll_ExcludesQuiescent ports seed scenario S6
// and §8 property 4: the poll-selection query itself filters out
// DELIVERED/CANCELLED shipments at the database level, so the scheduler
// never sees (and therefore never selects) a quiescent shipment no matter
// how long it has gone unpolled.
func TestShipmentStore_ListDueForPoll_ExcludesQuiescent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`(?s)SELECT .+ FROM shipments\s+WHERE tracking_enabled = TRUE\s+AND current_status NOT IN \('DELIVERED', 'CANCELLED'\)`).
		WithArgs(now, 50).
		WillReturnRows(sqlmock.NewRows(shipmentColumnNames()))

	s := NewShipmentStore(db)
	due, err := s.ListDueForPoll(context.Background(), now, time.Minute, 50)

	require.NoError(t, err)
	assert.Empty(t, due, "a DELIVERED/CANCELLED shipment must never be returned by the poll-selection query")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShipmentStore_ListDueForPoll_ReturnsEligible(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`(?s)SELECT .+ FROM shipments\s+WHERE tracking_enabled = TRUE`).
		WithArgs(now, 50).
		WillReturnRows(sqlmock.NewRows(shipmentColumnNames()).AddRow(
			"sh-1", "125-12345678", "c-1", "SIN", "HKG",
			"", "", nil, 2, 10.5, nil,
			"", 0.0, "", models.StatusInTransit, "",
			nil, nil, nil, true,
			60, nil, now, now,
		))

	s := NewShipmentStore(db)
	due, err := s.ListDueForPoll(context.Background(), now, time.Minute, 50)

	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "sh-1", due[0].ShipmentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestShipment_Quiescent_DueForPoll verifies models.Shipment.DueForPoll
// (§4.4; the scheduler itself selects through ListDueForPoll) agrees with
// the store-level ListDueForPoll filter: a DELIVERED shipment is never due,
// regardless of how stale last_tracked_at is.
func TestShipment_Quiescent_DueForPoll(t *testing.T) {
	tenIntervalsAgo := time.Now().UTC().Add(-10 * time.Hour)
	sh := &models.Shipment{
		CurrentStatus:            models.StatusDelivered,
		TrackingEnabled:          true,
		TrackingFrequencyMinutes: 60,
		LastTrackedAt:            &tenIntervalsAgo,
	}

	assert.False(t, sh.DueForPoll(time.Now().UTC()))
}
