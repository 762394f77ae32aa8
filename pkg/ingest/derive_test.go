package ingest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airfreight/trackingd/pkg/models"
)

// TestDeriveFromLog_PicksLatestMappedEvent verifies §4.4's derivation rule:
// the winning row is the one with the greatest event_datetime among events
// whose code maps to a non-empty status, regardless of insertion order —
// the property that makes out-of-order Apply (§8 property 3) produce the
// same terminal state as an in-order sequence (§8 property 2).
func TestDeriveFromLog_PicksLatestMappedEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	deliveredAt := time.Date(2025, 8, 7, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)SELECT m\.mapped_status.+FROM events e`).
		WillReturnRows(sqlmock.NewRows([]string{"mapped_status", "location_name", "event_datetime"}).
			AddRow(models.StatusDelivered, "HKG", deliveredAt))

	derived, err := deriveFromLog(context.Background(), db, "sh-1")

	require.NoError(t, err)
	assert.True(t, derived.changed)
	assert.Equal(t, models.StatusDelivered, derived.Status)
	assert.Equal(t, "HKG", derived.Location)
	require.NotNil(t, derived.DeliveryDate)
	assert.Equal(t, deliveredAt, *derived.DeliveryDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestDeriveFromLog_NoMappedEvent verifies a shipment with no milestone-
// mapped event yet (e.g. only LOCATION_UPDATE rows) is left unchanged
// rather than reset to some default.
func TestDeriveFromLog_NoMappedEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT m\.mapped_status.+FROM events e`).
		WillReturnError(sql.ErrNoRows)

	derived, err := deriveFromLog(context.Background(), db, "sh-1")

	require.NoError(t, err)
	assert.False(t, derived.changed)
	assert.Nil(t, derived.DeliveryDate)
}

// TestDeriveFromLog_OnlyDeliveredSetsDeliveryDate verifies delivery_date is
// populated exclusively when the winning event maps to DELIVERED.
func TestDeriveFromLog_OnlyDeliveredSetsDeliveryDate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	arrivedAt := time.Date(2025, 8, 6, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)SELECT m\.mapped_status.+FROM events e`).
		WillReturnRows(sqlmock.NewRows([]string{"mapped_status", "location_name", "event_datetime"}).
			AddRow(models.StatusArrived, "HKG", arrivedAt))

	derived, err := deriveFromLog(context.Background(), db, "sh-1")

	require.NoError(t, err)
	assert.True(t, derived.changed)
	assert.Equal(t, models.StatusArrived, derived.Status)
	assert.Nil(t, derived.DeliveryDate)
}
