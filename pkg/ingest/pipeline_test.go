package ingest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airfreight/trackingd/pkg/adapters/manual"
	"github.com/airfreight/trackingd/pkg/models"
	"github.com/airfreight/trackingd/pkg/store"
	"github.com/airfreight/trackingd/pkg/trackerrors"
)

const testSourceID = "industry-feed"

func newTestPipeline(t *testing.T) (*Pipeline, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	p := New(
		store.NewShipmentStore(db),
		store.NewEventStore(db),
		store.NewSubscriptionStore(db),
		store.NewJobStore(db),
		nil, // catalog: tests set event.IsMilestone/IsCritical directly
		nil, // cache: fail-open, nil-safe
	)
	return p, mock, db
}

func shipmentRow(shipmentID, awb, customerID string, status models.ShipmentStatus, trackingEnabled bool) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"shipment_id", "awb_number", "customer_id", "origin_airport", "destination_airport",
		"route_airports", "flight_number", "flight_date", "pieces", "weight_kg", "volume_m3",
		"commodity", "declared_value", "declared_currency", "current_status", "current_location",
		"pickup_date", "delivery_date", "estimated_delivery_date", "tracking_enabled",
		"tracking_frequency_minutes", "last_tracked_at", "created_at", "updated_at",
	}).AddRow(
		shipmentID, awb, customerID, "SIN", "HKG",
		"", "", nil, 2, 10.5, nil,
		"", 0.0, "", status, "",
		nil, nil, nil, trackingEnabled,
		60, nil, now, now,
	)
}

func expectGetShipment(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery(`(?s)SELECT .+ FROM shipments WHERE shipment_id = \$1`).WillReturnRows(rows)
}

// expectSuccessfulApply wires the full happy-path sequence (steps 2-5 of
// §4.2) for one Apply call that is expected to commit and create an event,
// with no active subscriptions to fan out to.
func expectSuccessfulApply(mock sqlmock.Sqlmock, derivedStatus models.ShipmentStatus, derivedLocation string, eventDatetime time.Time) {
	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)SELECT .+ FROM events WHERE shipment_id = \$1 AND code = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{
			"event_id", "shipment_id", "code", "description", "category",
			"location_name", "location_country", "location_city", "location_airport", "location_lat", "location_long",
			"event_datetime", "original_tz", "is_milestone", "is_exception", "is_critical", "severity",
			"source_id", "external_id", "source_reference", "temperature_celsius", "humidity_percent",
			"additional_info", "customer_visible", "processed", "notification_sent", "created_at",
		}))
	mock.ExpectExec(`(?s)INSERT INTO events`).WillReturnResult(sqlmock.NewResult(1, 1))
	// notifyCommitted fires one pg_notify for the shipment topic, a second
	// for the critical_update topic (every test event here is a milestone),
	// and a third for the customer topic (every test shipment has a
	// customer id) — three calls, not one.
	for i := 0; i < 3; i++ {
		mock.ExpectExec(`SELECT pg_notify`).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectQuery(`(?s)SELECT m\.mapped_status.+FROM events e`).
		WillReturnRows(sqlmock.NewRows([]string{"mapped_status", "location_name", "event_datetime"}).
			AddRow(derivedStatus, derivedLocation, eventDatetime))
	mock.ExpectExec(`(?s)UPDATE shipments\s+SET current_status`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`(?s)SELECT subscription_id.+FROM subscriptions WHERE shipment_id = \$1 AND active = TRUE`).
		WillReturnRows(sqlmock.NewRows([]string{
			"subscription_id", "shipment_id", "subscriber_id", "method", "endpoint",
			"filter_milestone", "filter_exception", "filter_location", "filter_all_events", "active", "created_at",
		}))
}

func newEvent(code string, at time.Time, milestone bool) *models.Event {
	return &models.Event{
		Code:          code,
		Category:      models.CategoryMilestone,
		EventDatetime: at,
		IsMilestone:   milestone,
	}
}

// TestApply_S1_CreateApplyDerive ports seed scenario S1 (spec §8): applying
// a milestone event against a freshly created shipment derives the mapped
// status and location within the same transaction.
func TestApply_S1_CreateApplyDerive(t *testing.T) {
	p, mock, _ := newTestPipeline(t)
	eventAt := time.Date(2025, 8, 5, 10, 0, 0, 0, time.UTC)

	expectGetShipment(mock, shipmentRow("sh-1", "125-12345678", "c-1", models.StatusCreated, true))
	expectSuccessfulApply(mock, models.StatusBooked, "SIN", eventAt)

	event := newEvent("CARGO_COLLECTED", eventAt, true)
	event.Location.Name = "SIN"

	outcome, err := p.Apply(context.Background(), "sh-1", event, testSourceID)

	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestApply_S2_DedupWithinWindow ports seed scenario S2: a repeat of the
// same code within the ±300s window, with no external id, is discarded as
// a duplicate and never reaches persistence (§8 property 1).
func TestApply_S2_DedupWithinWindow(t *testing.T) {
	p, mock, _ := newTestPipeline(t)
	first := time.Date(2025, 8, 5, 10, 0, 0, 0, time.UTC)
	repeat := first.Add(4*time.Minute + 59*time.Second)

	expectGetShipment(mock, shipmentRow("sh-1", "125-12345678", "c-1", models.StatusBooked, true))
	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)SELECT .+ FROM events WHERE shipment_id = \$1 AND code = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{
			"event_id", "shipment_id", "code", "description", "category",
			"location_name", "location_country", "location_city", "location_airport", "location_lat", "location_long",
			"event_datetime", "original_tz", "is_milestone", "is_exception", "is_critical", "severity",
			"source_id", "external_id", "source_reference", "temperature_celsius", "humidity_percent",
			"additional_info", "customer_visible", "processed", "notification_sent", "created_at",
		}).AddRow(
			"ev-1", "sh-1", "CARGO_COLLECTED", "", models.CategoryMilestone,
			"SIN", "", "", "", nil, nil,
			first, "", true, false, false, models.SeverityInfo,
			testSourceID, "", "", nil, nil,
			nil, true, true, false, first,
		))
	mock.ExpectRollback()

	event := newEvent("CARGO_COLLECTED", repeat, true)
	outcome, err := p.Apply(context.Background(), "sh-1", event, testSourceID)

	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.True(t, trackerrors.IsDuplicateError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestApply_S3_OutOfOrderAfterQuiescence ports seed scenario S3: once a
// shipment is DELIVERED (quiescent per models.ShipmentStatus.Quiescent),
// Apply must still accept a later-submitted but chronologically earlier
// event. Quiescence gates only the poll scheduler's selection (§4.4); it is
// not a §4.2 step-1 eligibility check on Apply itself (§8 property 3).
func TestApply_S3_OutOfOrderAfterQuiescence(t *testing.T) {
	p, mock, _ := newTestPipeline(t)
	departedAt := time.Date(2025, 8, 5, 14, 0, 0, 0, time.UTC)

	expectGetShipment(mock, shipmentRow("sh-1", "125-12345678", "c-1", models.StatusDelivered, true))
	expectSuccessfulApply(mock, models.StatusDelivered, "HKG", time.Date(2025, 8, 7, 12, 0, 0, 0, time.UTC))

	event := newEvent("FLIGHT_DEPARTED", departedAt, true)
	outcome, err := p.Apply(context.Background(), "sh-1", event, testSourceID)

	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome, "an out-of-order event must still be accepted against a quiescent shipment")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestApply_TrackingDisabled_RejectsExternalSource verifies the
// tracking_enabled=false rejection applies to external-source applies,
// short-circuiting before any transaction is opened.
func TestApply_TrackingDisabled_RejectsExternalSource(t *testing.T) {
	p, mock, _ := newTestPipeline(t)
	expectGetShipment(mock, shipmentRow("sh-1", "125-12345678", "c-1", models.StatusBooked, false))

	outcome, err := p.Apply(context.Background(), "sh-1", newEvent("FLIGHT_DEPARTED", time.Now(), false), testSourceID)

	assert.Equal(t, OutcomeRejected, outcome)
	assert.ErrorIs(t, err, trackerrors.ErrDisabled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestApply_TrackingDisabled_AllowsManualSource verifies §4.2 step 1's
// carve-out: a manual operator submission is allowed regardless of
// tracking_enabled, unlike any external-source apply.
func TestApply_TrackingDisabled_AllowsManualSource(t *testing.T) {
	p, mock, _ := newTestPipeline(t)
	expectGetShipment(mock, shipmentRow("sh-1", "125-12345678", "c-1", models.StatusBooked, false))
	expectSuccessfulApply(mock, models.StatusArrived, "HKG", time.Now())

	outcome, err := p.Apply(context.Background(), "sh-1", newEvent("FLIGHT_ARRIVED", time.Now(), true), manual.SourceID)

	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}
