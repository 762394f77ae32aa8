package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airfreight/trackingd/pkg/adapters"
	"github.com/airfreight/trackingd/pkg/config"
	"github.com/airfreight/trackingd/pkg/ingest"
	"github.com/airfreight/trackingd/pkg/models"
	"github.com/airfreight/trackingd/pkg/store"
)

// fakeAdapter records how many times it was asked to Fetch, so tests can
// assert the scheduler never even considers a shipment it shouldn't poll.
type fakeAdapter struct {
	id       string
	fetches  int32
	toReturn []*models.Event
}

func (a *fakeAdapter) SourceID() string { return a.id }

func (a *fakeAdapter) Fetch(_ context.Context, _ *models.Shipment) ([]*models.Event, error) {
	atomic.AddInt32(&a.fetches, 1)
	return a.toReturn, nil
}

func shipmentColumns() []string {
	return []string{
		"shipment_id", "awb_number", "customer_id", "origin_airport", "destination_airport",
		"route_airports", "flight_number", "flight_date", "pieces", "weight_kg", "volume_m3",
		"commodity", "declared_value", "declared_currency", "current_status", "current_location",
		"pickup_date", "delivery_date", "estimated_delivery_date", "tracking_enabled",
		"tracking_frequency_minutes", "last_tracked_at", "created_at", "updated_at",
	}
}

// TestScheduler_RunOnce_NeverPollsQuiescentShipment exercises §8 property 4
// end to end at the scheduler boundary: since ListDueForPoll (pkg/store)
// already excludes DELIVERED/CANCELLED shipments at the SQL level, a tick
// that finds none due must never invoke any adapter's Fetch and must never
// touch last_tracked_at.
func TestScheduler_RunOnce_NeverPollsQuiescentShipment(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT .+ FROM shipments\s+WHERE tracking_enabled = TRUE`).
		WillReturnRows(sqlmock.NewRows(shipmentColumns()))

	shipments := store.NewShipmentStore(db)
	fake := &fakeAdapter{id: "industry-feed"}
	registry := adapters.NewRegistry(fake)
	pipeline := ingest.New(shipments, store.NewEventStore(db), store.NewSubscriptionStore(db), store.NewJobStore(db), nil, nil)

	s := New(shipments, registry, pipeline, config.SchedulerConfig{BatchSize: 50, PerSourceParallel: 4, FetchTimeout: time.Second})

	health := s.RunOnce(context.Background())

	assert.Equal(t, 0, health.LastTickCount)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fake.fetches), "scheduler must never fetch for a shipment ListDueForPoll did not return")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestScheduler_RunOnce_PollsEligibleShipment verifies the positive case:
// a non-quiescent, due shipment is fetched from every registered adapter
// and its last_tracked_at is updated regardless of fetch outcome.
func TestScheduler_RunOnce_PollsEligibleShipment(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`(?s)SELECT .+ FROM shipments\s+WHERE tracking_enabled = TRUE`).
		WillReturnRows(sqlmock.NewRows(shipmentColumns()).AddRow(
			"sh-1", "125-12345678", "c-1", "SIN", "HKG",
			"", "", nil, 2, 10.5, nil,
			"", 0.0, "", models.StatusInTransit, "",
			nil, nil, nil, true,
			60, nil, now, now,
		))
	mock.ExpectExec(`(?s)UPDATE shipments SET last_tracked_at`).WillReturnResult(sqlmock.NewResult(0, 1))

	shipments := store.NewShipmentStore(db)
	fake := &fakeAdapter{id: "industry-feed"}
	registry := adapters.NewRegistry(fake)
	pipeline := ingest.New(shipments, store.NewEventStore(db), store.NewSubscriptionStore(db), store.NewJobStore(db), nil, nil)

	s := New(shipments, registry, pipeline, config.SchedulerConfig{BatchSize: 50, PerSourceParallel: 4, FetchTimeout: time.Second})

	health := s.RunOnce(context.Background())

	assert.Equal(t, 1, health.LastTickCount)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.fetches))
	assert.NoError(t, mock.ExpectationsWereMet())
}
