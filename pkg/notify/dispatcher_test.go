package notify

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airfreight/trackingd/pkg/config"
	"github.com/airfreight/trackingd/pkg/store"
)

// TestDispatcher_Sweep_RecoversOrphans verifies §4.6's sweeper recovers an
// event whose post-commit emit step never created a job row at all (§8
// property 6). Dispatcher.sweep must query for orphans and enqueue a job
// for each one before falling back to the ordinary ListDue retry pass.
func TestDispatcher_Sweep_RecoversOrphans(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT e\.event_id, s\.subscription_id\s+FROM events e\s+JOIN subscriptions s`).
		WithArgs(500).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "subscription_id"}).
			AddRow("ev-orphan", "sub-1"))
	mock.ExpectExec(`(?s)INSERT INTO notification_jobs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`(?s)SELECT job_id, event_id, subscription_id.+FROM notification_jobs`).
		WillReturnRows(sqlmock.NewRows([]string{
			"job_id", "event_id", "subscription_id", "attempt_count", "status",
			"last_error", "next_attempt_at", "created_at", "completed_at",
		}))

	jobs := store.NewJobStore(db)
	d := New(jobs, store.NewEventStore(db), store.NewSubscriptionStore(db), store.NewShipmentStore(db),
		NewRegistry(nil), config.NotifyConfig{PerMethodParallel: 1, MaxAttempts: 3})

	d.sweep(context.Background())

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestDispatcher_Sweep_NoOrphansStillRunsListDue verifies the normal retry
// path still runs on a tick where no orphans are found.
func TestDispatcher_Sweep_NoOrphansStillRunsListDue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT e\.event_id, s\.subscription_id\s+FROM events e\s+JOIN subscriptions s`).
		WithArgs(500).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "subscription_id"}))
	mock.ExpectQuery(`(?s)SELECT job_id, event_id, subscription_id.+FROM notification_jobs`).
		WillReturnRows(sqlmock.NewRows([]string{
			"job_id", "event_id", "subscription_id", "attempt_count", "status",
			"last_error", "next_attempt_at", "created_at", "completed_at",
		}))

	jobs := store.NewJobStore(db)
	d := New(jobs, store.NewEventStore(db), store.NewSubscriptionStore(db), store.NewShipmentStore(db),
		NewRegistry(nil), config.NotifyConfig{PerMethodParallel: 1, MaxAttempts: 3, SweepInterval: time.Minute})

	d.sweep(context.Background())

	assert.NoError(t, mock.ExpectationsWereMet())
}
