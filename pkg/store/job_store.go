package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/airfreight/trackingd/pkg/models"
	"github.com/airfreight/trackingd/pkg/trackerrors"
)

// JobStore persists NotificationJob rows (§4.6). Jobs are created by the
// ingestion pipeline's post-commit step and consumed by pkg/notify's
// dispatcher and sweeper.
type JobStore struct {
	db *sql.DB
}

// NewJobStore constructs a JobStore over an open connection pool.
func NewJobStore(db *sql.DB) *JobStore {
	return &JobStore{db: db}
}

// Enqueue creates one pending job for one (event, subscription) pair. Uses
// ON CONFLICT DO NOTHING against the (event_id, subscription_id) unique
// constraint so re-running the post-commit emit after a crash is safe.
func (j *JobStore) Enqueue(ctx context.Context, q execer, eventID, subscriptionID string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO notification_jobs (job_id, event_id, subscription_id, attempt_count, status, next_attempt_at, created_at)
		VALUES ($1,$2,$3,0,$4,now(),now())
		ON CONFLICT (event_id, subscription_id) DO NOTHING`,
		uuid.NewString(), eventID, subscriptionID, models.NotificationPending)
	if err != nil {
		return trackerrors.NewStoreError("enqueue notification job", err)
	}
	return nil
}

// EnqueueDB is Enqueue run directly against the pool rather than a caller's
// transaction — used by the ingestion pipeline's post-commit emit step,
// which runs intentionally outside the Apply transaction (§4.2 step 5).
func (j *JobStore) EnqueueDB(ctx context.Context, eventID, subscriptionID string) error {
	return j.Enqueue(ctx, j.db, eventID, subscriptionID)
}

// OrphanedNotification identifies an event/subscription pair that matches
// for notification but has no notification_jobs row at all.
type OrphanedNotification struct {
	EventID        string
	SubscriptionID string
}

// ListOrphanedEvents finds events flagged notification_sent=false with an
// active, matching subscription that has no corresponding notification_jobs
// row — the case ListDue cannot see, because ListDue only re-attempts jobs
// that already exist. This recovers an event whose post-commit emit step
// (pkg/ingest.Pipeline.emit) never ran or failed before EnqueueDB — e.g. a
// process crash between Apply's commit and emit, or a ListActiveForShipment
// error — which would otherwise drop the notification permanently (§4.6).
func (j *JobStore) ListOrphanedEvents(ctx context.Context, limit int) ([]OrphanedNotification, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT e.event_id, s.subscription_id
		FROM events e
		JOIN subscriptions s ON s.shipment_id = e.shipment_id
		WHERE e.notification_sent = FALSE
		  AND s.active = TRUE
		  AND (
		        s.filter_all_events
		     OR (s.filter_milestone AND e.is_milestone)
		     OR (s.filter_exception AND e.is_exception)
		     OR (s.filter_location AND e.category = 'LOCATION_UPDATE')
		  )
		  AND NOT EXISTS (
		        SELECT 1 FROM notification_jobs j
		        WHERE j.event_id = e.event_id AND j.subscription_id = s.subscription_id
		  )
		LIMIT $1`, limit)
	if err != nil {
		return nil, trackerrors.NewStoreError("list orphaned notification events", err)
	}
	defer rows.Close()

	var out []OrphanedNotification
	for rows.Next() {
		var o OrphanedNotification
		if err := rows.Scan(&o.EventID, &o.SubscriptionID); err != nil {
			return nil, trackerrors.NewStoreError("scan orphaned notification event", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListDue returns pending jobs whose next_attempt_at has arrived, bounded
// by limit. Only notification_jobs rows are read; the dispatcher loads each
// job's event and subscription separately.
func (j *JobStore) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.NotificationJob, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT job_id, event_id, subscription_id, attempt_count, status, last_error, next_attempt_at, created_at, completed_at
		FROM notification_jobs
		WHERE status = $1 AND next_attempt_at <= $2
		ORDER BY next_attempt_at ASC
		LIMIT $3`, models.NotificationPending, now, limit)
	if err != nil {
		return nil, trackerrors.NewStoreError("list due notification jobs", err)
	}
	defer rows.Close()

	var out []*models.NotificationJob
	for rows.Next() {
		var job models.NotificationJob
		var lastError sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&job.JobID, &job.EventID, &job.SubscriptionID, &job.AttemptCount, &job.Status,
			&lastError, &job.NextAttemptAt, &job.CreatedAt, &completedAt); err != nil {
			return nil, trackerrors.NewStoreError("scan notification job", err)
		}
		job.LastError = lastError.String
		if completedAt.Valid {
			t := completedAt.Time
			job.CompletedAt = &t
		}
		out = append(out, &job)
	}
	return out, rows.Err()
}

// RecordAttempt updates a job after a delivery attempt: success marks it
// DELIVERED; transient failure reschedules at nextAttempt (unless attempts
// are exhausted, at which point it becomes FAILED); permanent failure marks
// it FAILED immediately.
func (j *JobStore) RecordAttempt(ctx context.Context, jobID string, attemptCount int, status models.NotificationJobStatus, lastErr string, nextAttempt time.Time) error {
	var completedAt any
	if status == models.NotificationDelivered || status == models.NotificationFailed {
		completedAt = time.Now().UTC()
	}
	_, err := j.db.ExecContext(ctx, `
		UPDATE notification_jobs
		SET attempt_count = $1, status = $2, last_error = $3, next_attempt_at = $4, completed_at = $5
		WHERE job_id = $6`,
		attemptCount, status, lastErr, nextAttempt, completedAt, jobID)
	if err != nil {
		return trackerrors.NewStoreError("record notification attempt", err)
	}
	return nil
}
