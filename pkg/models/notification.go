package models

import "time"

// NotificationJobStatus is the lifecycle state of a queued delivery attempt.
type NotificationJobStatus string

// Canonical notification job statuses.
const (
	NotificationPending   NotificationJobStatus = "PENDING"
	NotificationDelivered NotificationJobStatus = "DELIVERED"
	NotificationFailed    NotificationJobStatus = "FAILED" // exhausted retries
)

// NotificationJob is one subscriber's pending-or-attempted delivery of a
// single event (§4.6). At-least-once: a job is only marked DELIVERED after
// a successful Deliver call.
type NotificationJob struct {
	JobID          string
	EventID        string
	SubscriptionID string

	AttemptCount  int
	Status        NotificationJobStatus
	LastError     string
	NextAttemptAt time.Time

	CreatedAt   time.Time
	CompletedAt *time.Time
}
