package ingest

import (
	"context"
	"database/sql"
	"time"

	"github.com/airfreight/trackingd/pkg/models"
	"github.com/airfreight/trackingd/pkg/trackerrors"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// derivedState is the outcome of re-deriving a shipment's current_status,
// current_location, and delivery_date from its event log (§4.4).
type derivedState struct {
	Status       models.ShipmentStatus
	Location     string
	DeliveryDate *time.Time
	changed      bool
}

// deriveFromLog recomputes derived state inside the caller's transaction by
// finding the event with the greatest (event_datetime, created_at) among
// those whose milestone code maps to a non-empty status — the single
// source of truth for current_status (§4.4). Ties on event_datetime break
// toward the higher-precedence (lower priority number) source.
func deriveFromLog(ctx context.Context, q execer, shipmentID string) (derivedState, error) {
	var status models.ShipmentStatus
	var location string
	var eventDatetime time.Time

	row := q.QueryRowContext(ctx, `
		SELECT m.mapped_status, e.location_name, e.event_datetime
		FROM events e
		JOIN milestones m ON m.code = e.code
		JOIN sources s ON s.source_id = e.source_id
		WHERE e.shipment_id = $1 AND m.mapped_status <> ''
		ORDER BY e.event_datetime DESC, s.priority ASC, e.created_at DESC
		LIMIT 1`, shipmentID)

	if err := row.Scan(&status, &location, &eventDatetime); err != nil {
		if err == sql.ErrNoRows {
			// No event has mapped to a status yet — current_status stays
			// whatever it was at shipment creation (CREATED).
			return derivedState{}, nil
		}
		return derivedState{}, trackerrors.NewStoreError("derive shipment state", err)
	}

	st := derivedState{Status: status, Location: location, changed: true}
	if status == models.StatusDelivered {
		t := eventDatetime
		st.DeliveryDate = &t
	}
	return st, nil
}
