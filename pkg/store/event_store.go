package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/airfreight/trackingd/pkg/models"
	"github.com/airfreight/trackingd/pkg/trackerrors"
)

// EventStore appends to and queries the immutable event log (§4.3). Dedup
// decisions are made by pkg/ingest against candidates returned here, not by
// this package — the window-and-external-id comparison lives once, on
// models.Event.IsDuplicateOf.
type EventStore struct {
	db *sql.DB
}

// NewEventStore constructs an EventStore over an open connection pool.
func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

const eventColumns = `
	event_id, shipment_id, code, description, category,
	location_name, location_country, location_city, location_airport, location_lat, location_long,
	event_datetime, original_tz, is_milestone, is_exception, is_critical, severity,
	source_id, external_id, source_reference, temperature_celsius, humidity_percent,
	additional_info, customer_visible, processed, notification_sent, created_at`

func scanEvent(row interface{ Scan(...any) error }) (*models.Event, error) {
	var e models.Event
	var lat, long, temp, humidity sql.NullFloat64

	err := row.Scan(
		&e.EventID, &e.ShipmentID, &e.Code, &e.Description, &e.Category,
		&e.Location.Name, &e.Location.Country, &e.Location.City, &e.Location.AirportCode, &lat, &long,
		&e.EventDatetime, &e.OriginalTZ, &e.IsMilestone, &e.IsException, &e.IsCritical, &e.Severity,
		&e.Source.SourceID, &e.Source.ExternalID, &e.Source.Reference, &temp, &humidity,
		&e.AdditionalInfo, &e.CustomerVisible, &e.Processed, &e.NotificationSent, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lat.Valid {
		v := lat.Float64
		e.Location.Lat = &v
	}
	if long.Valid {
		v := long.Float64
		e.Location.Long = &v
	}
	if temp.Valid {
		v := temp.Float64
		e.Environmental.TemperatureCelsius = &v
	}
	if humidity.Valid {
		v := humidity.Float64
		e.Environmental.HumidityPercent = &v
	}
	return &e, nil
}

// FindCandidateDuplicates returns every event for shipmentID+code whose
// event_datetime falls within the ±300s dedup window of center, for the
// caller to compare with models.Event.IsDuplicateOf (§4.2 step 2).
func (s *EventStore) FindCandidateDuplicates(ctx context.Context, q execer, shipmentID, code string, center time.Time) ([]*models.Event, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE shipment_id = $1 AND code = $2
		  AND event_datetime BETWEEN $3 AND $4`,
		shipmentID, code, center.Add(-300*time.Second), center.Add(300*time.Second))
	if err != nil {
		return nil, trackerrors.NewStoreError("find candidate duplicates", err)
	}
	defer rows.Close()

	var out []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, trackerrors.NewStoreError("scan candidate duplicate", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Append persists a new event row inside the caller's transaction. The
// caller (pkg/ingest) is responsible for having already ruled out
// duplicates via FindCandidateDuplicates.
func (s *EventStore) Append(ctx context.Context, q execer, e *models.Event) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO events (
			event_id, shipment_id, code, description, category,
			location_name, location_country, location_city, location_airport, location_lat, location_long,
			event_datetime, original_tz, is_milestone, is_exception, is_critical, severity,
			source_id, external_id, source_reference, temperature_celsius, humidity_percent,
			additional_info, customer_visible, processed, notification_sent, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)`,
		e.EventID, e.ShipmentID, e.Code, e.Description, e.Category,
		e.Location.Name, e.Location.Country, e.Location.City, e.Location.AirportCode, e.Location.Lat, e.Location.Long,
		e.EventDatetime, e.OriginalTZ, e.IsMilestone, e.IsException, e.IsCritical, e.Severity,
		e.Source.SourceID, e.Source.ExternalID, e.Source.Reference, e.Environmental.TemperatureCelsius, e.Environmental.HumidityPercent,
		e.AdditionalInfo, e.CustomerVisible, e.Processed, e.NotificationSent, e.CreatedAt,
	)
	if err != nil {
		return trackerrors.NewStoreError("append event", err)
	}
	return nil
}

// GetByID looks up a single event, for the notification dispatcher
// rendering a queued job.
func (s *EventStore) GetByID(ctx context.Context, eventID string) (*models.Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE event_id = $1`, eventID)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, trackerrors.NewNotFoundError("event", eventID)
	}
	if err != nil {
		return nil, trackerrors.NewStoreError("get event", err)
	}
	return e, nil
}

// FindByExternalID looks up a previously persisted event by (source,
// external id), for checking upstream-side identifiers independent of the
// time-window dedup rule.
func (s *EventStore) FindByExternalID(ctx context.Context, sourceID, externalID string) (*models.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE source_id = $1 AND external_id = $2 ORDER BY created_at DESC LIMIT 1`,
		sourceID, externalID)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, trackerrors.NewNotFoundError("event", externalID)
	}
	if err != nil {
		return nil, trackerrors.NewStoreError("find event by external id", err)
	}
	return e, nil
}

// EventFilter narrows ListByShipment's result set (§6: GET .../events).
type EventFilter struct {
	Category   models.EventCategory // empty = any
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Offset     int
}

// ListByShipment returns events for a shipment ordered by (event_datetime,
// created_at) — the same ordering the derivation rule uses — along with the
// total matching count for pagination.
func (s *EventStore) ListByShipment(ctx context.Context, shipmentID string, f EventFilter) ([]*models.Event, int, error) {
	where := `shipment_id = $1`
	args := []any{shipmentID}
	idx := 2

	if f.Category != "" {
		where += " AND category = $" + strconv.Itoa(idx)
		args = append(args, f.Category)
		idx++
	}
	if f.DateFrom != nil {
		where += " AND event_datetime >= $" + strconv.Itoa(idx)
		args = append(args, *f.DateFrom)
		idx++
	}
	if f.DateTo != nil {
		where += " AND event_datetime <= $" + strconv.Itoa(idx)
		args = append(args, *f.DateTo)
		idx++
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM events WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, trackerrors.NewStoreError("count events", err)
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	args = append(args, limit, f.Offset)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE `+where+
			` ORDER BY event_datetime ASC, created_at ASC LIMIT $`+strconv.Itoa(idx)+` OFFSET $`+strconv.Itoa(idx+1),
		args...)
	if err != nil {
		return nil, 0, trackerrors.NewStoreError("list events by shipment", err)
	}
	defer rows.Close()

	var out []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, trackerrors.NewStoreError("scan event", err)
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// EventStats summarizes a shipment's event log for the statistics endpoint.
type EventStats struct {
	TotalEvents      int
	MilestoneEvents  int
	ExceptionEvents  int
	LastEventAt      *time.Time
}

// Stats aggregates simple counts for one shipment.
func (s *EventStore) Stats(ctx context.Context, shipmentID string) (EventStats, error) {
	var stats EventStats
	var lastEventAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE is_milestone),
		       count(*) FILTER (WHERE is_exception),
		       max(event_datetime)
		FROM events WHERE shipment_id = $1`, shipmentID,
	).Scan(&stats.TotalEvents, &stats.MilestoneEvents, &stats.ExceptionEvents, &lastEventAt)
	if err != nil {
		return EventStats{}, trackerrors.NewStoreError("event stats", err)
	}
	if lastEventAt.Valid {
		t := lastEventAt.Time
		stats.LastEventAt = &t
	}
	return stats, nil
}

// WindowStats aggregates event counts across every shipment within
// [from, to), for the admin statistics endpoint (§6: GET
// /tracking/statistics).
func (s *EventStore) WindowStats(ctx context.Context, from, to time.Time) (EventStats, error) {
	var stats EventStats
	var lastEventAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE is_milestone),
		       count(*) FILTER (WHERE is_exception),
		       max(event_datetime)
		FROM events WHERE event_datetime >= $1 AND event_datetime < $2`, from, to,
	).Scan(&stats.TotalEvents, &stats.MilestoneEvents, &stats.ExceptionEvents, &lastEventAt)
	if err != nil {
		return EventStats{}, trackerrors.NewStoreError("window event stats", err)
	}
	if lastEventAt.Valid {
		t := lastEventAt.Time
		stats.LastEventAt = &t
	}
	return stats, nil
}

// MarkNotificationSent flags an event as having had notifications fanned
// out, so the notification sweeper does not re-enqueue it.
func (s *EventStore) MarkNotificationSent(ctx context.Context, eventID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE events SET notification_sent = TRUE WHERE event_id = $1`, eventID)
	if err != nil {
		return trackerrors.NewStoreError("mark notification sent", err)
	}
	return nil
}
