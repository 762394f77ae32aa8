package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/airfreight/trackingd/pkg/models"
	"github.com/airfreight/trackingd/pkg/trackerrors"
)

// ShipmentStore persists the Shipment aggregate (§4.3). It never calls
// adapters or the hub — callers (pkg/ingest, pkg/scheduler) own that
// wiring, keeping this package a pure data-access layer.
type ShipmentStore struct {
	db *sql.DB
}

// NewShipmentStore constructs a ShipmentStore over an open connection pool.
func NewShipmentStore(db *sql.DB) *ShipmentStore {
	return &ShipmentStore{db: db}
}

// BeginTx starts a transaction for callers (pkg/ingest) that must update a
// shipment's derived fields and append an event atomically.
func (s *ShipmentStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

const shipmentColumns = `
	shipment_id, awb_number, customer_id, origin_airport, destination_airport,
	route_airports, flight_number, flight_date, pieces, weight_kg, volume_m3,
	commodity, declared_value, declared_currency, current_status, current_location,
	pickup_date, delivery_date, estimated_delivery_date, tracking_enabled,
	tracking_frequency_minutes, last_tracked_at, created_at, updated_at`

func scanShipment(row interface{ Scan(...any) error }) (*models.Shipment, error) {
	var sh models.Shipment
	var route string
	var volumeM3 sql.NullFloat64
	var flightDate, pickupDate, deliveryDate, estDeliveryDate, lastTrackedAt sql.NullTime

	err := row.Scan(
		&sh.ShipmentID, &sh.AWBNumber, &sh.CustomerID, &sh.OriginAirport, &sh.DestinationAirport,
		&route, &sh.Flight.Number, &flightDate, &sh.Cargo.Pieces, &sh.Cargo.WeightKg, &volumeM3,
		&sh.Commodity, &sh.DeclaredValue, &sh.DeclaredCurrency, &sh.CurrentStatus, &sh.CurrentLocation,
		&pickupDate, &deliveryDate, &estDeliveryDate, &sh.TrackingEnabled,
		&sh.TrackingFrequencyMinutes, &lastTrackedAt, &sh.CreatedAt, &sh.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if route != "" {
		sh.RouteAirports = strings.Split(route, ",")
	}
	if volumeM3.Valid {
		v := volumeM3.Float64
		sh.Cargo.VolumeM3 = &v
	}
	if flightDate.Valid {
		sh.Flight.Date = flightDate.Time
	}
	if pickupDate.Valid {
		t := pickupDate.Time
		sh.PickupDate = &t
	}
	if deliveryDate.Valid {
		t := deliveryDate.Time
		sh.DeliveryDate = &t
	}
	if estDeliveryDate.Valid {
		t := estDeliveryDate.Time
		sh.EstimatedDeliveryDate = &t
	}
	if lastTrackedAt.Valid {
		t := lastTrackedAt.Time
		sh.LastTrackedAt = &t
	}
	return &sh, nil
}

// GetByID looks up a shipment by its opaque id.
func (s *ShipmentStore) GetByID(ctx context.Context, shipmentID string) (*models.Shipment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE shipment_id = $1`, shipmentID)
	sh, err := scanShipment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, trackerrors.NewNotFoundError("shipment", shipmentID)
	}
	if err != nil {
		return nil, trackerrors.NewStoreError("get shipment by id", err)
	}
	return sh, nil
}

// GetByAWB looks up a shipment by its unique air waybill number.
func (s *ShipmentStore) GetByAWB(ctx context.Context, awb string) (*models.Shipment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE awb_number = $1`, awb)
	sh, err := scanShipment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, trackerrors.NewNotFoundError("shipment", awb)
	}
	if err != nil {
		return nil, trackerrors.NewStoreError("get shipment by awb", err)
	}
	return sh, nil
}

// ResolveAWB implements pkg/hub.ShipmentLookup, so the hub can resolve a
// client's subscribe_shipment{awb_number} message without importing the
// store package's full surface.
func (s *ShipmentStore) ResolveAWB(ctx context.Context, awb string) (string, error) {
	sh, err := s.GetByAWB(ctx, awb)
	if err != nil {
		return "", err
	}
	return sh.ShipmentID, nil
}

// Create inserts a new shipment. AWB uniqueness is enforced by the database
// constraint; a conflict surfaces as a ValidationError.
func (s *ShipmentStore) Create(ctx context.Context, sh *models.Shipment) error {
	var volumeM3 any
	if sh.Cargo.VolumeM3 != nil {
		volumeM3 = *sh.Cargo.VolumeM3
	}
	var flightDate any
	if !sh.Flight.Date.IsZero() {
		flightDate = sh.Flight.Date
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shipments (
			shipment_id, awb_number, customer_id, origin_airport, destination_airport,
			route_airports, flight_number, flight_date, pieces, weight_kg, volume_m3,
			commodity, declared_value, declared_currency, current_status, current_location,
			tracking_enabled, tracking_frequency_minutes, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$19)`,
		sh.ShipmentID, sh.AWBNumber, sh.CustomerID, sh.OriginAirport, sh.DestinationAirport,
		strings.Join(sh.RouteAirports, ","), sh.Flight.Number, flightDate, sh.Cargo.Pieces, sh.Cargo.WeightKg, volumeM3,
		sh.Commodity, sh.DeclaredValue, sh.DeclaredCurrency, sh.CurrentStatus, sh.CurrentLocation,
		sh.TrackingEnabled, sh.TrackingFrequencyMinutes, sh.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return trackerrors.NewValidationError("awb_number", "a shipment with this AWB number already exists")
		}
		return trackerrors.NewStoreError("create shipment", err)
	}
	return nil
}

// ListDueForPoll returns up to limit shipments selected by the §4.4 poll
// predicate, ordered so the longest-unpolled shipments are favored when the
// batch is smaller than the eligible set.
func (s *ShipmentStore) ListDueForPoll(ctx context.Context, now time.Time, freqFloor time.Duration, limit int) ([]*models.Shipment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+shipmentColumns+`
		FROM shipments
		WHERE tracking_enabled = TRUE
		  AND current_status NOT IN ('DELIVERED', 'CANCELLED')
		  AND (
		        last_tracked_at IS NULL
		        OR last_tracked_at <= $1 - (GREATEST(tracking_frequency_minutes, 1) || ' minutes')::interval
		      )
		ORDER BY last_tracked_at ASC NULLS FIRST
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, trackerrors.NewStoreError("list due for poll", err)
	}
	defer rows.Close()

	var out []*models.Shipment
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, trackerrors.NewStoreError("scan due-for-poll shipment", err)
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

// ListByCustomer returns a customer's shipments ordered newest-first, along
// with the total matching count, for the paginated history endpoint (§6:
// GET /tracking/customer/{id}/history).
func (s *ShipmentStore) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*models.Shipment, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM shipments WHERE customer_id = $1`, customerID).Scan(&total); err != nil {
		return nil, 0, trackerrors.NewStoreError("count customer shipments", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+shipmentColumns+`
		FROM shipments
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, customerID, limit, offset)
	if err != nil {
		return nil, 0, trackerrors.NewStoreError("list customer shipments", err)
	}
	defer rows.Close()

	var out []*models.Shipment
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, 0, trackerrors.NewStoreError("scan customer shipment", err)
		}
		out = append(out, sh)
	}
	return out, total, rows.Err()
}

// MarkTracked sets last_tracked_at to tick, regardless of whether the poll
// that triggered it succeeded (§4.4: the scheduler is the sole mutator).
func (s *ShipmentStore) MarkTracked(ctx context.Context, shipmentID string, tick time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE shipments SET last_tracked_at = $1 WHERE shipment_id = $2`, tick, shipmentID)
	if err != nil {
		return trackerrors.NewStoreError("mark shipment tracked", err)
	}
	return nil
}

// UpdateDerived applies the ingestion pipeline's derived-field recomputation
// (§4.4) inside the caller's transaction. location may be empty to mean "no
// change"; deliveryDate is nil unless the winning event maps to DELIVERED.
func (s *ShipmentStore) UpdateDerived(ctx context.Context, q execer, shipmentID string, status models.ShipmentStatus, location string, deliveryDate *time.Time) error {
	_, err := q.ExecContext(ctx, `
		UPDATE shipments
		SET current_status = $1,
		    current_location = COALESCE(NULLIF($2, ''), current_location),
		    delivery_date = COALESCE($3, delivery_date),
		    updated_at = now()
		WHERE shipment_id = $4`,
		status, location, deliveryDate, shipmentID)
	if err != nil {
		return trackerrors.NewStoreError("update derived shipment state", err)
	}
	return nil
}

// SetCancelled marks a shipment CANCELLED — only ever invoked from an admin
// action, never from the ingestion pipeline (§4.4 invariant).
func (s *ShipmentStore) SetCancelled(ctx context.Context, shipmentID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE shipments SET current_status = $1, updated_at = now() WHERE shipment_id = $2`,
		models.StatusCancelled, shipmentID)
	if err != nil {
		return trackerrors.NewStoreError("cancel shipment", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return trackerrors.NewNotFoundError("shipment", shipmentID)
	}
	return nil
}

// CountByStatus returns the number of shipments currently in each status,
// for the admin statistics endpoint (§6: GET /tracking/statistics).
func (s *ShipmentStore) CountByStatus(ctx context.Context) (map[models.ShipmentStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT current_status, count(*) FROM shipments GROUP BY current_status`)
	if err != nil {
		return nil, trackerrors.NewStoreError("count shipments by status", err)
	}
	defer rows.Close()

	out := make(map[models.ShipmentStatus]int)
	for rows.Next() {
		var status models.ShipmentStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, trackerrors.NewStoreError("scan shipment status count", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "unique") || strings.Contains(err.Error(), "duplicate key")
}
