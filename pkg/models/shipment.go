// Package models declares the canonical entities of the tracking backbone:
// shipments, events, the milestone and source reference catalogs, and
// subscriptions. Fields are declared once per entity; optional attributes
// are represented by pointer types rather than absent map keys.
package models

import "time"

// ShipmentStatus is the current lifecycle state of a shipment, derived
// exclusively from the applied event stream (see pkg/ingest/derive.go).
type ShipmentStatus string

// Canonical shipment statuses.
const (
	StatusCreated           ShipmentStatus = "CREATED"
	StatusBooked            ShipmentStatus = "BOOKED"
	StatusManifested        ShipmentStatus = "MANIFESTED"
	StatusDeparted          ShipmentStatus = "DEPARTED"
	StatusInTransit         ShipmentStatus = "IN_TRANSIT"
	StatusArrived           ShipmentStatus = "ARRIVED"
	StatusCustomsClearance  ShipmentStatus = "CUSTOMS_CLEARANCE"
	StatusOutForDelivery    ShipmentStatus = "OUT_FOR_DELIVERY"
	StatusDelivered         ShipmentStatus = "DELIVERED"
	StatusCancelled         ShipmentStatus = "CANCELLED"
	StatusOnHold            ShipmentStatus = "ON_HOLD"
	StatusException         ShipmentStatus = "EXCEPTION"
)

// Quiescent reports whether the status is terminal: the poll scheduler
// must never select a shipment in one of these states.
func (s ShipmentStatus) Quiescent() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// FlightReference identifies the physical movement a shipment is booked on.
type FlightReference struct {
	Number string
	Date   time.Time
}

// CargoMetrics carries the physical attributes of the shipment.
type CargoMetrics struct {
	Pieces   int
	WeightKg float64
	VolumeM3 *float64
}

// Shipment is the long-lived tracking aggregate, identified by an opaque
// ShipmentID and uniquely by AWBNumber. After creation its derived fields
// are written by the ingestion pipeline (see pkg/ingest); the scheduler
// stamps LastTrackedAt and cancellation sets the CANCELLED status.
type Shipment struct {
	ShipmentID  string
	AWBNumber   string // format NNN-NNNNNNNN
	CustomerID  string

	OriginAirport      string // 3-letter code
	DestinationAirport string // 3-letter code
	RouteAirports      []string

	Flight   FlightReference
	Cargo    CargoMetrics
	Commodity string

	DeclaredValue    float64
	DeclaredCurrency string

	CurrentStatus   ShipmentStatus
	CurrentLocation string

	PickupDate           *time.Time
	DeliveryDate         *time.Time
	EstimatedDeliveryDate *time.Time

	TrackingEnabled          bool
	TrackingFrequencyMinutes int
	LastTrackedAt            *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DueForPoll reports whether, at instant now, the scheduler must consider
// this shipment for a refresh (§4.4 selection predicate).
func (s *Shipment) DueForPoll(now time.Time) bool {
	if !s.TrackingEnabled || s.CurrentStatus.Quiescent() {
		return false
	}
	if s.LastTrackedAt == nil {
		return true
	}
	interval := time.Duration(s.TrackingFrequencyMinutes) * time.Minute
	return now.Sub(*s.LastTrackedAt) >= interval
}
