package api

import (
	"time"

	"github.com/airfreight/trackingd/pkg/models"
)

// None of pkg/models carries JSON tags — those types are the ingestion
// pipeline's and stores' shared currency, not a wire format, matching the
// teacher's own separation (ent-generated types never cross into
// responses.go either). Every HTTP response is its own hand-defined DTO,
// the same division the teacher draws between AlertResponse/HealthResponse
// and the lower layers they summarize.

// LocationResponse is the wire shape of models.Location.
type LocationResponse struct {
	Name        string   `json:"name,omitempty"`
	Country     string   `json:"country,omitempty"`
	City        string   `json:"city,omitempty"`
	AirportCode string   `json:"airport_code,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Long        *float64 `json:"long,omitempty"`
}

func locationResponse(l models.Location) LocationResponse {
	return LocationResponse{
		Name: l.Name, Country: l.Country, City: l.City, AirportCode: l.AirportCode,
		Lat: l.Lat, Long: l.Long,
	}
}

// EventResponse is the wire shape of models.Event.
type EventResponse struct {
	EventID       string           `json:"event_id"`
	ShipmentID    string           `json:"shipment_id"`
	Code          string           `json:"code"`
	Description   string           `json:"description"`
	Category      string           `json:"category"`
	Location      LocationResponse `json:"location"`
	EventDatetime time.Time        `json:"event_datetime"`
	OriginalTZ    string           `json:"original_tz,omitempty"`
	IsMilestone   bool             `json:"is_milestone"`
	IsException   bool             `json:"is_exception"`
	IsCritical    bool             `json:"is_critical"`
	Severity      string           `json:"severity"`
	SourceID      string           `json:"source_id"`
	ExternalID    string           `json:"external_id,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

func eventResponse(e *models.Event) EventResponse {
	return EventResponse{
		EventID: e.EventID, ShipmentID: e.ShipmentID, Code: e.Code, Description: e.Description,
		Category: string(e.Category), Location: locationResponse(e.Location),
		EventDatetime: e.EventDatetime, OriginalTZ: e.OriginalTZ,
		IsMilestone: e.IsMilestone, IsException: e.IsException, IsCritical: e.IsCritical,
		Severity: string(e.Severity), SourceID: e.Source.SourceID, ExternalID: e.Source.ExternalID,
		CreatedAt: e.CreatedAt,
	}
}

func eventResponses(events []*models.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse(e))
	}
	return out
}

// ShipmentResponse is the wire shape of models.Shipment. HasExceptions is
// computed from the persisted event stream, never from upstream fetch
// success/failure (§7 user-visible behavior).
type ShipmentResponse struct {
	ShipmentID  string `json:"shipment_id"`
	AWBNumber   string `json:"awb_number"`
	CustomerID  string `json:"customer_id,omitempty"`

	OriginAirport      string   `json:"origin_airport"`
	DestinationAirport string   `json:"destination_airport"`
	RouteAirports      []string `json:"route_airports,omitempty"`

	FlightNumber string     `json:"flight_number,omitempty"`
	FlightDate   *time.Time `json:"flight_date,omitempty"`

	Pieces   int      `json:"pieces"`
	WeightKg float64  `json:"weight_kg"`
	VolumeM3 *float64 `json:"volume_m3,omitempty"`

	Commodity        string  `json:"commodity,omitempty"`
	DeclaredValue    float64 `json:"declared_value,omitempty"`
	DeclaredCurrency string  `json:"declared_currency,omitempty"`

	CurrentStatus   string `json:"current_status"`
	CurrentLocation string `json:"current_location,omitempty"`

	PickupDate            *time.Time `json:"pickup_date,omitempty"`
	DeliveryDate          *time.Time `json:"delivery_date,omitempty"`
	EstimatedDeliveryDate *time.Time `json:"estimated_delivery_date,omitempty"`

	TrackingEnabled bool       `json:"tracking_enabled"`
	LastTrackedAt   *time.Time `json:"last_tracked_at,omitempty"`
	HasExceptions   bool       `json:"has_exceptions"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func shipmentResponse(sh *models.Shipment, hasExceptions bool) ShipmentResponse {
	var flightDate *time.Time
	if !sh.Flight.Date.IsZero() {
		t := sh.Flight.Date
		flightDate = &t
	}
	return ShipmentResponse{
		ShipmentID: sh.ShipmentID, AWBNumber: sh.AWBNumber, CustomerID: sh.CustomerID,
		OriginAirport: sh.OriginAirport, DestinationAirport: sh.DestinationAirport, RouteAirports: sh.RouteAirports,
		FlightNumber: sh.Flight.Number, FlightDate: flightDate,
		Pieces: sh.Cargo.Pieces, WeightKg: sh.Cargo.WeightKg, VolumeM3: sh.Cargo.VolumeM3,
		Commodity: sh.Commodity, DeclaredValue: sh.DeclaredValue, DeclaredCurrency: sh.DeclaredCurrency,
		CurrentStatus: string(sh.CurrentStatus), CurrentLocation: sh.CurrentLocation,
		PickupDate: sh.PickupDate, DeliveryDate: sh.DeliveryDate, EstimatedDeliveryDate: sh.EstimatedDeliveryDate,
		TrackingEnabled: sh.TrackingEnabled, LastTrackedAt: sh.LastTrackedAt, HasExceptions: hasExceptions,
		CreatedAt: sh.CreatedAt, UpdatedAt: sh.UpdatedAt,
	}
}

// TrackingSnapshotResponse is returned by the public AWB-lookup endpoint:
// the best available snapshot plus enough recent history to render a
// tracking page, without requiring a second authenticated call.
type TrackingSnapshotResponse struct {
	Shipment ShipmentResponse `json:"shipment"`
	Events   []EventResponse  `json:"events"`
}

// ShipmentDetailResponse is returned by GET /tracking/shipments/{id}: full
// snapshot plus complete history.
type ShipmentDetailResponse struct {
	Shipment ShipmentResponse `json:"shipment"`
	Events   []EventResponse  `json:"events"`
}

// PageResponse wraps any paginated list with the limit/offset/total the
// caller needs to fetch the next page.
type PageResponse struct {
	Items  any `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// EventApplyResponse is returned by POST /tracking/events.
type EventApplyResponse struct {
	Outcome string `json:"outcome"`
	Event   EventResponse `json:"event,omitempty"`
}

// BulkUpdateResult is one shipment's outcome within a bulk-update request.
type BulkUpdateResult struct {
	ShipmentID string `json:"shipment_id"`
	AWBNumber  string `json:"awb_number,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// BulkUpdateResponse is returned by POST /tracking/bulk-update.
type BulkUpdateResponse struct {
	Results []BulkUpdateResult `json:"results"`
}

// SubscriptionResponse is returned by POST /tracking/subscribe.
type SubscriptionResponse struct {
	SubscriptionID string `json:"subscription_id"`
	ShipmentID     string `json:"shipment_id"`
	SubscriberID   string `json:"subscriber_id"`
	Method         string `json:"method"`
	Active         bool   `json:"active"`
}

func subscriptionResponse(s *models.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		SubscriptionID: s.SubscriptionID, ShipmentID: s.ShipmentID,
		SubscriberID: s.SubscriberID, Method: string(s.Method), Active: s.Active,
	}
}

// StatisticsResponse is returned by GET /tracking/statistics.
type StatisticsResponse struct {
	From              time.Time      `json:"from"`
	To                time.Time      `json:"to"`
	TotalEvents       int            `json:"total_events"`
	MilestoneEvents   int            `json:"milestone_events"`
	ExceptionEvents   int            `json:"exception_events"`
	ShipmentsByStatus map[string]int `json:"shipments_by_status"`
}

// ProcessUpdatesResponse is returned by POST /tracking/process-updates.
type ProcessUpdatesResponse struct {
	TickCount int       `json:"shipments_polled"`
	TickAt    time.Time `json:"tick_at"`
}

// HealthResponse is returned by GET /tracking/health.
type HealthResponse struct {
	Status        string           `json:"status"`
	Database      string           `json:"database"`
	Scheduler     SchedulerHealth  `json:"scheduler"`
	Hub           HubHealth        `json:"hub"`
	Notifications string           `json:"notifications,omitempty"`
}

// SchedulerHealth summarizes the poll scheduler's last tick.
type SchedulerHealth struct {
	LastTickAt    *time.Time `json:"last_tick_at,omitempty"`
	LastTickCount int        `json:"last_tick_count"`
}

// HubHealth summarizes the fan-out hub's current load.
type HubHealth struct {
	ActiveConnections int `json:"active_connections"`
}
