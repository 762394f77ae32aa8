package models

import "time"

// EventCategory classifies an event for filtering and subscription matching.
type EventCategory string

// Canonical event categories.
const (
	CategoryStatusUpdate   EventCategory = "STATUS_UPDATE"
	CategoryLocationUpdate EventCategory = "LOCATION_UPDATE"
	CategoryMilestone      EventCategory = "MILESTONE"
	CategoryException      EventCategory = "EXCEPTION"
	CategoryNotification   EventCategory = "NOTIFICATION"
)

// Severity is the operational severity of an event.
type Severity string

// Canonical severities.
const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// Location is the structured location attached to an event.
type Location struct {
	Name       string
	Country    string
	City       string
	AirportCode string
	Lat        *float64
	Long       *float64
}

// Environmental carries optional sensor readings for temperature-controlled
// or otherwise monitored cargo.
type Environmental struct {
	TemperatureCelsius *float64
	HumidityPercent    *float64
}

// SourceRef is the provenance stamped on every persisted event.
type SourceRef struct {
	SourceID   string
	ExternalID string // opaque upstream identifier; empty if the adapter has none
	Reference  string // opaque free-form reference string
}

// Event is an immutable, append-only record of a single occurrence in a
// shipment's journey. Created only by the ingestion pipeline (pkg/ingest).
type Event struct {
	EventID    string
	ShipmentID string

	Code        string // short token, e.g. "FLIGHT_DEPARTED"
	Description string
	Category    EventCategory

	Location      Location
	EventDatetime time.Time // absolute, UTC
	OriginalTZ    string    // preserved original timezone offset/name

	IsMilestone bool
	IsException bool
	IsCritical  bool
	Severity    Severity

	Source SourceRef

	Environmental Environmental

	// AdditionalInfo is an opaque, structured blob. The core never
	// interprets it; adapters may serialize strongly-typed extensions
	// into this field before persistence.
	AdditionalInfo []byte

	CustomerVisible bool
	Processed       bool
	NotificationSent bool

	CreatedAt time.Time
}

// WithinDedupWindow reports whether two event times fall inside the ±300s
// duplicate-detection window used by §4.2 step 2.
func WithinDedupWindow(a, b time.Time) bool {
	delta := a.Sub(b)
	if delta < 0 {
		delta = -delta
	}
	return delta < 300*time.Second
}

// IsDuplicateOf reports whether e is a duplicate of other per the §3 event
// invariant: same shipment, same code, within the dedup window, and either
// a matching external id (when both present) or neither side has one.
func (e *Event) IsDuplicateOf(other *Event) bool {
	if e.ShipmentID != other.ShipmentID || e.Code != other.Code {
		return false
	}
	if !WithinDedupWindow(e.EventDatetime, other.EventDatetime) {
		return false
	}
	switch {
	case e.Source.ExternalID != "" && other.Source.ExternalID != "":
		return e.Source.ExternalID == other.Source.ExternalID
	case e.Source.ExternalID == "" && other.Source.ExternalID == "":
		return true
	default:
		return false
	}
}
