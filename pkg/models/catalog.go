package models

import "time"

// MilestoneCategory buckets the catalog entries by logistics phase.
type MilestoneCategory string

// Canonical milestone categories.
const (
	MilestonePickup    MilestoneCategory = "PICKUP"
	MilestoneDeparture MilestoneCategory = "DEPARTURE"
	MilestoneTransit   MilestoneCategory = "TRANSIT"
	MilestoneArrival   MilestoneCategory = "ARRIVAL"
	MilestoneCustoms   MilestoneCategory = "CUSTOMS"
	MilestoneDelivery  MilestoneCategory = "DELIVERY"
)

// Milestone is a read-only catalog entry describing a significant
// checkpoint. Seeded from embedded YAML (pkg/config/seed) rather than
// maintained by the core at runtime.
type Milestone struct {
	Code             string
	Name             string
	Category         MilestoneCategory
	SequenceOrder    int
	Critical         bool
	ExpectedDuration time.Duration // typical time from booking to this milestone
	SLAThreshold     time.Duration

	// MappedStatus is the shipment status this milestone's event code
	// drives, or "" if the code does not change current_status.
	MappedStatus ShipmentStatus
}

// SourceType classifies where a Source supplies data from.
type SourceType string

// Canonical source types.
const (
	SourceIndustryFeed  SourceType = "INDUSTRY_FEED"
	SourceCarrier       SourceType = "CARRIER"
	SourceCustoms       SourceType = "CUSTOMS"
	SourceGroundHandler SourceType = "GROUND_HANDLER"
	SourceManual        SourceType = "MANUAL"
)

// Source is reference data describing an upstream event origin. Priority
// is lower-is-higher-precedence: when two events share an event_datetime,
// status derivation prefers the one from the lower Priority value. Dedup
// does not consult Priority; the first applied event in the window is kept.
type Source struct {
	SourceID string
	Name     string
	Type     SourceType
	Priority int
}
