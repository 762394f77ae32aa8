// Package ingest implements the event application pipeline (§4.2): the
// single path through which every canonical event — whether fetched by an
// adapter or submitted directly through the API — is deduplicated,
// persisted, and folded into a shipment's derived state.
package ingest

// Outcome is the three-valued result of Apply (§9 redesign note: the
// pipeline never silently drops an event — every call reports exactly one
// of these).
type Outcome string

// Canonical Apply outcomes.
const (
	OutcomeCreated   Outcome = "created"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRejected  Outcome = "rejected"
)
