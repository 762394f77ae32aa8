package models

import "time"

// DeliveryMethod is a notification channel.
type DeliveryMethod string

// Canonical delivery methods.
const (
	MethodEmail   DeliveryMethod = "EMAIL"
	MethodSMS     DeliveryMethod = "SMS"
	MethodPush    DeliveryMethod = "PUSH"
	MethodWebhook DeliveryMethod = "WEBHOOK"
)

// Subscription is unique by (ShipmentID, SubscriberID, Method). Created
// through POST /tracking/subscribe (pkg/api) and consumed here for
// matching and delivery.
type Subscription struct {
	SubscriptionID string
	ShipmentID     string
	SubscriberID   string
	Method         DeliveryMethod
	Endpoint       string

	FilterMilestone       bool
	FilterException       bool
	FilterLocationUpdates bool
	FilterAllEvents       bool

	Active    bool
	CreatedAt time.Time
}

// Matches reports whether event e should trigger a notification for this
// subscription, per the §3 matching rule.
func (s *Subscription) Matches(e *Event) bool {
	if !s.Active {
		return false
	}
	if s.FilterAllEvents {
		return true
	}
	if s.FilterMilestone && e.IsMilestone {
		return true
	}
	if s.FilterException && e.IsException {
		return true
	}
	if s.FilterLocationUpdates && e.Category == CategoryLocationUpdate {
		return true
	}
	return false
}
