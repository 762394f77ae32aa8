package hub

import "encoding/json"

// Inbound client message actions (§4.5).
const (
	ActionAuthenticate       = "authenticate"
	ActionSubscribeShipment  = "subscribe_shipment"
	ActionUnsubscribeShipment = "unsubscribe_shipment"
	ActionSubscribeCustomer  = "subscribe_customer"
	ActionPing               = "ping"
)

// ClientMessage is the envelope for every inbound WebSocket message.
type ClientMessage struct {
	Action     string `json:"action"`
	Token      string `json:"token,omitempty"`
	ShipmentID string `json:"shipment_id,omitempty"`
	AWBNumber  string `json:"awb_number,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
}

// Outbound message types (§4.5).
const (
	TypeConnected              = "connected"
	TypeAuthenticated          = "authenticated"
	TypeAuthError              = "auth_error"
	TypeSubscribed             = "subscribed"
	TypeSubscriptionError      = "subscription_error"
	TypeTrackingEvent          = "tracking_event"
	TypeCriticalUpdate         = "critical_update"
	TypeCustomerTrackingUpdate = "customer_tracking_update"
	TypeBulkTrackingUpdate     = "bulk_tracking_update"
	TypeSystemNotification     = "system_notification"
	TypeServiceShutdown        = "service_shutdown"
	TypePong                   = "pong"
)

// marshal is a small helper so callers don't repeat the error-swallow
// pattern at every send site; a message that fails to marshal is a
// programmer error, logged by the caller and dropped.
func marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
