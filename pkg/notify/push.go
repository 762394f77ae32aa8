package notify

import (
	"context"
	"encoding/json"

	"github.com/airfreight/trackingd/pkg/hub"
	"github.com/airfreight/trackingd/pkg/trackerrors"
)

// PushBroadcaster is the subset of *hub.Manager a PushDeliverer needs.
type PushBroadcaster interface {
	HasSubscriber(topic string) bool
	Broadcast(topic string, payload []byte)
}

// PushDeliverer delivers over the already-built WebSocket hub rather than a
// separate mobile-push SDK (no APNs/FCM client appears anywhere in the
// corpus, and the system already has a live push channel for subscribers
// connected via pkg/hub). A subscriber with no open connection is not an
// error, just not currently reachable — the dispatcher retries it with the
// same backoff as any other transient failure, giving a reconnect a chance
// to catch the retry window.
type PushDeliverer struct {
	hub PushBroadcaster
}

// NewPushDeliverer constructs a PushDeliverer over a hub.Manager.
func NewPushDeliverer(h PushBroadcaster) *PushDeliverer {
	return &PushDeliverer{hub: h}
}

type pushPayload struct {
	Type        string `json:"type"`
	ShipmentID  string `json:"shipment_id"`
	EventCode   string `json:"event_code"`
	Description string `json:"description"`
}

func (p *PushDeliverer) Deliver(ctx context.Context, d Delivery) error {
	topic := hub.CustomerTopic(d.Subscription.SubscriberID)
	if !p.hub.HasSubscriber(topic) {
		return trackerrors.NewTransientUpstreamError("push", errNoActiveConnection)
	}

	payload, err := json.Marshal(pushPayload{
		Type:        hub.TypeSystemNotification,
		ShipmentID:  d.Shipment.ShipmentID,
		EventCode:   d.Event.Code,
		Description: d.Event.Description,
	})
	if err != nil {
		return trackerrors.NewPermanentUpstreamError("push", err)
	}

	p.hub.Broadcast(topic, payload)
	return nil
}

var errNoActiveConnection = pushError("subscriber has no active connection")

type pushError string

func (e pushError) Error() string { return string(e) }
