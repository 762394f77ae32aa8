package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/airfreight/trackingd/pkg/trackerrors"
)

// webhookPayload is the body posted to a subscriber's endpoint.
type webhookPayload struct {
	ShipmentID  string `json:"shipment_id"`
	AWBNumber   string `json:"awb_number"`
	EventCode   string `json:"event_code"`
	Description string `json:"description"`
	Status      string `json:"status"`
	OccurredAt  string `json:"occurred_at"`
}

// WebhookDeliverer POSTs a JSON payload to the subscription's endpoint. No
// SDK in the corpus targets arbitrary subscriber-owned endpoints, so this
// stays on net/http — the same client pattern the industry-feed adapter
// uses for its own outbound calls.
type WebhookDeliverer struct {
	client *http.Client
}

// NewWebhookDeliverer constructs a WebhookDeliverer with a bounded timeout.
func NewWebhookDeliverer(timeout time.Duration) *WebhookDeliverer {
	return &WebhookDeliverer{client: &http.Client{Timeout: timeout}}
}

func (w *WebhookDeliverer) Deliver(ctx context.Context, d Delivery) error {
	body, err := json.Marshal(webhookPayload{
		ShipmentID:  d.Shipment.ShipmentID,
		AWBNumber:   d.Shipment.AWBNumber,
		EventCode:   d.Event.Code,
		Description: d.Event.Description,
		Status:      string(d.Shipment.CurrentStatus),
		OccurredAt:  d.Event.EventDatetime.Format(time.RFC3339),
	})
	if err != nil {
		return trackerrors.NewPermanentUpstreamError("webhook", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Subscription.Endpoint, bytes.NewReader(body))
	if err != nil {
		return trackerrors.NewPermanentUpstreamError("webhook", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return trackerrors.NewTransientUpstreamError("webhook", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return trackerrors.NewTransientUpstreamError("webhook", fmt.Errorf("endpoint returned %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return trackerrors.NewPermanentUpstreamError("webhook", fmt.Errorf("endpoint returned %d", resp.StatusCode))
	}
	return nil
}
