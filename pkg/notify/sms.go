package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/airfreight/trackingd/pkg/trackerrors"
)

// SMSGatewayConfig points at a generic REST SMS gateway (Twilio-compatible
// message-send endpoints follow this same shape: POST form-encoded body,
// basic auth). No SMS SDK appears in the corpus, so — like WebhookDeliverer
// — this talks to the gateway directly over net/http rather than adopting
// a dependency nothing else in the system would exercise.
type SMSGatewayConfig struct {
	Endpoint  string
	AccountID string
	AuthToken string
	FromNumber string
}

// SMSDeliverer posts a short status message to a configured SMS gateway.
type SMSDeliverer struct {
	cfg    SMSGatewayConfig
	client *http.Client
}

// NewSMSDeliverer constructs an SMSDeliverer with a bounded timeout.
func NewSMSDeliverer(cfg SMSGatewayConfig, timeout time.Duration) *SMSDeliverer {
	return &SMSDeliverer{cfg: cfg, client: &http.Client{Timeout: timeout}}
}

func (s *SMSDeliverer) Deliver(ctx context.Context, d Delivery) error {
	body := fmt.Sprintf("Shipment %s: %s", d.Shipment.AWBNumber, d.Event.Description)

	form := url.Values{}
	form.Set("From", s.cfg.FromNumber)
	form.Set("To", d.Subscription.Endpoint)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return trackerrors.NewPermanentUpstreamError("sms", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.cfg.AccountID, s.cfg.AuthToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return trackerrors.NewTransientUpstreamError("sms", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return trackerrors.NewTransientUpstreamError("sms", fmt.Errorf("gateway returned %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return trackerrors.NewPermanentUpstreamError("sms", fmt.Errorf("gateway returned %d", resp.StatusCode))
	}
	return nil
}
