package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/airfreight/trackingd/pkg/trackerrors"
)

// EmailDeliverer sends a plain-text notification over SMTP. No mail-sending
// SDK appears anywhere in the corpus, so this is one of the rare genuinely
// stdlib-only concerns in this repo (see DESIGN.md) — net/smtp's
// PlainAuth/SendMail pair is the idiomatic-Go way to do this without pulling
// in an unrelated dependency no other part of the system would exercise.
type EmailDeliverer struct {
	smtpAddr  string
	auth      smtp.Auth
	fromEmail string
}

// NewEmailDeliverer constructs an EmailDeliverer against an SMTP relay.
// username/password may be empty for relays that trust the network path
// instead of authenticating (e.g. an in-cluster mail relay).
func NewEmailDeliverer(smtpAddr, smtpHost, username, password, fromEmail string) *EmailDeliverer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, smtpHost)
	}
	return &EmailDeliverer{smtpAddr: smtpAddr, auth: auth, fromEmail: fromEmail}
}

func (e *EmailDeliverer) Deliver(ctx context.Context, d Delivery) error {
	subject := fmt.Sprintf("Shipment %s: %s", d.Shipment.AWBNumber, d.Event.Description)
	body := fmt.Sprintf(
		"Shipment %s is now %s.\n\nEvent: %s\nLocation: %s\nTime: %s\n",
		d.Shipment.AWBNumber, d.Shipment.CurrentStatus, d.Event.Description,
		d.Event.Location.Name, d.Event.EventDatetime.Format("2006-01-02 15:04 MST"))

	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\n\r\n%s", d.Subscription.Endpoint, subject, body))

	if err := smtp.SendMail(e.smtpAddr, e.auth, e.fromEmail, []string{d.Subscription.Endpoint}, msg); err != nil {
		return trackerrors.NewTransientUpstreamError("email", err)
	}
	return nil
}
