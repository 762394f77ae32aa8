package notify

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/airfreight/trackingd/pkg/models"
	"github.com/airfreight/trackingd/pkg/trackerrors"
)

func testDelivery(endpoint string) Delivery {
	return Delivery{
		Job:          &models.NotificationJob{JobID: "job-1"},
		Subscription: &models.Subscription{SubscriptionID: "sub-1", SubscriberID: "cust-1", Endpoint: endpoint},
		Event:        &models.Event{Code: "DEP", Description: "Departed origin", EventDatetime: time.Now()},
		Shipment:     &models.Shipment{ShipmentID: "ship-1", AWBNumber: "123-45678901", CurrentStatus: models.StatusInTransit},
	}
}

func TestWebhookDeliverer_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewWebhookDeliverer(5 * time.Second)
	err := d.Deliver(t.Context(), testDelivery(srv.URL))
	assert.NoError(t, err)
}

func TestWebhookDeliverer_TransientOn5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := NewWebhookDeliverer(5 * time.Second)
	err := d.Deliver(t.Context(), testDelivery(srv.URL))
	assert.True(t, trackerrors.IsTransientUpstreamError(err))
}

func TestWebhookDeliverer_PermanentOn4xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	d := NewWebhookDeliverer(5 * time.Second)
	err := d.Deliver(t.Context(), testDelivery(srv.URL))
	assert.True(t, trackerrors.IsPermanentUpstreamError(err))
}

func TestWebhookDeliverer_TransientOnTooManyRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := NewWebhookDeliverer(5 * time.Second)
	err := d.Deliver(t.Context(), testDelivery(srv.URL))
	assert.True(t, trackerrors.IsTransientUpstreamError(err))
}
