package notify

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airfreight/trackingd/pkg/trackerrors"
)

func TestSMSDeliverer_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "acct-1", user)
		assert.Equal(t, "token-1", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+15551234567", r.PostForm.Get("From"))

		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	d := NewSMSDeliverer(SMSGatewayConfig{
		Endpoint:   srv.URL,
		AccountID:  "acct-1",
		AuthToken:  "token-1",
		FromNumber: "+15551234567",
	}, 5*time.Second)

	delivery := testDelivery("+15559876543")
	err := d.Deliver(t.Context(), delivery)
	assert.NoError(t, err)
}

func TestSMSDeliverer_TransientOn5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewSMSDeliverer(SMSGatewayConfig{Endpoint: srv.URL}, 5*time.Second)
	err := d.Deliver(t.Context(), testDelivery("+15559876543"))
	assert.True(t, trackerrors.IsTransientUpstreamError(err))
}

func TestSMSDeliverer_PermanentOn4xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	d := NewSMSDeliverer(SMSGatewayConfig{Endpoint: srv.URL}, 5*time.Second)
	err := d.Deliver(t.Context(), testDelivery("+15559876543"))
	assert.True(t, trackerrors.IsPermanentUpstreamError(err))
}
