package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenAuthenticator(t *testing.T) {
	auth := NewTokenAuthenticator("shh-its-a-secret")

	t.Run("valid token accepted", func(t *testing.T) {
		token := SignPushToken("shh-its-a-secret", "cust-42")
		customerID, err := auth.Authenticate(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "cust-42", customerID)
	})

	t.Run("tampered signature rejected", func(t *testing.T) {
		_, err := auth.Authenticate(context.Background(), "cust-42.deadbeef")
		assert.Error(t, err)
	})

	t.Run("signature for wrong secret rejected", func(t *testing.T) {
		token := SignPushToken("a-different-secret", "cust-42")
		_, err := auth.Authenticate(context.Background(), token)
		assert.Error(t, err)
	})

	t.Run("malformed token rejected", func(t *testing.T) {
		_, err := auth.Authenticate(context.Background(), "no-dot-here")
		assert.Error(t, err)
	})
}
