package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/airfreight/trackingd/pkg/models"
)

type stubDeliverer struct{ called bool }

func (s *stubDeliverer) Deliver(ctx context.Context, d Delivery) error {
	s.called = true
	return nil
}

func TestRegistry_ForReturnsConfiguredDeliverer(t *testing.T) {
	webhook := &stubDeliverer{}
	registry := NewRegistry(map[models.DeliveryMethod]Deliverer{
		models.MethodWebhook: webhook,
	})

	assert.Same(t, Deliverer(webhook), registry.For(models.MethodWebhook))
}

func TestRegistry_ForUnconfiguredMethodReturnsNil(t *testing.T) {
	registry := NewRegistry(map[models.DeliveryMethod]Deliverer{})
	assert.Nil(t, registry.For(models.MethodEmail))
}
