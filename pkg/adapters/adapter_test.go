package adapters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/airfreight/trackingd/pkg/models"
)

type stubAdapter struct{ id string }

func (s *stubAdapter) SourceID() string { return s.id }
func (s *stubAdapter) Fetch(_ context.Context, _ *models.Shipment) ([]*models.Event, error) {
	return nil, nil
}

func TestRegistry_All_PreservesRegistrationOrder(t *testing.T) {
	a, b, c := &stubAdapter{id: "a"}, &stubAdapter{id: "b"}, &stubAdapter{id: "c"}
	r := NewRegistry(a, b, c)

	got := r.All()
	assert.Len(t, got, 3)
	assert.Equal(t, "a", got[0].SourceID())
	assert.Equal(t, "b", got[1].SourceID())
	assert.Equal(t, "c", got[2].SourceID())
}

func TestRegistry_All_Empty(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.All())
}
