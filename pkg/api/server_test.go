package api

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airfreight/trackingd/pkg/database"
	"github.com/airfreight/trackingd/pkg/hub"
	"github.com/airfreight/trackingd/pkg/ingest"
	"github.com/airfreight/trackingd/pkg/scheduler"
	"github.com/airfreight/trackingd/pkg/store"
)

func TestServer_ValidateWiring(t *testing.T) {
	t.Run("all dependencies wired", func(t *testing.T) {
		s := &Server{
			dbClient:      &database.Client{},
			shipments:     &store.ShipmentStore{},
			events:        &store.EventStore{},
			subscriptions: &store.SubscriptionStore{},
			catalog:       &store.CatalogStore{},
			pipeline:      &ingest.Pipeline{},
			sched:         &scheduler.Scheduler{},
			hubManager:    &hub.Manager{},
		}
		assert.NoError(t, s.ValidateWiring())
	})

	t.Run("nothing wired", func(t *testing.T) {
		s := &Server{}
		err := s.ValidateWiring()
		require.Error(t, err)

		msg := err.Error()
		assert.Contains(t, msg, "server wiring incomplete")
		assert.Contains(t, msg, "dbClient")
		assert.Contains(t, msg, "shipments store")
		assert.Contains(t, msg, "events store")
		assert.Contains(t, msg, "subscriptions store")
		assert.Contains(t, msg, "catalog store")
		assert.Contains(t, msg, "pipeline")
		assert.Contains(t, msg, "scheduler")
		assert.Contains(t, msg, "hub manager")

		assert.Equal(t, 8, strings.Count(msg, "not set"))
	})

	t.Run("partial wiring reports only missing", func(t *testing.T) {
		s := &Server{
			dbClient:      &database.Client{},
			shipments:     &store.ShipmentStore{},
			events:        &store.EventStore{},
			subscriptions: &store.SubscriptionStore{},
			// catalog, pipeline, sched, hubManager intentionally omitted
		}
		err := s.ValidateWiring()
		require.Error(t, err)

		msg := err.Error()
		assert.Contains(t, msg, "catalog store")
		assert.Contains(t, msg, "pipeline")
		assert.Contains(t, msg, "scheduler")
		assert.Contains(t, msg, "hub manager")
		assert.NotContains(t, msg, "dbClient not set")
		assert.NotContains(t, msg, "shipments store")
		assert.NotContains(t, msg, "events store")
		assert.NotContains(t, msg, "subscriptions store")
	})

	t.Run("cache and dispatcher not checked", func(t *testing.T) {
		s := &Server{
			dbClient:      &database.Client{},
			shipments:     &store.ShipmentStore{},
			events:        &store.EventStore{},
			subscriptions: &store.SubscriptionStore{},
			catalog:       &store.CatalogStore{},
			pipeline:      &ingest.Pipeline{},
			sched:         &scheduler.Scheduler{},
			hubManager:    &hub.Manager{},
			// cache and dispatcher intentionally nil
		}
		assert.NoError(t, s.ValidateWiring())
	})
}
