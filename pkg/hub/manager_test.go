package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return NewManager(nil, nil, Config{QueueCapacity: 4, MaxOverflows: 2, WriteTimeout: time.Second})
}

func newTestConnection(id string) *connection {
	return newConnection(context.Background(), id, nil, 4, 2, time.Second)
}

func TestManager_SubscribeAndBroadcast(t *testing.T) {
	m := newTestManager()
	c := newTestConnection("conn-1")
	m.register(c)

	topic := ShipmentTopic("ship-1")
	m.subscribe(c, topic)

	m.Broadcast(topic, []byte(`{"type":"tracking_event"}`))

	select {
	case payload := <-c.outbox:
		assert.JSONEq(t, `{"type":"tracking_event"}`, string(payload))
	default:
		t.Fatal("expected a queued payload after broadcast")
	}
}

func TestManager_BroadcastToUnsubscribedTopicIsNoOp(t *testing.T) {
	m := newTestManager()
	c := newTestConnection("conn-1")
	m.register(c)

	m.Broadcast(ShipmentTopic("nobody-listening"), []byte("x"))

	assert.Empty(t, c.outbox)
}

func TestManager_UnsubscribeRemovesTopicMembership(t *testing.T) {
	m := newTestManager()
	c := newTestConnection("conn-1")
	m.register(c)

	topic := ShipmentTopic("ship-1")
	m.subscribe(c, topic)
	require.True(t, m.HasSubscriber(topic))

	m.unsubscribe(c, topic)
	assert.False(t, m.HasSubscriber(topic))

	m.Broadcast(topic, []byte("x"))
	assert.Empty(t, c.outbox)
}

func TestManager_MultipleSubscribersSameTopic(t *testing.T) {
	m := newTestManager()
	c1 := newTestConnection("conn-1")
	c2 := newTestConnection("conn-2")
	m.register(c1)
	m.register(c2)

	topic := CustomerTopic("cust-1")
	m.subscribe(c1, topic)
	m.subscribe(c2, topic)

	m.Broadcast(topic, []byte("x"))

	assert.Len(t, c1.outbox, 1)
	assert.Len(t, c2.outbox, 1)

	m.unsubscribe(c1, topic)
	assert.True(t, m.HasSubscriber(topic), "topic should remain subscribed while conn-2 is still on it")

	m.unsubscribe(c2, topic)
	assert.False(t, m.HasSubscriber(topic))
}

func TestManager_ActiveConnections(t *testing.T) {
	m := newTestManager()
	assert.Equal(t, 0, m.ActiveConnections())

	c := newTestConnection("conn-1")
	m.register(c)
	assert.Equal(t, 1, m.ActiveConnections())

	m.mu.Lock()
	delete(m.connections, c.id)
	m.mu.Unlock()
	assert.Equal(t, 0, m.ActiveConnections())
}

func TestManager_HandleAuthenticate(t *testing.T) {
	m := NewManager(stubAuthenticator{customerID: "cust-1"}, nil, Config{QueueCapacity: 4, MaxOverflows: 2, WriteTimeout: time.Second})
	c := newTestConnection("conn-1")

	m.handleAuthenticate(context.Background(), c, &ClientMessage{Token: "good"})

	assert.True(t, c.authenticated)
	assert.Equal(t, "cust-1", c.customerID)
}

func TestManager_HandleSubscribeCustomerRequiresMatchingAuth(t *testing.T) {
	m := newTestManager()
	c := newTestConnection("conn-1")
	c.authenticated = true
	c.customerID = "cust-1"

	m.handleSubscribeCustomer(c, &ClientMessage{CustomerID: "cust-2"})
	assert.False(t, m.HasSubscriber(CustomerTopic("cust-2")))

	m.handleSubscribeCustomer(c, &ClientMessage{CustomerID: "cust-1"})
	assert.True(t, m.HasSubscriber(CustomerTopic("cust-1")))
}

type stubAuthenticator struct {
	customerID string
	err        error
}

func (s stubAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.customerID, nil
}
