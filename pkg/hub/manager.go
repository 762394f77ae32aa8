// Package hub is the subscription and fan-out layer (§4.5): WebSocket
// clients subscribe to a shipment or customer topic and receive tracking
// events as they are applied. Generalizes the teacher's ConnectionManager
// (pkg/events/manager.go) from one implicit per-session channel to two
// explicit topic families, and replaces its synchronous per-send write
// with a bounded per-connection queue (see connection.go) so a slow client
// can never stall a Broadcast. Tracking events arrive through Listener's
// pg_notify subscription (listener.go) — the same path used whether the
// event was applied by this process or another one; pkg/notify's push
// deliverer also calls Broadcast directly for system_notification messages.
package hub

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/airfreight/trackingd/pkg/metrics"
)

// Authenticator resolves a client-supplied token to a customer identity.
// Implemented by pkg/api against whatever auth scheme the deployment uses;
// the hub never parses tokens itself.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (customerID string, err error)
}

// ShipmentLookup resolves an AWB number to a shipment id, so clients can
// subscribe by AWB without the hub touching the store directly.
type ShipmentLookup interface {
	ResolveAWB(ctx context.Context, awb string) (shipmentID string, err error)
}

// Manager owns every WebSocket connection and topic subscription for this
// process. Cross-process fan-out (so a client connected to pod B receives
// an event applied on pod A) is handled by Listener, which calls Broadcast
// on this Manager when a NOTIFY arrives.
type Manager struct {
	auth    Authenticator
	lookup  ShipmentLookup

	queueCapacity int
	maxOverflows  int
	writeTimeout  time.Duration

	mu          sync.RWMutex
	connections map[string]*connection

	topicMu sync.RWMutex
	topics  map[string]map[string]bool // topic -> set of connection ids

	listenerMu sync.RWMutex
	listener   *Listener

	log *slog.Logger
}

// Config bundles the tunables for a Manager (mirrors config.HubConfig).
type Config struct {
	QueueCapacity int
	MaxOverflows  int
	WriteTimeout  time.Duration
}

// NewManager constructs a Manager. auth and lookup may be nil in tests that
// don't exercise the authenticate/subscribe_shipment-by-awb paths.
func NewManager(auth Authenticator, lookup ShipmentLookup, cfg Config) *Manager {
	return &Manager{
		auth:          auth,
		lookup:        lookup,
		queueCapacity: cfg.QueueCapacity,
		maxOverflows:  cfg.MaxOverflows,
		writeTimeout:  cfg.WriteTimeout,
		connections:   make(map[string]*connection),
		topics:        make(map[string]map[string]bool),
		log:           slog.With("component", "hub"),
	}
}

// SetListener attaches the cross-process Listener. Must be called
// before any client subscribes if cross-pod fan-out is required; subscribe
// and unsubscribe issue LISTEN/UNLISTEN against whatever listener is
// currently attached, mirroring the teacher's ConnectionManager.SetListener.
func (m *Manager) SetListener(l *Listener) {
	m.listenerMu.Lock()
	m.listener = l
	m.listenerMu.Unlock()
}

// ShipmentTopic is the canonical topic name for a single shipment's events.
func ShipmentTopic(shipmentID string) string { return "shipment:" + shipmentID }

// CustomerTopic is the canonical topic name for a customer's cross-shipment
// updates.
func CustomerTopic(customerID string) string { return "customer:" + customerID }

// HandleConnection drives one client's connection lifecycle from upgrade
// until it disconnects. Blocks until the connection closes.
func (m *Manager) HandleConnection(parentCtx context.Context, ws *websocket.Conn) {
	id := uuid.NewString()
	c := newConnection(parentCtx, id, ws, m.queueCapacity, m.maxOverflows, m.writeTimeout)

	m.register(c)
	defer m.unregister(c)

	go c.writeLoop()

	c.sendJSON(map[string]string{"type": TypeConnected, "connection_id": id})

	for {
		_, data, err := ws.Read(c.ctx)
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := unmarshal(data, &msg); err != nil {
			continue
		}
		m.handleMessage(c.ctx, c, &msg)
	}
}

func (m *Manager) handleMessage(ctx context.Context, c *connection, msg *ClientMessage) {
	switch msg.Action {
	case ActionAuthenticate:
		m.handleAuthenticate(ctx, c, msg)
	case ActionSubscribeShipment:
		m.handleSubscribeShipment(ctx, c, msg)
	case ActionUnsubscribeShipment:
		m.handleUnsubscribeShipment(c, msg)
	case ActionSubscribeCustomer:
		m.handleSubscribeCustomer(c, msg)
	case ActionPing:
		c.sendJSON(map[string]string{"type": TypePong})
	}
}

func (m *Manager) handleAuthenticate(ctx context.Context, c *connection, msg *ClientMessage) {
	if m.auth == nil {
		c.sendJSON(map[string]string{"type": TypeAuthError, "message": "authentication not configured"})
		return
	}
	customerID, err := m.auth.Authenticate(ctx, msg.Token)
	if err != nil {
		c.sendJSON(map[string]string{"type": TypeAuthError, "message": "invalid token"})
		return
	}
	c.authenticated = true
	c.customerID = customerID
	c.sendJSON(map[string]string{"type": TypeAuthenticated, "customer_id": customerID})
}

func (m *Manager) handleSubscribeShipment(ctx context.Context, c *connection, msg *ClientMessage) {
	if !c.authenticated {
		c.sendJSON(map[string]string{"type": TypeSubscriptionError, "message": "authenticate before subscribing"})
		return
	}
	shipmentID := msg.ShipmentID
	if shipmentID == "" && msg.AWBNumber != "" && m.lookup != nil {
		id, err := m.lookup.ResolveAWB(ctx, msg.AWBNumber)
		if err != nil {
			c.sendJSON(map[string]string{"type": TypeSubscriptionError, "message": "shipment not found"})
			return
		}
		shipmentID = id
	}
	if shipmentID == "" {
		c.sendJSON(map[string]string{"type": TypeSubscriptionError, "message": "shipment_id or awb_number is required"})
		return
	}
	topic := ShipmentTopic(shipmentID)
	m.subscribe(c, topic)
	c.sendJSON(map[string]string{"type": TypeSubscribed, "shipment_id": shipmentID})
}

func (m *Manager) handleUnsubscribeShipment(c *connection, msg *ClientMessage) {
	if msg.ShipmentID == "" {
		return
	}
	m.unsubscribe(c, ShipmentTopic(msg.ShipmentID))
}

func (m *Manager) handleSubscribeCustomer(c *connection, msg *ClientMessage) {
	if !c.authenticated || msg.CustomerID == "" || msg.CustomerID != c.customerID {
		c.sendJSON(map[string]string{"type": TypeSubscriptionError, "message": "not authorized for this customer"})
		return
	}
	topic := CustomerTopic(msg.CustomerID)
	m.subscribe(c, topic)
	c.sendJSON(map[string]string{"type": TypeSubscribed, "customer_id": msg.CustomerID})
}

func (m *Manager) subscribe(c *connection, topic string) {
	m.topicMu.Lock()
	_, existed := m.topics[topic]
	if !existed {
		m.topics[topic] = make(map[string]bool)
	}
	m.topics[topic][c.id] = true
	m.topicMu.Unlock()
	c.topics[topic] = true

	if !existed {
		m.listenerMu.RLock()
		l := m.listener
		m.listenerMu.RUnlock()
		if l != nil {
			if err := l.Subscribe(context.Background(), topic); err != nil {
				m.log.Error("LISTEN failed for topic", "topic", topic, "error", err)
			}
		}
	}
}

func (m *Manager) unsubscribe(c *connection, topic string) {
	m.topicMu.Lock()
	empty := false
	if subs, ok := m.topics[topic]; ok {
		delete(subs, c.id)
		if len(subs) == 0 {
			delete(m.topics, topic)
			empty = true
		}
	}
	m.topicMu.Unlock()
	delete(c.topics, topic)

	if empty {
		m.listenerMu.RLock()
		l := m.listener
		m.listenerMu.RUnlock()
		if l != nil {
			if err := l.Unsubscribe(context.Background(), topic); err != nil {
				m.log.Error("UNLISTEN failed for topic", "topic", topic, "error", err)
			}
		}
	}
}

// Broadcast delivers a raw payload to every connection subscribed to topic.
// Tracking events reach it from Listener, relaying a pg_notify payload —
// whether that notification originated in this process or another one;
// pkg/notify's PushDeliverer calls it directly for push notifications.
func (m *Manager) Broadcast(topic string, payload []byte) {
	m.topicMu.RLock()
	subs, ok := m.topics[topic]
	if !ok {
		m.topicMu.RUnlock()
		return
	}
	ids := make([]string, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	m.topicMu.RUnlock()

	m.mu.RLock()
	conns := make([]*connection, 0, len(ids))
	for _, id := range ids {
		if c, ok := m.connections[id]; ok {
			conns = append(conns, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range conns {
		c.enqueue(payload)
	}

	var typed struct {
		Type string `json:"type"`
	}
	if err := unmarshal(payload, &typed); err == nil && typed.Type != "" {
		metrics.HubBroadcastsTotal.WithLabelValues(typed.Type).Inc()
	}
}

// HasSubscriber reports whether any connection currently holds topic,
// letting pkg/notify's push deliverer decide between an immediate best-
// effort send and a retry once the customer reconnects.
func (m *Manager) HasSubscriber(topic string) bool {
	m.topicMu.RLock()
	defer m.topicMu.RUnlock()
	return len(m.topics[topic]) > 0
}

// ActiveConnections reports the number of currently connected clients.
func (m *Manager) ActiveConnections() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// Shutdown notifies every connected client that the service is going away
// and closes their connections, giving well-behaved clients a chance to
// reconnect elsewhere instead of seeing a bare socket reset.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	conns := make([]*connection, 0, len(m.connections))
	for _, c := range m.connections {
		conns = append(conns, c)
	}
	m.mu.RUnlock()

	for _, c := range conns {
		c.sendJSON(map[string]string{"type": TypeServiceShutdown})
		c.cancel()
	}
}

func (m *Manager) register(c *connection) {
	m.mu.Lock()
	m.connections[c.id] = c
	m.mu.Unlock()
	metrics.HubActiveConnections.Set(float64(m.ActiveConnections()))
}

func (m *Manager) unregister(c *connection) {
	for topic := range c.topics {
		m.unsubscribe(c, topic)
	}
	m.mu.Lock()
	delete(m.connections, c.id)
	m.mu.Unlock()
	metrics.HubActiveConnections.Set(float64(m.ActiveConnections()))
	c.cancel()
	_ = c.conn.Close(websocket.StatusNormalClosure, "")
}
