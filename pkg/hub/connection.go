package hub

import (
	"context"
	"log/slog"
	"time"

	"github.com/coder/websocket"

	"github.com/airfreight/trackingd/pkg/metrics"
)

// connection is a single authenticated-or-anonymous WebSocket client.
//
// Unlike the teacher's Connection (which writes synchronously from
// Broadcast's calling goroutine with a per-send timeout), outbound delivery
// here goes through a bounded queue drained by one writer goroutine per
// connection. Publish enqueues and never blocks: when the queue is full the
// oldest pending message is dropped to make room (§4.5 back-pressure
// policy) rather than stalling the publisher or the client's read loop.
type connection struct {
	id         string
	conn       *websocket.Conn
	ctx        context.Context
	cancel     context.CancelFunc
	writeTimeout time.Duration

	authenticated bool
	customerID    string // set once Authenticate succeeds

	topics map[string]bool // topics this connection is subscribed to; owned by the read-loop goroutine

	outbox    chan []byte
	overflows int // consecutive drop-oldest events since the last enqueue that did not need to drop
	maxOverflows int
}

func newConnection(parentCtx context.Context, id string, c *websocket.Conn, queueCapacity, maxOverflows int, writeTimeout time.Duration) *connection {
	ctx, cancel := context.WithCancel(parentCtx)
	return &connection{
		id:           id,
		conn:         c,
		ctx:          ctx,
		cancel:       cancel,
		writeTimeout: writeTimeout,
		topics:       make(map[string]bool),
		outbox:       make(chan []byte, queueCapacity),
		maxOverflows: maxOverflows,
	}
}

// enqueue is the non-blocking publish path. On a full queue it drops the
// oldest queued message and retries once; a connection that overflows
// maxOverflows times in a row, with no enqueue in between that fit without
// a drop, is disconnected here: enqueue cancels the connection's context
// (a client that can't keep up is worse than no client).
func (c *connection) enqueue(payload []byte) {
	select {
	case c.outbox <- payload:
		c.overflows = 0
		return
	default:
	}

	select {
	case <-c.outbox:
	default:
	}
	select {
	case c.outbox <- payload:
	default:
	}
	c.overflows++
	metrics.HubQueueOverflowsTotal.Inc()
	if c.overflows >= c.maxOverflows {
		slog.Warn("disconnecting slow websocket client after repeated queue overflow", "connection_id", c.id)
		metrics.HubClientsDisconnectedTotal.Inc()
		c.cancel()
	}
}

// writeLoop drains the outbox until the connection's context is cancelled.
// It is the sole goroutine that calls conn.Write, matching the teacher's
// single-writer discipline (ConnectionManager never writes concurrently to
// the same *websocket.Conn from two goroutines).
func (c *connection) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case msg := <-c.outbox:
			writeCtx, cancel := context.WithTimeout(c.ctx, c.writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (c *connection) sendJSON(v any) {
	data, err := marshal(v)
	if err != nil {
		slog.Warn("failed to marshal websocket message", "connection_id", c.id, "error", err)
		return
	}
	c.enqueue(data)
}
