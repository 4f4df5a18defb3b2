package hub

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// sendQueueSize bounds the per-subscriber outbound queue. A subscriber whose
// queue fills up is treated as dead and purged rather than blocking dispatch.
const sendQueueSize = 64

// Conn is the write side of an abstract duplex message channel to one
// subscriber. Transport adapters (websocket, test fakes) implement it and are
// responsible for bounding the time a single write may take.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Client is one registered subscriber. It is owned exclusively by the hub
// from Register until Unregister; a single writer goroutine drains the queue
// to the connection, preserving per-subscriber delivery order.
type Client struct {
	id   string
	conn Conn
	send chan Envelope
	once sync.Once
}

// ID returns the server-issued connection id.
func (c *Client) ID() string { return c.id }

// Broadcaster is the hub surface the upload pipeline depends on.
type Broadcaster interface {
	Broadcast(e Event)
	SendTo(id string, e Event)
}

// Hub tracks live subscriber connections and fans events out to them.
//
// Two locks with distinct jobs: mu guards the registry map, dispatchMu
// serializes dispatch so every subscriber observes Broadcast/SendTo calls in
// hub invocation order. Neither lock is ever held across a connection write;
// dispatch only performs non-blocking queue sends.
type Hub struct {
	log zerolog.Logger

	dispatchMu sync.Mutex
	mu         sync.RWMutex
	clients    map[string]*Client
}

var _ Broadcaster = (*Hub)(nil)

// New creates an empty hub.
func New(log zerolog.Logger) *Hub {
	return &Hub{
		log:     log.With().Str("component", "hub").Logger(),
		clients: make(map[string]*Client),
	}
}

// Register adds a subscriber for the given connection, assigns it a fresh
// connection id and queues the session-init event carrying that id.
func (h *Hub) Register(conn Conn) *Client {
	client := &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Envelope, sendQueueSize),
	}

	h.mu.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()

	go h.writePump(client)
	h.SendTo(client.id, SessionInit{SID: client.id})

	h.log.Debug().Str("connection_id", client.id).Int("total_clients", total).Msg("client registered")
	return client
}

// Unregister removes a subscriber and closes its connection.
// Safe to call multiple times; removing an absent id is a no-op.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	client, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	client.once.Do(func() { close(client.send) })
	_ = client.conn.Close()

	h.log.Debug().Str("connection_id", id).Int("total_clients", total).Msg("client unregistered")
}

// Broadcast delivers the event to every registered subscriber. Delivery is
// best effort: a subscriber with a full queue is purged, never waited on.
func (h *Hub) Broadcast(e Event) {
	h.dispatch("", e)
}

// SendTo delivers the event to one subscriber. Sending to an id that is no
// longer registered is a logged no-op.
func (h *Hub) SendTo(id string, e Event) {
	h.dispatch(id, e)
}

// dispatch enqueues the event for the target subscriber, or for all of them
// when target is empty. dispatchMu gives dispatch calls a total order, so a
// single subscriber's queue sees events in that order. Holding mu.RLock while
// enqueueing keeps Unregister from closing a queue mid-send.
func (h *Hub) dispatch(target string, e Event) {
	env := wrap(e)
	var dead []string

	h.dispatchMu.Lock()
	h.mu.RLock()
	if target != "" {
		client, ok := h.clients[target]
		if !ok {
			h.mu.RUnlock()
			h.dispatchMu.Unlock()
			h.log.Debug().Str("connection_id", target).Str("event", e.EventType()).Msg("send to unknown connection dropped")
			return
		}
		if !enqueue(client, env) {
			dead = append(dead, client.id)
		}
	} else {
		for _, client := range h.clients {
			if !enqueue(client, env) {
				dead = append(dead, client.id)
			}
		}
	}
	h.mu.RUnlock()
	h.dispatchMu.Unlock()

	for _, id := range dead {
		h.log.Warn().Str("connection_id", id).Str("event", e.EventType()).Msg("subscriber queue full, dropping connection")
		h.Unregister(id)
	}
}

// enqueue performs a non-blocking queue send.
func enqueue(c *Client, env Envelope) bool {
	select {
	case c.send <- env:
		return true
	default:
		return false
	}
}

// writePump drains one subscriber's queue to its connection. A write error
// means the channel is dead; the subscriber is purged and the pump exits.
func (h *Hub) writePump(c *Client) {
	for env := range c.send {
		if err := c.conn.WriteJSON(env); err != nil {
			h.log.Debug().Str("connection_id", c.id).Err(err).Msg("write failed, dropping connection")
			h.Unregister(c.id)
			return
		}
	}
}

// ClientCount returns the number of registered subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ClientIDs returns the ids of all registered subscribers.
func (h *Hub) ClientIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// Close unregisters every subscriber. Used on shutdown.
func (h *Hub) Close() {
	for _, id := range h.ClientIDs() {
		h.Unregister(id)
	}
}
