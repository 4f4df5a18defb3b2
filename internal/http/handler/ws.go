package handler

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"filerelay/internal/hub"
)

// writeWait bounds a single push-channel write. A write that misses the
// deadline errors out and the hub drops the connection.
const writeWait = 10 * time.Second

// inboundMessage is the client→server frame shape on the push channel.
type inboundMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// wsConn adapts a websocket connection to the hub's Conn interface.
// The mutex serializes writes; gorilla-style websocket connections allow at
// most one concurrent writer.
type wsConn struct {
	mu sync.Mutex
	c  *websocket.Conn
}

func (w *wsConn) WriteJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(writeWait))
	return w.c.WriteJSON(v)
}

func (w *wsConn) Close() error {
	return w.c.Close()
}

// WebSocketUpgrade rejects plain HTTP requests on the push-channel route.
func WebSocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// ServeWS handles GET /ws. The hub owns the subscriber from registration
// (which pushes the session_id event) until this read loop exits; inbound
// chat frames are broadcast to all subscribers with the sender id echoed.
func ServeWS(h *hub.Hub) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		client := h.Register(&wsConn{c: c})
		defer h.Unregister(client.ID())

		for {
			var in inboundMessage
			if err := c.ReadJSON(&in); err != nil {
				return
			}
			if in.Type == "message" {
				h.Broadcast(hub.ChatMessage{Text: in.Text, SID: client.ID()})
			}
		}
	})
}
