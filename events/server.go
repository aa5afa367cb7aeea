package events

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Keepalive/buffer tuning copied from the teacher's api/websocket.go;
// these constants have no domain dependency, only on websocket RTTs.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client wraps one websocket connection subscribed to a Hub.
type client struct {
	conn *websocket.Conn
	send <-chan Event
	stop func()
}

// ServeWebSocket upgrades an HTTP request to a websocket connection and
// streams every Event the hub publishes to it until the connection
// closes, mirroring the teacher's handleWebSocket/readPump/writePump
// trio with the subscription-request negotiation dropped (there is
// only one event stream here, not a per-session menu of channels to
// opt into).
func (h *Hub) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("events: websocket upgrade failed: %v", err)
		return
	}

	ch, unsubscribe := h.Subscribe()
	c := &client{conn: conn, send: ch, stop: unsubscribe}

	go c.readPump()
	go c.writePump()
}

// readPump drains and discards client frames, existing only to notice
// the connection closing (and to answer pong frames), matching the
// teacher's pattern of a read goroutine dedicated to liveness.
func (c *client) readPump() {
	defer func() {
		c.stop()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump serializes Hub events to the connection as JSON text
// frames and sends periodic pings to keep the connection alive.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
