package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn wraps a gorilla connection with a write lock so the session event
// pump and the action reader can both send safely.
type Conn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// Wrap adopts an upgraded connection.
func Wrap(conn *websocket.Conn) *Conn {
	return &Conn{conn: conn}
}

// WriteEvent sends an event envelope with a write deadline.
func (c *Conn) WriteEvent(event Event, data interface{}) error {
	return c.writeJSON(EventPayload{Event: event, Data: data})
}

// WriteError sends a typed ErrorResponse.
func (c *Conn) WriteError(errMsg string) error {
	return c.writeJSON(ErrorResponse{Event: EventError, Error: errMsg})
}

// WritePong answers a ping.
func (c *Conn) WritePong() error {
	return c.writeJSON(PongResponse{Event: EventPong})
}

func (c *Conn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(v)
}

// ReadRequest reads and decodes one client action with a read deadline.
func (c *Conn) ReadRequest(v *RequestPayload) error {
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
	return c.conn.ReadJSON(v)
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}
