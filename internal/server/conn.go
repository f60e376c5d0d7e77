package server

import (
	"sync"

	"github.com/gorilla/websocket"
)

// safeConn serializes writes to a WebSocket connection. The broadcast loop
// and the per-connection reader may both write (snapshots and control
// replies), and gorilla/websocket allows at most one concurrent writer.
type safeConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func newSafeConn(conn *websocket.Conn) *safeConn {
	return &safeConn{conn: conn}
}

func (c *safeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

func (c *safeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *safeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

// ReadMessage is not synchronized; only the connection's reader goroutine
// may call it.
func (c *safeConn) ReadMessage() (int, []byte, error) {
	return c.conn.ReadMessage()
}
