package gateway

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/flawiddsouza/GameLiftLocal/internal/fleet"
	"github.com/gorilla/websocket"
)

// clientConn is the fleet.Sender for one websocket. Send only enqueues;
// writePump is the single writer.
type clientConn struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func newClientConn(conn *websocket.Conn) *clientConn {
	return &clientConn{conn: conn, send: make(chan []byte, sendBufferSize)}
}

func (c *clientConn) Send(msg any) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal outbound message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fleet.ErrDisconnected
	}
	select {
	case c.send <- raw:
		return nil
	default:
		// The peer stopped reading. Drop it; the read loop then unregisters it.
		c.closeLocked()
		if c.conn != nil {
			_ = c.conn.Close()
		}
		return ErrSendBufferFull
	}
}

func (c *clientConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *clientConn) closeLocked() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *clientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
