package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"tumorboard/pkg/types"
)

// Connection wraps a viewer's WebSocket with a single-writer pump.
// ARCHITECTURAL DISCOVERY: WebSocket writes must be serialized - the fan-out
// pump, the ping loop, and direct replies from the read loop all write to
// the same socket, so everything funnels through one goroutine
type Connection struct {
	conn      *websocket.Conn
	writeCh   chan []byte
	userID    string
	roomID    string
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	writeWait time.Duration
	mu        sync.RWMutex
}

// NewConnection creates a connection wrapper and starts its write pump.
func NewConnection(conn *websocket.Conn, writeWait time.Duration) *Connection {
	if writeWait <= 0 {
		writeWait = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		conn:      conn,
		writeCh:   make(chan []byte, 100), // FUNCTIONAL DISCOVERY: buffer absorbs cursor bursts
		ctx:       ctx,
		cancel:    cancel,
		writeWait: writeWait,
	}

	go c.writeLoop()
	return c
}

// writeLoop is the single writer goroutine for this socket.
func (c *Connection) writeLoop() {
	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// WriteJSON queues v for delivery on the socket.
func (c *Connection) WriteJSON(v interface{}) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	data, err := json.Marshal(v)
	if err != nil {
		return ErrInvalidJSON
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-time.After(c.writeWait):
		return ErrWriteTimeout
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// ReadMessage blocks for the next client message, honoring readWait.
func (c *Connection) ReadMessage(readWait time.Duration) (*types.Message, error) {
	if readWait > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(readWait)); err != nil {
			return nil, err
		}
	}
	var msg types.Message
	if err := c.conn.ReadJSON(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Close tears down the socket and stops the write pump.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// SetCredentials records the identity established at upgrade time.
// TECHNICAL DISCOVERY: Set immediately after validation, before
// registration, so registry lookups never observe a half-initialized
// connection
func (c *Connection) SetCredentials(userID, roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.roomID = roomID
}

// GetUserID returns the authenticated user.
func (c *Connection) GetUserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// GetRoomID returns the room (case) this connection reviews.
func (c *Connection) GetRoomID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}
