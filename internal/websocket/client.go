// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/wayfarer/internal/config"
	"github.com/tomtom215/wayfarer/internal/logging"
)

const (
	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 64 * 1024
	defaultSendBuffer     = 256
)

// Client is one authenticated socket. Only writePump writes to conn; every
// other goroutine hands frames over through send.
type Client struct {
	id      string
	userID  string
	conn    *websocket.Conn
	send    chan []byte
	ping    chan struct{}
	limiter *rate.Limiter

	writeWait      time.Duration
	pongWait       time.Duration
	maxMessageSize int64

	mu     sync.Mutex
	closed bool
}

// NewClient creates a Client with a fresh connection id.
func NewClient(userID string, conn *websocket.Conn, cfg *config.WebSocketConfig) *Client {
	c := &Client{
		id:             uuid.New().String(),
		userID:         userID,
		conn:           conn,
		ping:           make(chan struct{}, 1),
		writeWait:      defaultWriteWait,
		pongWait:       defaultPongWait,
		maxMessageSize: defaultMaxMessageSize,
		limiter:        rate.NewLimiter(rate.Inf, 0),
	}

	buffer := defaultSendBuffer
	if cfg != nil {
		if cfg.WriteWait > 0 {
			c.writeWait = cfg.WriteWait
		}
		if cfg.PongWait > 0 {
			c.pongWait = cfg.PongWait
		}
		if cfg.MaxMessageSize > 0 {
			c.maxMessageSize = cfg.MaxMessageSize
		}
		if cfg.SendBuffer > 0 {
			buffer = cfg.SendBuffer
		}
		if cfg.FrameRate > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(cfg.FrameRate), max(cfg.FrameBurst, 1))
		}
	}
	c.send = make(chan []byte, buffer)
	return c
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// UserID returns the authenticated user.
func (c *Client) UserID() string {
	return c.userID
}

// enqueue hands data to the write goroutine without blocking. It reports
// false when the buffer is full or the client is closed.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// signalPing asks writePump for a transport ping. A ping already pending is enough.
func (c *Client) signalPing() {
	select {
	case c.ping <- struct{}{}:
	default:
	}
}

// close stops writePump. Safe to call more than once.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// readPump delivers every text frame to handle, one at a time, until the
// peer goes away or stops answering pings.
func (c *Client) readPump(handle func(data []byte)) {
	c.conn.SetReadLimit(c.maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				logging.Debug().Err(err).Str("connection_id", c.id).Msg("unexpected websocket close error")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		handle(data)
	}
}

// writePump drains send and answers keepalive signals. It owns the socket
// and closes it on return.
func (c *Client) writePump() {
	defer func() {
		_ = c.conn.Close() // Explicitly ignore error - best-effort cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				// The registry or the read side closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logging.Debug().Err(err).Str("connection_id", c.id).Msg("failed to write websocket frame")
				return
			}

		case <-c.ping:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
