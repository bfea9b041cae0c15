// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/wayfarer/internal/logging"
	"github.com/tomtom215/wayfarer/internal/metrics"
)

// ShutdownReason identifies why the registry sweep stopped.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

const defaultPingInterval = 54 * time.Second

// Sender pushes frames to connected users. The chat, notification and
// presence services depend on this rather than on *Registry so that a
// cross-instance implementation can be swapped in.
type Sender interface {
	// SendToUser reports whether at least one of the user's connections accepted msg.
	SendToUser(userID string, msg Message) bool
	// SendToUsers returns how many of userIDs had at least one accepting connection.
	SendToUsers(userIDs []string, msg Message) int
	// Broadcast returns how many connections accepted msg.
	Broadcast(msg Message) int
}

// Registry maps users to their live connections in this process.
type Registry struct {
	mu        sync.RWMutex
	users     map[string]map[string]*Client
	onOffline []func(userID string)

	pingInterval time.Duration
}

var _ Sender = (*Registry)(nil)

// NewRegistry creates an empty registry. pingInterval <= 0 selects 54s.
func NewRegistry(pingInterval time.Duration) *Registry {
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	return &Registry{
		users:        make(map[string]map[string]*Client),
		pingInterval: pingInterval,
	}
}

// OnUserOffline registers fn to run after a user's last connection is
// removed. Callbacks run on the removing goroutine, outside the lock.
func (r *Registry) OnUserOffline(fn func(userID string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onOffline = append(r.onOffline, fn)
}

// AddConnection registers c under userID.
func (r *Registry) AddConnection(userID string, c *Client) {
	r.mu.Lock()
	conns, ok := r.users[userID]
	if !ok {
		conns = make(map[string]*Client)
		r.users[userID] = conns
		metrics.WSConnectedUsers.Inc()
	}
	if _, dup := conns[c.id]; !dup {
		conns[c.id] = c
		metrics.WSConnections.Inc()
	}
	total := len(conns)
	r.mu.Unlock()

	logging.Debug().
		Str("user_id", userID).
		Str("connection_id", c.id).
		Int("user_connections", total).
		Msg("websocket connection registered")
}

// RemoveConnection drops one connection and closes it. It reports whether
// this was the user's last connection, in which case the offline callbacks
// have run by the time it returns. Unknown ids are a no-op.
func (r *Registry) RemoveConnection(userID, connectionID string) bool {
	r.mu.Lock()
	conns, ok := r.users[userID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	c, ok := conns[connectionID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(conns, connectionID)
	metrics.WSConnections.Dec()

	last := len(conns) == 0
	if last {
		delete(r.users, userID)
		metrics.WSConnectedUsers.Dec()
	}
	callbacks := r.onOffline
	r.mu.Unlock()

	c.close()

	logging.Debug().
		Str("user_id", userID).
		Str("connection_id", connectionID).
		Bool("last", last).
		Msg("websocket connection removed")

	if last {
		for _, fn := range callbacks {
			fn(userID)
		}
	}
	return last
}

// IsUserConnected reports whether userID has any live connection here.
func (r *Registry) IsUserConnected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID]) > 0
}

// AnyConnectionID returns the id of one of userID's live connections.
func (r *Registry) AnyConnectionID(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id := range r.users[userID] {
		return id, true
	}
	return "", false
}

// ConnectionCount returns how many connections userID has.
func (r *Registry) ConnectionCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID])
}

// UserCount returns the number of connected users.
func (r *Registry) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// TotalConnections returns the number of connections across all users.
func (r *Registry) TotalConnections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, conns := range r.users {
		n += len(conns)
	}
	return n
}

// SendToUser implements Sender.
func (r *Registry) SendToUser(userID string, msg Message) bool {
	data, ok := marshalFrame(msg)
	if !ok {
		return false
	}
	return r.deliver(userID, msg.Type, data)
}

// SendToUsers implements Sender. The frame is encoded once.
func (r *Registry) SendToUsers(userIDs []string, msg Message) int {
	if len(userIDs) == 0 {
		return 0
	}
	data, ok := marshalFrame(msg)
	if !ok {
		return 0
	}
	delivered := 0
	for _, userID := range userIDs {
		if r.deliver(userID, msg.Type, data) {
			delivered++
		}
	}
	return delivered
}

// Broadcast implements Sender.
func (r *Registry) Broadcast(msg Message) int {
	data, ok := marshalFrame(msg)
	if !ok {
		return 0
	}
	accepted := 0
	for _, c := range r.snapshot() {
		if r.enqueue(c, msg.Type, data) {
			accepted++
		}
	}
	return accepted
}

func (r *Registry) deliver(userID, msgType string, data []byte) bool {
	r.mu.RLock()
	conns := make([]*Client, 0, len(r.users[userID]))
	for _, c := range r.users[userID] {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	accepted := false
	for _, c := range conns {
		if r.enqueue(c, msgType, data) {
			accepted = true
		}
	}
	return accepted
}

func (r *Registry) enqueue(c *Client, msgType string, data []byte) bool {
	if !c.enqueue(data) {
		metrics.WSDroppedSends.Inc()
		logging.Debug().
			Str("user_id", c.userID).
			Str("connection_id", c.id).
			Str("type", msgType).
			Msg("websocket send buffer full, frame dropped")
		return false
	}
	metrics.WSFramesSent.WithLabelValues(msgType).Inc()
	return true
}

// sendTo enqueues msg on a single connection.
func (r *Registry) sendTo(c *Client, msg Message) bool {
	data, ok := marshalFrame(msg)
	if !ok {
		return false
	}
	return r.enqueue(c, msg.Type, data)
}

// snapshot returns every connection ordered by id.
func (r *Registry) snapshot() []*Client {
	r.mu.RLock()
	clients := make([]*Client, 0, len(r.users))
	for _, conns := range r.users {
		for _, c := range conns {
			clients = append(clients, c)
		}
	}
	r.mu.RUnlock()

	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// RunWithContext pings every connection each ping interval until ctx ends,
// then closes all connections. Designed for suture supervision.
func (r *Registry) RunWithContext(ctx context.Context) error {
	ticker := time.NewTicker(r.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logGracefulShutdown(ctx)
			return ctx.Err()
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Registry) sweep() {
	clients := r.snapshot()
	for _, c := range clients {
		c.signalPing()
	}
	logging.Debug().Int("connections", len(clients)).Msg("websocket keepalive sweep")
}

// logGracefulShutdown closes every client and logs the shutdown. ctx.Err()
// is not logged as an error because cancellation is the expected path.
func (r *Registry) logGracefulShutdown(ctx context.Context) {
	clients := r.snapshot()
	for _, c := range clients {
		c.close()
	}

	logging.Info().
		Str("component", "websocket-registry").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", len(clients)).
		Msg("websocket registry stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

func marshalFrame(msg Message) ([]byte, bool) {
	data, err := MarshalMessage(msg)
	if err != nil {
		logging.Error().Err(err).Str("type", msg.Type).Msg("failed to encode websocket frame")
		metrics.WSErrors.WithLabelValues("encode").Inc()
		return nil, false
	}
	return data, true
}
