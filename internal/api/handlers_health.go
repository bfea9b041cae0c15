// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package api

import (
	"context"
	"net/http"
	"time"
)

// healthPingTimeout bounds the database probe.
const healthPingTimeout = 2 * time.Second

// HealthStatus is the body of GET /api/v1/health.
type HealthStatus struct {
	Status            string  `json:"status"` // healthy, degraded
	DatabaseConnected bool    `json:"databaseConnected"`
	DirectoryBreaker  string  `json:"directoryBreaker,omitempty"`
	Connections       int     `json:"connections"`
	ConnectedUsers    int     `json:"connectedUsers"`
	UptimeSeconds     float64 `json:"uptimeSeconds"`
}

// Health reports store connectivity and socket totals. A degraded service
// answers 503 so load balancers stop routing to it.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	status := HealthStatus{
		Status:            "healthy",
		DatabaseConnected: h.db != nil && h.db.Ping(ctx) == nil,
		UptimeSeconds:     time.Since(h.startTime).Seconds(),
	}
	if h.connections != nil {
		status.Connections = h.connections.TotalConnections()
		status.ConnectedUsers = h.connections.UserCount()
	}
	if h.directory != nil {
		status.DirectoryBreaker = h.directory.State()
	}
	if !status.DatabaseConnected || status.DirectoryBreaker == "open" {
		status.Status = "degraded"
	}

	rw := NewResponseWriter(w, r)
	if !status.DatabaseConnected {
		rw.write(http.StatusServiceUnavailable, status, nil)
		return
	}
	rw.Success(status)
}
