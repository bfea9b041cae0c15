// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/wayfarer/internal/auth"
	"github.com/tomtom215/wayfarer/internal/chat"
	"github.com/tomtom215/wayfarer/internal/notification"
)

// Pinger reports whether the durable store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectionCounter reports live socket totals.
type ConnectionCounter interface {
	TotalConnections() int
	UserCount() int
}

// BreakerReporter exposes a circuit breaker state for health output.
type BreakerReporter interface {
	State() string
}

// Handler serves the REST endpoints.
type Handler struct {
	chat          *chat.Messenger
	notifications *notification.Service
	db            Pinger
	connections   ConnectionCounter
	directory     BreakerReporter
	startTime     time.Time
}

// HandlerDeps groups the collaborators of a Handler. Connections and
// Directory are optional.
type HandlerDeps struct {
	Chat          *chat.Messenger
	Notifications *notification.Service
	DB            Pinger
	Connections   ConnectionCounter
	Directory     BreakerReporter
}

// NewHandler creates a handler.
func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		chat:          deps.Chat,
		notifications: deps.Notifications,
		db:            deps.DB,
		connections:   deps.Connections,
		directory:     deps.Directory,
		startTime:     time.Now(),
	}
}

// caller returns the authenticated claims. Routes behind Authenticate always
// carry them; a missing value is answered with 401.
func caller(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("authentication required")
		return nil, false
	}
	return claims, true
}
