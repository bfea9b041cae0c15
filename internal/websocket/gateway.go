// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package websocket

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/wayfarer/internal/auth"
	"github.com/tomtom215/wayfarer/internal/config"
	"github.com/tomtom215/wayfarer/internal/logging"
	"github.com/tomtom215/wayfarer/internal/metrics"
	"github.com/tomtom215/wayfarer/internal/models"
)

const offlineTimeout = 5 * time.Second

// PresenceTracker is the presence side of the connection lifecycle.
type PresenceTracker interface {
	Connect(ctx context.Context, userID, connectionID string) error
	Heartbeat(ctx context.Context, userID, connectionID string) error
	Disconnect(ctx context.Context, userID string) error
}

// ChatHandler executes chat frames. Implementations broadcast results
// themselves; the gateway only reports errors.
type ChatHandler interface {
	Send(ctx context.Context, userID, chatID, content string, mentionedUsers []string) (*models.ChatMessage, error)
	MarkRead(ctx context.Context, userID, chatID, messageID string) (int, error)
}

// TypingHandler executes typing frames.
type TypingHandler interface {
	HandleTyping(ctx context.Context, userID, chatID string) error
	HandleStopTyping(ctx context.Context, userID, chatID string) error
}

// Gateway upgrades HTTP requests to authenticated sockets and dispatches
// their frames.
type Gateway struct {
	registry *Registry
	verifier auth.Verifier
	presence PresenceTracker
	chat     ChatHandler
	typing   TypingHandler

	wsCfg       config.WebSocketConfig
	corsOrigins []string
	upgrader    websocket.Upgrader
	security    *logging.SecurityLogger
	log         zerolog.Logger
	now         func() time.Time
}

// NewGateway wires the gateway and registers its offline hook on registry.
func NewGateway(registry *Registry, verifier auth.Verifier, presence PresenceTracker, chat ChatHandler, typing TypingHandler, cfg *config.Config) *Gateway {
	g := &Gateway{
		registry:    registry,
		verifier:    verifier,
		presence:    presence,
		chat:        chat,
		typing:      typing,
		wsCfg:       cfg.WebSocket,
		corsOrigins: cfg.Security.CORSOrigins,
		security:    logging.NewSecurityLogger(),
		log:         logging.WithComponent("gateway"),
		now:         time.Now,
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      g.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	registry.OnUserOffline(g.userOffline)
	return g
}

// checkOrigin accepts requests without an Origin header; the native
// mobile apps never send one and the token check still applies.
func (g *Gateway) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range g.corsOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	g.log.Warn().Str("origin", logging.SanitizeError(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ip := auth.ClientIP(r)
	token, tokenErr := auth.SocketToken(r)

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		g.log.Debug().Err(err).Str("ip", ip).Msg("WebSocket upgrade failed")
		metrics.WSErrors.WithLabelValues("upgrade").Inc()
		return
	}

	claims, err := g.authenticate(token, tokenErr)
	if err != nil {
		g.reject(conn, token, ip, err)
		return
	}

	client := NewClient(claims.UserID, conn, &g.wsCfg)
	ctx, cancel := context.WithCancel(logging.ContextWithConnectionID(context.Background(), client.id))

	g.registry.AddConnection(claims.UserID, client)
	g.security.LogSocketAuthenticated(claims.UserID, client.id, ip)

	go client.writePump()

	if err := g.presence.Connect(ctx, claims.UserID, client.id); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("user_id", claims.UserID).Msg("Failed to mark user online")
	}
	g.registry.sendTo(client, ConnectedEvent(client.id, claims.UserID))

	go func() {
		defer cancel()
		client.readPump(func(data []byte) {
			g.handleFrame(ctx, client, data)
		})
		g.registry.RemoveConnection(claims.UserID, client.id)
	}()
}

func (g *Gateway) authenticate(token string, tokenErr error) (*auth.Claims, error) {
	if tokenErr != nil {
		return nil, tokenErr
	}
	return g.verifier.ValidateToken(token)
}

// reject closes an upgraded socket with 1008 before it reaches OPEN.
func (g *Gateway) reject(conn *websocket.Conn, token, ip string, reason error) {
	g.security.LogSocketRejected(token, ip, reason.Error())
	metrics.WSErrors.WithLabelValues("auth").Inc()

	deadline := time.Now().Add(g.writeWait())
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed")
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		g.log.Debug().Err(err).Msg("Failed to write policy violation close frame")
	}
	_ = conn.Close() // Explicitly ignore error - best-effort cleanup
}

func (g *Gateway) writeWait() time.Duration {
	if g.wsCfg.WriteWait > 0 {
		return g.wsCfg.WriteWait
	}
	return defaultWriteWait
}

// userOffline runs after the registry removed a user's last connection.
// A reconnect racing the removal wins, including one that lands while
// Disconnect is clearing the marker.
func (g *Gateway) userOffline(userID string) {
	if g.registry.IsUserConnected(userID) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), offlineTimeout)
	defer cancel()
	if err := g.presence.Disconnect(ctx, userID); err != nil {
		g.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to clear presence")
	}

	connID, ok := g.registry.AnyConnectionID(userID)
	if !ok {
		return
	}
	if err := g.presence.Connect(ctx, userID, connID); err != nil {
		g.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to restore presence after reconnect")
	}
}

// handleFrame runs one inbound frame. Errors go back to c only; the
// connection is never closed here.
func (g *Gateway) handleFrame(connCtx context.Context, c *Client, data []byte) {
	if !c.limiter.Allow() {
		metrics.WSRateLimited.Inc()
		g.registry.sendTo(c, ErrorEvent(CodeRateLimited, "too many frames, slow down"))
		return
	}

	frame, err := DecodeInbound(data)
	if err != nil {
		metrics.WSFramesReceived.WithLabelValues(unknownTypeLabel).Inc()
		logging.Ctx(connCtx).Debug().Err(err).Msg("Malformed frame")
		g.registry.sendTo(c, ErrorEvent(CodeInvalidFrame, err.Error()))
		return
	}

	ctx := logging.ContextWithNewCorrelationID(connCtx)
	userID := c.userID

	switch f := frame.(type) {
	case HeartbeatFrame:
		metrics.WSFramesReceived.WithLabelValues(TypeHeartbeat).Inc()
		if err := g.presence.Heartbeat(ctx, userID, c.id); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Failed to refresh presence")
		}
		g.registry.sendTo(c, HeartbeatAckEvent(g.now()))

	case SendFrame:
		metrics.WSFramesReceived.WithLabelValues(TypeChatMessage).Inc()
		if _, err := g.chat.Send(ctx, userID, f.ChatID, f.Content, f.MentionedUsers); err != nil {
			g.replyError(ctx, c, f.FrameType(), err)
		}

	case TypingFrame:
		metrics.WSFramesReceived.WithLabelValues(TypeChatTyping).Inc()
		if err := g.typing.HandleTyping(ctx, userID, f.ChatID); err != nil {
			g.replyError(ctx, c, f.FrameType(), err)
		}

	case StopTypingFrame:
		metrics.WSFramesReceived.WithLabelValues(TypeChatStopTyping).Inc()
		if err := g.typing.HandleStopTyping(ctx, userID, f.ChatID); err != nil {
			g.replyError(ctx, c, f.FrameType(), err)
		}

	case ReadFrame:
		metrics.WSFramesReceived.WithLabelValues(TypeChatRead).Inc()
		if _, err := g.chat.MarkRead(ctx, userID, f.ChatID, f.MessageID); err != nil {
			g.replyError(ctx, c, f.FrameType(), err)
		}

	case UnknownFrame:
		metrics.WSFramesReceived.WithLabelValues(unknownTypeLabel).Inc()
		logging.Ctx(ctx).Debug().Str("type", logging.SanitizeError(f.Type)).Msg("Ignoring unknown frame type")
	}
}

func (g *Gateway) replyError(ctx context.Context, c *Client, frameType string, err error) {
	kind := models.KindOf(err)
	event := logging.Ctx(ctx).Debug()
	if kind == models.KindInternal || errors.Is(err, context.DeadlineExceeded) {
		event = logging.Ctx(ctx).Error()
		metrics.WSErrors.WithLabelValues("handler").Inc()
	}
	event.Err(err).Str("type", frameType).Str("code", string(kind)).Msg("Frame failed")

	g.registry.sendTo(c, ErrorEvent(string(kind), models.PublicMessage(err)))
}
