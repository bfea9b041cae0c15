// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package auth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfarer/internal/config"
	"github.com/tomtom215/wayfarer/internal/logging"
)

type contextKey string

// ClaimsContextKey is the request context key holding *Claims.
const ClaimsContextKey contextKey = "claims"

// AuthModeNone disables signature checks for local development.
const AuthModeNone = "none"

var (
	// ErrMissingToken is returned when a request carries no bearer token.
	ErrMissingToken = errors.New("unauthorized: missing token")

	// ErrInvalidAuthHeader is returned for an Authorization header that is not "Bearer <token>".
	ErrInvalidAuthHeader = errors.New("unauthorized: invalid authorization header")
)

// Verifier turns a bearer token into claims.
type Verifier interface {
	ValidateToken(token string) (*Claims, error)
}

// DevVerifier accepts any non-empty token and uses it verbatim as the user
// id. It backs auth_mode=none and must never run in production.
type DevVerifier struct {
	DefaultRole string
}

// ValidateToken implements Verifier.
func (v DevVerifier) ValidateToken(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	claims := &Claims{UserID: token, Username: token}
	if v.DefaultRole != "" {
		claims.Roles = []string{v.DefaultRole}
	}
	return claims, nil
}

// NewVerifier returns the verifier selected by cfg.AuthMode.
func NewVerifier(cfg *config.SecurityConfig) (Verifier, error) {
	if cfg.AuthMode == AuthModeNone {
		logging.Warn().Msg("Authentication disabled: bearer tokens are taken as user ids")
		return DevVerifier{DefaultRole: cfg.DefaultRole}, nil
	}
	return NewJWTManager(cfg)
}

// Middleware authenticates HTTP requests with a bearer token.
type Middleware struct {
	verifier Verifier
	security *logging.SecurityLogger
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(verifier Verifier, security *logging.SecurityLogger) *Middleware {
	if security == nil {
		security = logging.NewSecurityLogger()
	}
	return &Middleware{verifier: verifier, security: security}
}

// Authenticate rejects requests without valid credentials with 401 and
// stores the claims in the request context otherwise.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := BearerToken(r)
		if err != nil {
			m.reject(w, r, err)
			return
		}

		claims, err := m.verifier.ValidateToken(token)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Token validation failed")
			m.reject(w, r, errors.New("unauthorized: invalid token"))
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	m.security.LogRequestRejected(r.URL.Path, ClientIP(r), err.Error())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	body := map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"code":       "UNAUTHORIZED",
			"message":    err.Error(),
			"request_id": logging.RequestIDFromContext(r.Context()),
		},
	}
	if encodeErr := json.NewEncoder(w).Encode(body); encodeErr != nil {
		logging.Error().Err(encodeErr).Msg("Failed to encode unauthorized response")
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", ErrInvalidAuthHeader
	}

	return strings.TrimSpace(parts[1]), nil
}

// SocketToken extracts the token of a WebSocket upgrade request: the
// "token" query parameter first, since browsers cannot set headers on
// upgrades, then the Authorization header.
func SocketToken(r *http.Request) (string, error) {
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return BearerToken(r)
}

// ContextWithClaims returns ctx carrying claims.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsContextKey, claims)
}

// ClaimsFromContext returns the claims stored by Authenticate.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return claims, ok && claims != nil
}

// ClientIP returns the remote host of r without the port. chi's RealIP
// middleware has already rewritten RemoteAddr when a proxy header is present.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
