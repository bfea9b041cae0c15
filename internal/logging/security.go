// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package logging

import (
	"strings"

	"github.com/rs/zerolog"
)

// SecurityLogger records authentication outcomes of HTTP requests and socket
// upgrades. Tokens and user ids are masked before they are written.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates a security logger on the global logger.
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{logger: WithComponent("auth")}
}

// NewSecurityLoggerWithLogger creates a security logger on a custom logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{logger: logger.With().Str("component", "auth").Logger()}
}

// LogSocketAuthenticated records a socket that reached the authenticated state.
func (l *SecurityLogger) LogSocketAuthenticated(userID, connectionID, ip string) {
	l.logger.Info().
		Str("event", "socket_authenticated").
		Str("user_id", SanitizeUserID(userID)).
		Str("connection_id", connectionID).
		Str("ip", ip).
		Msg("")
}

// LogSocketRejected records a socket closed with a policy violation.
func (l *SecurityLogger) LogSocketRejected(token, ip, reason string) {
	l.logger.Warn().
		Str("event", "socket_rejected").
		Str("token", SanitizeToken(token)).
		Str("ip", ip).
		Str("reason", SanitizeError(reason)).
		Msg("")
}

// LogRequestRejected records an HTTP request without a valid bearer token.
func (l *SecurityLogger) LogRequestRejected(path, ip, reason string) {
	l.logger.Warn().
		Str("event", "request_rejected").
		Str("path", path).
		Str("ip", ip).
		Str("reason", SanitizeError(reason)).
		Msg("")
}

// SanitizeToken keeps the first and last four characters.
// "eyJhbGciOiJIUzI1NiJ9.e30.abcd" -> "eyJh...abcd"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeUserID keeps the first and last four characters of ids longer than 8.
func SanitizeUserID(userID string) string {
	if userID == "" {
		return ""
	}
	if len(userID) <= 8 {
		return "***"
	}
	return userID[:4] + "..." + userID[len(userID)-4:]
}

var sensitiveErrorWords = []string{"password", "secret", "bearer", "authorization", "cookie"}

// SanitizeError hides messages that may echo credentials and truncates the rest.
func SanitizeError(msg string) string {
	lower := strings.ToLower(msg)
	for _, word := range sensitiveErrorWords {
		if strings.Contains(lower, word) {
			return "authentication error"
		}
	}
	if len(msg) > 200 {
		return msg[:200] + "..."
	}
	return msg
}
