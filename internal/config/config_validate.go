// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks that required configuration is present and within bounds.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateDatabase,
		c.validatePresence,
		c.validateWebSocket,
		c.validateSecurity,
		c.validateDirectory,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be >= 0")
	}
	return nil
}

func (c *Config) validatePresence() error {
	switch c.Presence.Backend {
	case "badger":
		if c.Presence.Path == "" && !c.Presence.InMemory {
			return fmt.Errorf("PRESENCE_PATH is required when PRESENCE_BACKEND=badger and PRESENCE_IN_MEMORY=false")
		}
	case "memory":
	default:
		return fmt.Errorf("PRESENCE_BACKEND must be one of: badger, memory")
	}

	// badger expiry has one second resolution
	if c.Presence.TTL < time.Second {
		return fmt.Errorf("PRESENCE_TTL must be at least 1s")
	}
	if c.Presence.TypingTTL < time.Second {
		return fmt.Errorf("TYPING_TTL must be at least 1s")
	}
	return nil
}

func (c *Config) validateWebSocket() error {
	ws := c.WebSocket
	if ws.PongWait <= 0 || ws.WriteWait <= 0 {
		return fmt.Errorf("WS_PONG_WAIT and WS_WRITE_WAIT must be positive")
	}
	if ws.PingInterval <= 0 || ws.PingInterval >= ws.PongWait {
		return fmt.Errorf("WS_PING_INTERVAL must be positive and shorter than WS_PONG_WAIT")
	}
	if ws.MaxMessageSize < 512 {
		return fmt.Errorf("WS_MAX_MESSAGE_SIZE must be at least 512 bytes")
	}
	if ws.SendBuffer < 1 {
		return fmt.Errorf("WS_SEND_BUFFER must be at least 1")
	}
	if ws.FrameRate <= 0 || ws.FrameBurst < 1 {
		return fmt.Errorf("WS_FRAME_RATE must be positive and WS_FRAME_BURST at least 1")
	}
	return nil
}

const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateSecurity() error {
	switch c.Security.AuthMode {
	case "jwt":
		if err := c.validateJWTSecret(); err != nil {
			return err
		}
	case "none":
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE=none is not allowed when ENVIRONMENT=production")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be one of: jwt, none")
	}

	if c.Security.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive")
	}
	if c.Security.DefaultRole == "" {
		return fmt.Errorf("DEFAULT_ROLE is required")
	}

	if c.hasWildcardCORS() && c.IsProduction() && c.Security.AuthMode != "none" {
		return fmt.Errorf("CORS_ORIGINS=* is not allowed in production with authentication enabled; set explicit origins")
	}

	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateJWTSecret() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_MODE is jwt")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters for security")
	}
	if containsPlaceholder(c.Security.JWTSecret) {
		return fmt.Errorf("JWT_SECRET contains a placeholder value - generate a secure secret with: openssl rand -base64 32")
	}
	return nil
}

func (c *Config) validateDirectory() error {
	switch c.Directory.Backend {
	case "duckdb":
	case "http":
		if err := validateHTTPURL(c.Directory.BaseURL, "DIRECTORY_URL"); err != nil {
			return err
		}
		if c.Directory.Timeout <= 0 {
			return fmt.Errorf("DIRECTORY_TIMEOUT must be positive")
		}
	default:
		return fmt.Errorf("DIRECTORY_BACKEND must be one of: duckdb, http")
	}
	if c.Directory.CacheTTL < 0 {
		return fmt.Errorf("DIRECTORY_CACHE_TTL must be >= 0")
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true, "disabled": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error, fatal, panic, disabled")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS reports a wildcard origin list with authentication on.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.Security.AuthMode != "none" && c.hasWildcardCORS()
}

// IsProduction reports ENVIRONMENT=production (or prod).
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

var placeholderMarkers = []string{"changeme", "change-me", "your-secret", "replace-me", "example"}

func containsPlaceholder(value string) bool {
	lower := strings.ToLower(value)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// validateHTTPURL requires an http(s) base URL with a host and no query.
func validateHTTPURL(rawURL, fieldName string) error {
	if rawURL == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if parsed.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters", fieldName)
	}
	return nil
}
