// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package config loads Wayfarer configuration.
//
// Loading order (Koanf v2, later wins):
//  1. Defaults built into defaultConfig
//  2. Optional YAML file (CONFIG_PATH, then DefaultConfigPaths)
//  3. Environment variables mapped in envTransformFunc
//
// Config is immutable after Load and safe for concurrent reads.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Presence  PresenceConfig  `koanf:"presence"`
	WebSocket WebSocketConfig `koanf:"websocket"`
	Security  SecurityConfig  `koanf:"security"`
	Directory DirectoryConfig `koanf:"directory"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures the DuckDB store holding chats, messages,
// receipts and notifications.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// EffectiveThreads resolves Threads=0 to the CPU count.
func (d DatabaseConfig) EffectiveThreads() int {
	if d.Threads <= 0 {
		return runtime.NumCPU()
	}
	return d.Threads
}

// PresenceConfig configures the TTL store behind presence and typing state.
type PresenceConfig struct {
	Backend    string        `koanf:"backend"` // badger, memory
	Path       string        `koanf:"path"`
	InMemory   bool          `koanf:"in_memory"`
	TTL        time.Duration `koanf:"ttl"`
	TypingTTL  time.Duration `koanf:"typing_ttl"`
	GCInterval time.Duration `koanf:"gc_interval"`
}

// WebSocketConfig configures the gateway transport.
type WebSocketConfig struct {
	PingInterval   time.Duration `koanf:"ping_interval"`
	PongWait       time.Duration `koanf:"pong_wait"`
	WriteWait      time.Duration `koanf:"write_wait"`
	MaxMessageSize int64         `koanf:"max_message_size"`
	SendBuffer     int           `koanf:"send_buffer"`
	FrameRate      float64       `koanf:"frame_rate"` // inbound frames per second per connection
	FrameBurst     int           `koanf:"frame_burst"`
}

// SecurityConfig configures token verification, authorization and the
// HTTP rate limiter.
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"` // jwt, none
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	DefaultRole       string        `koanf:"default_role"`
	PolicyPath        string        `koanf:"policy_path"` // empty = embedded Casbin policy
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// DirectoryConfig configures where user existence and activity are looked up.
type DirectoryConfig struct {
	Backend  string        `koanf:"backend"` // duckdb, http
	BaseURL  string        `koanf:"base_url"`
	APIKey   string        `koanf:"api_key"`
	Timeout  time.Duration `koanf:"timeout"`
	CacheTTL time.Duration `koanf:"cache_ttl"` // 0 disables caching
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load is the entry point used by main.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
