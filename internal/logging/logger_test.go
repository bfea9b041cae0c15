// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got '%s'", cfg.Format)
	}
	if !cfg.Timestamp {
		t.Error("expected default timestamp to be true")
	}
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Info().Str("chat_id", "c1").Msg("message persisted")

	out := buf.String()
	if !strings.Contains(out, "message persisted") {
		t.Errorf("expected message in output, got: %s", out)
	}
	if !strings.Contains(out, `"chat_id":"c1"`) {
		t.Errorf("expected chat_id field in output, got: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"DEBUG", zerolog.DebugLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	defer Init(DefaultConfig())

	Warn().Str("user_id", "u1").Msg("presence marker expired")

	out := buf.String()
	if !strings.Contains(out, `"user_id":"u1"`) || !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("expected replaced logger to receive the entry, got: %s", out)
	}
	if Logger().GetLevel() != zerolog.TraceLevel {
		t.Errorf("Logger().GetLevel() = %v, want trace for a test logger", Logger().GetLevel())
	}
}

func TestCtx_AddsContextIDs(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Output: &buf})
	defer Init(DefaultConfig())

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithConnectionID(ctx, "conn-9")
	ctx = ContextWithCorrelationID(ctx, "corr1234")

	Ctx(ctx).Info().Msg("frame handled")

	out := buf.String()
	for _, want := range []string{`"request_id":"req-1"`, `"connection_id":"conn-9"`, `"correlation_id":"corr1234"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output, got: %s", want, out)
		}
	}
}

func TestContextAccessors_Empty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if RequestIDFromContext(ctx) != "" || CorrelationIDFromContext(ctx) != "" || ConnectionIDFromContext(ctx) != "" {
		t.Error("expected empty ids from a bare context")
	}
	if got := len(GenerateCorrelationID()); got != 8 {
		t.Errorf("expected 8 character correlation id, got %d", got)
	}
}

func TestSlogHandler(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Output: &buf})
	defer Init(DefaultConfig())

	logger := slog.New(NewSlogHandlerWithLogger(NewTestLogger(&buf))).
		WithGroup("supervisor").
		With("service", "registry")
	logger.Warn("service restarted", "attempt", 3, "cause", errors.New("boom"))

	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"supervisor.service":"registry"`, `"supervisor.attempt":3`, `"boom"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output, got: %s", want, out)
		}
	}
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   func(string) string
		in   string
		want string
	}{
		{"empty token", SanitizeToken, "", ""},
		{"short token", SanitizeToken, "abc", "***"},
		{"long token", SanitizeToken, "eyJhbGciOiJIUzI1NiJ9.e30.abcd", "eyJh...abcd"},
		{"short user", SanitizeUserID, "u1", "***"},
		{"long user", SanitizeUserID, "user-12345678", "user...5678"},
		{"secret error", SanitizeError, "invalid bearer header", "authentication error"},
		{"plain error", SanitizeError, "token expired", "token expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.fn(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
