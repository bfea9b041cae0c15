// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package websocket

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Inbound
		wantErr bool
	}{
		{"heartbeat", `{"type":"HEARTBEAT"}`, HeartbeatFrame{}, false},
		{"heartbeat ignores payload", `{"type":"HEARTBEAT","payload":{"x":1}}`, HeartbeatFrame{}, false},
		{
			name:  "chat message",
			input: `{"type":"CHAT_MESSAGE","payload":{"chatId":"c1","content":"Meet at the pier","mentionedUsers":["u2"]}}`,
			want:  SendFrame{ChatID: "c1", Content: "Meet at the pier", MentionedUsers: []string{"u2"}},
		},
		{"typing", `{"type":"CHAT_TYPING","payload":{"chatId":"c1"}}`, TypingFrame{ChatID: "c1"}, false},
		{"stop typing", `{"type":"CHAT_STOP_TYPING","payload":{"chatId":"c1"}}`, StopTypingFrame{ChatID: "c1"}, false},
		{"read all", `{"type":"CHAT_READ","payload":{"chatId":"c1"}}`, ReadFrame{ChatID: "c1"}, false},
		{"read up to", `{"type":"CHAT_READ","payload":{"chatId":"c1","messageId":"m9"}}`, ReadFrame{ChatID: "c1", MessageID: "m9"}, false},
		{"unknown type", `{"type":"BOOKING_UPDATE","payload":{}}`, UnknownFrame{Type: "BOOKING_UPDATE"}, false},
		{"not json", `hello`, nil, true},
		{"array", `[1,2]`, nil, true},
		{"missing type", `{"payload":{"chatId":"c1"}}`, nil, true},
		{"missing payload", `{"type":"CHAT_TYPING"}`, nil, true},
		{"null payload", `{"type":"CHAT_READ","payload":null}`, nil, true},
		{"missing chat id", `{"type":"CHAT_MESSAGE","payload":{"content":"hi"}}`, nil, true},
		{"wrong payload type", `{"type":"CHAT_MESSAGE","payload":{"chatId":5}}`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeInbound([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("DecodeInbound() = %#v, want error", got)
				}
				if !errors.Is(err, ErrMalformedFrame) {
					t.Errorf("error %v does not wrap ErrMalformedFrame", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeInbound() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeInbound() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestOutboundFrames(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"connected", ConnectedEvent("conn-1", "u1"), `{"type":"CONNECTED","payload":{"connectionId":"conn-1","userId":"u1"}}`},
		{"error", ErrorEvent("FORBIDDEN", "not a participant"), `{"type":"ERROR","payload":{"message":"not a participant","code":"FORBIDDEN"}}`},
		{"typing with name", TypingEvent("c1", "u1", "Ana"), `{"type":"CHAT_TYPING","payload":{"chatId":"c1","userId":"u1","userName":"Ana"}}`},
		{"typing without name", TypingEvent("c1", "u1", ""), `{"type":"CHAT_TYPING","payload":{"chatId":"c1","userId":"u1"}}`},
		{"stop typing", StopTypingEvent("c1", "u1"), `{"type":"CHAT_STOP_TYPING","payload":{"chatId":"c1","userId":"u1"}}`},
		{"read", ReadEvent("c1", "u1", 3, "m1"), `{"type":"CHAT_READ","payload":{"chatId":"c1","userId":"u1","markedCount":3,"messageId":"m1"}}`},
		{"read all", ReadEvent("c1", "u1", 2, ""), `{"type":"CHAT_READ","payload":{"chatId":"c1","userId":"u1","markedCount":2}}`},
		{"left", ParticipantLeftEvent("c1", "u1", "Ana"), `{"type":"CHAT_PARTICIPANT_LEFT","payload":{"chatId":"c1","userId":"u1","userName":"Ana"}}`},
		{"offline", PresenceEvent(false, "u1"), `{"type":"PRESENCE_OFFLINE","payload":{"userId":"u1"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalMessage(tt.msg)
			if err != nil {
				t.Fatalf("MarshalMessage() error = %v", err)
			}
			if got := strings.TrimSpace(string(data)); got != tt.want {
				t.Errorf("MarshalMessage() = %s, want %s", got, tt.want)
			}
		})
	}
}
