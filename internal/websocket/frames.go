// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package websocket

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfarer/internal/models"
)

// Frame types. Inbound and outbound share CHAT_MESSAGE, CHAT_TYPING,
// CHAT_STOP_TYPING and CHAT_READ with different payloads per direction.
const (
	TypeHeartbeat        = "HEARTBEAT"
	TypeHeartbeatAck     = "HEARTBEAT_ACK"
	TypeConnected        = "CONNECTED"
	TypeError            = "ERROR"
	TypeChatMessage      = "CHAT_MESSAGE"
	TypeChatTyping       = "CHAT_TYPING"
	TypeChatStopTyping   = "CHAT_STOP_TYPING"
	TypeChatRead         = "CHAT_READ"
	TypeParticipantAdded = "CHAT_PARTICIPANT_ADDED"
	TypeParticipantLeft  = "CHAT_PARTICIPANT_LEFT"
	TypeNotification     = "NOTIFICATION"
	TypePresenceOnline   = "PRESENCE_ONLINE"
	TypePresenceOffline  = "PRESENCE_OFFLINE"
)

// ERROR frame codes that do not come from a domain error kind.
const (
	CodeRateLimited  = "RATE_LIMITED"
	CodeInvalidFrame = "INVALID_FRAME"
)

// unknownTypeLabel keeps client-chosen type strings out of metric labels.
const unknownTypeLabel = "UNKNOWN"

// ErrMalformedFrame wraps every inbound decoding failure.
var ErrMalformedFrame = errors.New("malformed frame")

// Message is an outbound frame.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// ConnectedPayload confirms an authenticated connection.
type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId"`
}

// ErrorPayload reports a failed inbound frame to the originating connection.
type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// HeartbeatAckPayload answers HEARTBEAT.
type HeartbeatAckPayload struct {
	Timestamp time.Time `json:"timestamp"`
}

// ChatMessagePayload carries a persisted message.
type ChatMessagePayload struct {
	Message *models.ChatMessage `json:"message"`
}

// TypingPayload is sent for CHAT_TYPING and CHAT_STOP_TYPING.
type TypingPayload struct {
	ChatID   string `json:"chatId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
}

// ReadPayload announces new read receipts.
type ReadPayload struct {
	ChatID      string `json:"chatId"`
	UserID      string `json:"userId"`
	MarkedCount int    `json:"markedCount"`
	MessageID   string `json:"messageId,omitempty"`
}

// ParticipantPayload is sent when a user joins or leaves a group.
type ParticipantPayload struct {
	ChatID   string `json:"chatId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// NotificationPayload carries a freshly stored notification.
type NotificationPayload struct {
	Notification *models.Notification `json:"notification"`
}

// PresencePayload is sent for PRESENCE_ONLINE and PRESENCE_OFFLINE.
type PresencePayload struct {
	UserID string `json:"userId"`
}

// ConnectedEvent builds the CONNECTED frame.
func ConnectedEvent(connectionID, userID string) Message {
	return Message{Type: TypeConnected, Payload: ConnectedPayload{ConnectionID: connectionID, UserID: userID}}
}

// ErrorEvent builds an ERROR frame.
func ErrorEvent(code, message string) Message {
	return Message{Type: TypeError, Payload: ErrorPayload{Message: message, Code: code}}
}

// HeartbeatAckEvent builds HEARTBEAT_ACK.
func HeartbeatAckEvent(at time.Time) Message {
	return Message{Type: TypeHeartbeatAck, Payload: HeartbeatAckPayload{Timestamp: at.UTC()}}
}

// ChatMessageEvent builds the CHAT_MESSAGE broadcast.
func ChatMessageEvent(msg *models.ChatMessage) Message {
	return Message{Type: TypeChatMessage, Payload: ChatMessagePayload{Message: msg}}
}

// TypingEvent builds CHAT_TYPING. An empty userName is omitted.
func TypingEvent(chatID, userID, userName string) Message {
	return Message{Type: TypeChatTyping, Payload: TypingPayload{ChatID: chatID, UserID: userID, UserName: userName}}
}

// StopTypingEvent builds CHAT_STOP_TYPING.
func StopTypingEvent(chatID, userID string) Message {
	return Message{Type: TypeChatStopTyping, Payload: TypingPayload{ChatID: chatID, UserID: userID}}
}

// ReadEvent builds CHAT_READ.
func ReadEvent(chatID, userID string, markedCount int, messageID string) Message {
	return Message{Type: TypeChatRead, Payload: ReadPayload{
		ChatID: chatID, UserID: userID, MarkedCount: markedCount, MessageID: messageID,
	}}
}

// ParticipantAddedEvent builds CHAT_PARTICIPANT_ADDED.
func ParticipantAddedEvent(chatID, userID, userName string) Message {
	return Message{Type: TypeParticipantAdded, Payload: ParticipantPayload{ChatID: chatID, UserID: userID, UserName: userName}}
}

// ParticipantLeftEvent builds CHAT_PARTICIPANT_LEFT.
func ParticipantLeftEvent(chatID, userID, userName string) Message {
	return Message{Type: TypeParticipantLeft, Payload: ParticipantPayload{ChatID: chatID, UserID: userID, UserName: userName}}
}

// NotificationEvent builds NOTIFICATION.
func NotificationEvent(n *models.Notification) Message {
	return Message{Type: TypeNotification, Payload: NotificationPayload{Notification: n}}
}

// PresenceEvent builds PRESENCE_ONLINE or PRESENCE_OFFLINE.
func PresenceEvent(online bool, userID string) Message {
	if online {
		return Message{Type: TypePresenceOnline, Payload: PresencePayload{UserID: userID}}
	}
	return Message{Type: TypePresenceOffline, Payload: PresencePayload{UserID: userID}}
}

// MarshalMessage converts a message to JSON
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Inbound is one decoded client frame.
type Inbound interface {
	FrameType() string
}

// HeartbeatFrame refreshes presence.
type HeartbeatFrame struct{}

// SendFrame posts a chat message.
type SendFrame struct {
	ChatID         string   `json:"chatId"`
	Content        string   `json:"content"`
	MentionedUsers []string `json:"mentionedUsers,omitempty"`
}

// TypingFrame starts the typing indicator.
type TypingFrame struct {
	ChatID string `json:"chatId"`
}

// StopTypingFrame clears the typing indicator.
type StopTypingFrame struct {
	ChatID string `json:"chatId"`
}

// ReadFrame marks messages as read. An empty MessageID marks everything.
type ReadFrame struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId,omitempty"`
}

// UnknownFrame is a well-formed frame with an unrecognized type.
type UnknownFrame struct {
	Type string
}

func (HeartbeatFrame) FrameType() string  { return TypeHeartbeat }
func (SendFrame) FrameType() string       { return TypeChatMessage }
func (TypingFrame) FrameType() string     { return TypeChatTyping }
func (StopTypingFrame) FrameType() string { return TypeChatStopTyping }
func (ReadFrame) FrameType() string       { return TypeChatRead }
func (f UnknownFrame) FrameType() string  { return f.Type }

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeInbound parses a client frame. Unknown types decode to UnknownFrame
// without error; anything that is not a {type, payload} object, or a known
// type whose payload does not fit, returns an error wrapping ErrMalformedFrame.
func DecodeInbound(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}

	switch env.Type {
	case TypeHeartbeat:
		return HeartbeatFrame{}, nil
	case TypeChatMessage:
		var f SendFrame
		if err := decodePayload(env.Payload, &f); err != nil {
			return nil, err
		}
		return f, requireChatID(f.ChatID)
	case TypeChatTyping:
		var f TypingFrame
		if err := decodePayload(env.Payload, &f); err != nil {
			return nil, err
		}
		return f, requireChatID(f.ChatID)
	case TypeChatStopTyping:
		var f StopTypingFrame
		if err := decodePayload(env.Payload, &f); err != nil {
			return nil, err
		}
		return f, requireChatID(f.ChatID)
	case TypeChatRead:
		var f ReadFrame
		if err := decodePayload(env.Payload, &f); err != nil {
			return nil, err
		}
		return f, requireChatID(f.ChatID)
	default:
		return UnknownFrame{Type: env.Type}, nil
	}
}

func decodePayload(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return fmt.Errorf("%w: missing payload", ErrMalformedFrame)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return nil
}

func requireChatID(chatID string) error {
	if chatID == "" {
		return fmt.Errorf("%w: chatId is required", ErrMalformedFrame)
	}
	return nil
}
