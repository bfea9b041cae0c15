// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package models

import "time"

// NotificationType classifies a notification for client rendering.
type NotificationType string

const (
	NotificationChatMessage      NotificationType = "CHAT_MESSAGE"
	NotificationChatMention      NotificationType = "CHAT_MENTION"
	NotificationParticipantAdded NotificationType = "CHAT_PARTICIPANT_ADDED"
	NotificationSystem           NotificationType = "SYSTEM"
)

// Notification is the durable, pollable record behind every live push.
// IsRead only ever moves from false to true.
type Notification struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"userId"`
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	IsRead    bool                   `json:"isRead"`
	CreatedAt time.Time              `json:"createdAt"`

	// ChatID is stored in its own column for the bulk read sync; clients
	// see it inside Data.
	ChatID string `json:"-"`
}

// NewNotification is the input to notification creation.
type NewNotification struct {
	UserID  string           `validate:"required"`
	Type    NotificationType `validate:"required,oneof=CHAT_MESSAGE CHAT_MENTION CHAT_PARTICIPANT_ADDED SYSTEM"`
	Title   string           `validate:"required,max=200"`
	Message string           `validate:"max=1000"`
	Data    map[string]interface{}
	ChatID  string
}

// NotificationFilter selects a page of a user's notifications.
type NotificationFilter struct {
	Page       int
	Limit      int
	UnreadOnly bool
}
