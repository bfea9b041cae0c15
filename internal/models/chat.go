// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package models

import (
	"strconv"
	"time"

	"github.com/samber/lo"
)

// ChatType distinguishes one-to-one chats from named group chats.
type ChatType string

const (
	// ChatTypeDirect has exactly two participants and is unique per user pair.
	ChatTypeDirect ChatType = "DIRECT"

	// ChatTypeGroup is named, creator-owned and holds up to MaxGroupParticipants.
	ChatTypeGroup ChatType = "GROUP"
)

const (
	// MaxGroupParticipants caps a group chat, creator included.
	MaxGroupParticipants = 100

	// MaxMessageLength caps message content, in characters.
	MaxMessageLength = 5000

	// MaxChatNameLength caps a group chat name, in characters.
	MaxChatNameLength = 100
)

// Chat is a conversation. Participants, LastMessage and UnreadCount are
// populated only by list and detail reads.
type Chat struct {
	ID           string            `json:"id"`
	Type         ChatType          `json:"type"`
	Name         string            `json:"name,omitempty"`
	CreatorID    string            `json:"creatorId"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	Participants []ChatParticipant `json:"participants,omitempty"`
	LastMessage  *ChatMessage      `json:"lastMessage,omitempty"`
	UnreadCount  int               `json:"unreadCount"`
}

// ChatParticipant links a user to a chat. LastReadAt is nil until the user
// first marks the chat as read.
type ChatParticipant struct {
	ChatID     string     `json:"chatId"`
	UserID     string     `json:"userId"`
	JoinedAt   time.Time  `json:"joinedAt"`
	LastReadAt *time.Time `json:"lastReadAt,omitempty"`
}

// ChatMessage is immutable once created. ReadBy is filled from receipts on
// reads; it is never stored on the message row.
type ChatMessage struct {
	ID             string    `json:"id"`
	ChatID         string    `json:"chatId"`
	SenderID       string    `json:"senderId"`
	Content        string    `json:"content"`
	MentionedUsers []string  `json:"mentionedUsers"`
	CreatedAt      time.Time `json:"createdAt"`
	ReadBy         []string  `json:"readBy"`
}

// MessageReadReceipt marks one message as read by one user other than its sender.
type MessageReadReceipt struct {
	MessageID string    `json:"messageId"`
	UserID    string    `json:"userId"`
	ReadAt    time.Time `json:"readAt"`
}

// DirectKey returns the canonical, order-independent key of a user pair.
// The first id is length-prefixed so ids containing ':' cannot collide.
func DirectKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return strconv.Itoa(len(a)) + ":" + a + ":" + b
}

// UniqueIDs returns ids without duplicates, empty strings or any id in
// exclude, preserving first-seen order.
func UniqueIDs(ids []string, exclude ...string) []string {
	return lo.Without(lo.Uniq(lo.Compact(ids)), exclude...)
}
