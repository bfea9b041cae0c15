// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package chat implements direct and group conversations.
//
// Service owns the durable rules: one DIRECT chat per user pair, GROUP chats
// of at most 100 participants that only their creator can grow, mentions
// restricted to current participants, idempotent read receipts and the
// cascade delete once the last participant leaves. Every error it returns
// is a models.DomainError.
//
// Messenger wraps Service for callers that need real-time effects, namely
// the HTTP handlers and the WebSocket gateway. For a send the order is fixed:
//
//	persist message -> CHAT_MESSAGE to participants -> notifications
//
// Broadcast and notification failures are logged and swallowed; they never
// fail the mutation they follow.
package chat
