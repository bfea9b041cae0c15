// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

/*
Package models defines the data shared by the store, the services, the
REST handlers and the socket gateway.

Model Categories:

1. Chat:
  - Chat: DIRECT (two users, unique per pair via DirectKey) or GROUP
    (named, creator-owned, at most MaxGroupParticipants members)
  - ChatParticipant: membership with the user's LastReadAt
  - ChatMessage: immutable content, mentions and the derived ReadBy list
  - MessageReadReceipt: one row per (message, reader), never the sender

2. Notification:
  - Notification: durable record behind every live NOTIFICATION frame
  - NewNotification: validated creation input
  - NotificationFilter: page, limit and unread-only selection

3. User:
  - User: the directory's view of a marketplace account; Usable reports
    whether it may be added to chats

4. Errors:
  - DomainError with kinds BAD_REQUEST, NOT_FOUND, FORBIDDEN and INTERNAL.
    The API maps kinds to 400, 404, 403 and 500; internal causes are
    logged and never shown to clients (see PublicMessage).

JSON field names are camelCase, matching the client wire format.
*/
package models
