// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

/*
Package api serves the REST surface of the messaging service on chi.

Every response uses one envelope:

	{"success": true,  "data": ..., "meta": {"request_id": ..., "timestamp": ..., "pagination": ...}}
	{"success": false, "error": {"code": ..., "message": ..., "details": ..., "request_id": ...}, "meta": {...}}

Domain errors map to status codes in ResponseWriter.DomainError. Everything
under /api/v1 except /health and /ws requires a bearer token and is rate
limited per client IP; /ws authenticates inside the socket gateway and
/metrics exposes the Prometheus registry.

Route table:

	POST   /api/v1/chats/direct
	POST   /api/v1/chats/group
	GET    /api/v1/chats
	GET    /api/v1/chats/{chatID}
	POST   /api/v1/chats/{chatID}/messages
	GET    /api/v1/chats/{chatID}/messages?before&page&limit
	POST   /api/v1/chats/{chatID}/read
	POST   /api/v1/chats/{chatID}/participants
	DELETE /api/v1/chats/{chatID}/leave
	GET    /api/v1/notifications?page&limit&unread
	GET    /api/v1/notifications/unread/count
	PATCH  /api/v1/notifications/{notificationID}/read
	PATCH  /api/v1/notifications/read-all
	DELETE /api/v1/notifications/{notificationID}
*/
package api
