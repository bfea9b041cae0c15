// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors register on the default registry through promauto and are
exposed at /metrics in Prometheus text format:

	curl http://localhost:3857/metrics

# Available Metrics

HTTP Metrics:
  - api_requests_total: Total API requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
  - api_active_requests: In-flight requests (gauge)

Database Metrics:
  - duckdb_query_duration_seconds: Query execution time (histogram)
    Labels: operation, table
  - duckdb_query_errors_total: Failed queries (counter)
    Labels: operation, table

WebSocket Metrics:
  - websocket_connections: Open sockets (gauge)
  - websocket_connected_users: Users with at least one socket (gauge)
  - websocket_frames_received_total / websocket_frames_sent_total (counter)
    Labels: type
  - websocket_dropped_sends_total: Frames refused by a full send buffer (counter)
  - websocket_rate_limited_total: Inbound frames over the per-connection limit (counter)
  - websocket_errors_total (counter)
    Labels: error_type

Chat and Notification Metrics:
  - chat_chats_created_total (counter), Labels: type
  - chat_chats_deleted_total (counter)
  - chat_messages_sent_total (counter), Labels: chat_type
  - chat_receipts_marked_total (counter)
  - notifications_created_total (counter), Labels: type
  - notification_pushes_total (counter), Labels: result (delivered, offline)

Presence Metrics:
  - presence_store_operations_total (counter), Labels: operation, outcome
  - typing_events_total (counter), Labels: event (start, stop)

Circuit Breaker Metrics:
  - circuit_breaker_state: Current state (gauge), 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total (counter), Labels: name, result
  - circuit_breaker_state_transitions_total (counter), Labels: name, from_state, to_state

Cache Metrics:
  - cache_hits_total / cache_misses_total (counter), Labels: cache_type
*/
package metrics
