// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of requests rejected by the HTTP rate limiter",
		},
		[]string{"endpoint"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"}, // "directory"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSConnectedUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connected_users",
			Help: "Current number of users with at least one WebSocket connection",
		},
	)

	WSFramesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_frames_received_total",
			Help: "Total number of inbound WebSocket frames by type",
		},
		[]string{"type"},
	)

	WSFramesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_frames_sent_total",
			Help: "Total number of outbound WebSocket frames enqueued by type",
		},
		[]string{"type"},
	)

	WSDroppedSends = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_dropped_sends_total",
			Help: "Total number of frames dropped because a connection's send buffer was full",
		},
	)

	WSRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_rate_limited_total",
			Help: "Total number of inbound frames rejected by the per-connection rate limiter",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Chat Metrics
	ChatsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_chats_created_total",
			Help: "Total number of chats created",
		},
		[]string{"type"},
	)

	ChatsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_chats_deleted_total",
			Help: "Total number of chats deleted after the last participant left",
		},
	)

	ChatMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total number of chat messages persisted",
		},
		[]string{"chat_type"},
	)

	ChatReceiptsMarked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_receipts_marked_total",
			Help: "Total number of read receipts inserted",
		},
	)

	// Notification Metrics
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Total number of notifications persisted",
		},
		[]string{"type"},
	)

	NotificationPushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_pushes_total",
			Help: "Total number of real-time notification pushes",
		},
		[]string{"result"}, // "delivered", "offline"
	)

	// Presence Metrics
	PresenceStoreOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_store_operations_total",
			Help: "Total number of presence/typing store operations",
		},
		[]string{"operation", "outcome"}, // operation: put, get, delete; outcome: success, failure, miss
	)

	TypingEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "typing_events_total",
			Help: "Total number of typing start/stop events accepted",
		},
		[]string{"event"},
	)

	// Authorization Metrics
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"object", "action", "decision"}, // decision: "allow", "deny", "error"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordPresenceOp records one presence or typing store operation.
func RecordPresenceOp(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	PresenceStoreOps.WithLabelValues(operation, outcome).Inc()
}

// RecordPush records whether a notification reached a live socket.
func RecordPush(delivered bool) {
	if delivered {
		NotificationPushes.WithLabelValues("delivered").Inc()
		return
	}
	NotificationPushes.WithLabelValues("offline").Inc()
}
