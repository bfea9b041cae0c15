// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

/*
Package middleware provides HTTP middleware shared by the REST API and the
WebSocket upgrade route.

Key Components:

  - RequestID: accepts or generates X-Request-ID and seeds the logging
    context with request and correlation ids
  - PrometheusMetrics: request counts, latency and in-flight gauge labelled
    by the chi route pattern

Both are plain func(http.Handler) http.Handler values and compose with chi:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

Route patterns such as /api/v1/chats/{chatID}/messages are used as the
endpoint label so chat ids never become label values.
*/
package middleware
