// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package main is the entry point of the Wayfarer messaging server: direct
// and group chat between marketplace users, typing and presence signals,
// and in-app notifications, served over REST and a single WebSocket.
//
// # Startup
//
//  1. Configuration: defaults, config.yaml, then environment (koanf v2)
//  2. DuckDB: chats, participants, messages, read receipts, notifications
//  3. User directory: DuckDB users table or the marketplace HTTP API
//  4. Casbin enforcer for role capabilities
//  5. Presence store: BadgerDB (default) or in-memory
//  6. Connection registry, chat messenger, socket gateway
//  7. chi router under a suture supervisor tree
//
// # Configuration
//
// Every setting has a flat environment variable, for example HTTP_PORT,
// DUCKDB_PATH, PRESENCE_BACKEND, JWT_SECRET and DIRECTORY_URL. A YAML file
// named by CONFIG_PATH, or config.yaml in the working directory, sits
// between the defaults and the environment.
//
// Development without a token issuer:
//
//	export AUTH_MODE=none
//	export PRESENCE_BACKEND=memory
//	./wayfarer
//
// With AUTH_MODE none the bearer token is taken verbatim as the user id.
//
// # Signals
//
// SIGINT and SIGTERM cancel the tree: the HTTP server drains, the registry
// closes every socket, pending chat fan-out finishes, then the stores close.
package main
