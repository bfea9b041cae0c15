// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package services adapts server components to suture.Service.
//
// Each adapter depends on a one-method interface instead of the concrete
// component, which keeps this package free of imports from websocket and
// presence and lets tests drive it with fakes:
//
//	HTTPServerService  *http.Server         ListenAndServe / Shutdown
//	RegistryService    *websocket.Registry  RunWithContext
//	PresenceGCService  *presence.BadgerStore RunGC
//
// Every adapter returns ctx.Err() on a requested stop and a wrapped error on
// failure, which suture answers with a restart.
package services
