// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

/*
Package supervisor runs the long-lived parts of the server under a suture v4
supervision tree.

	wayfarer (root)
	├── data-layer      presence badger GC
	├── realtime-layer  connection registry keepalive
	└── api-layer       HTTP server (REST + /api/v1/ws)

Each layer is its own supervisor, so a panicking or failing service is
restarted with backoff without tearing down its siblings. Supervisor events
are logged through sutureslog onto the slog bridge of the logging package.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddRealtimeService(services.NewRegistryService(registry))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	err = tree.Serve(ctx)

Service adapters live in the services subpackage.
*/
package supervisor
