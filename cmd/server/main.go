// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/wayfarer/internal/api"
	"github.com/tomtom215/wayfarer/internal/auth"
	"github.com/tomtom215/wayfarer/internal/authz"
	"github.com/tomtom215/wayfarer/internal/chat"
	"github.com/tomtom215/wayfarer/internal/config"
	"github.com/tomtom215/wayfarer/internal/database"
	"github.com/tomtom215/wayfarer/internal/directory"
	"github.com/tomtom215/wayfarer/internal/logging"
	"github.com/tomtom215/wayfarer/internal/notification"
	"github.com/tomtom215/wayfarer/internal/presence"
	"github.com/tomtom215/wayfarer/internal/supervisor"
	"github.com/tomtom215/wayfarer/internal/supervisor/services"
	ws "github.com/tomtom215/wayfarer/internal/websocket"
)

// Notification delivery is what the messenger calls after chat writes.
var _ chat.Notifier = (*notification.Service)(nil)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
}

//nolint:gocyclo // sequential wiring of every component
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("environment", cfg.Server.Environment).
		Str("auth_mode", cfg.Security.AuthMode).
		Str("presence_backend", cfg.Presence.Backend).
		Str("directory_backend", cfg.Directory.Backend).
		Msg("Starting Wayfarer messaging server")
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows every origin; set CORS_ORIGINS in production")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	users, err := directory.New(&cfg.Directory, db)
	if err != nil {
		return err
	}
	if cached, ok := users.(*directory.Cached); ok {
		defer cached.Close()
	}

	enforcer, err := authz.NewEnforcer(authz.ConfigFromSecurity(&cfg.Security))
	if err != nil {
		return err
	}
	defer enforcer.Close()

	verifier, err := auth.NewVerifier(&cfg.Security)
	if err != nil {
		return err
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}

	var store presence.Store
	switch cfg.Presence.Backend {
	case "memory":
		store = presence.NewMemoryStore()
	default:
		badgerStore, err := presence.OpenBadgerStore(&cfg.Presence)
		if err != nil {
			return err
		}
		tree.AddDataService(services.NewPresenceGCService(badgerStore, cfg.Presence.GCInterval))
		store = badgerStore
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing presence store")
		}
	}()

	registry := ws.NewRegistry(cfg.WebSocket.PingInterval)
	chats := chat.NewService(db, users, enforcer)
	notifications := notification.NewService(db, registry)
	messenger := chat.NewMessenger(chats, registry, notifications, users)
	presenceSvc := presence.NewService(store, registry, chats, users, &cfg.Presence)
	gateway := ws.NewGateway(registry, verifier, presenceSvc, messenger, presenceSvc, cfg)

	deps := api.HandlerDeps{
		Chat:          messenger,
		Notifications: notifications,
		DB:            db,
		Connections:   registry,
	}
	if breaker, ok := users.(api.BreakerReporter); ok {
		deps.Directory = breaker
	}
	router := api.NewRouter(
		api.NewHandler(deps),
		auth.NewMiddleware(verifier, nil),
		api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security)),
		gateway,
	)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * time.Minute,
	}

	tree.AddRealtimeService(services.NewRegistryService(registry))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Supervisor tree starting")
	err = tree.Serve(ctx)

	// Fan-out goroutines still hold database handles.
	messenger.Wait()

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within the shutdown timeout")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info().Msg("Server stopped")
	return nil
}
