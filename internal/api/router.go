// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/wayfarer/internal/auth"
	"github.com/tomtom215/wayfarer/internal/middleware"
)

// Router wires handlers, authentication and the socket gateway onto chi.
type Router struct {
	handler       *Handler
	auth          *auth.Middleware
	chiMiddleware *ChiMiddleware
	gateway       http.Handler
}

// NewRouter creates a router. gateway serves GET /api/v1/ws and performs
// its own authentication.
func NewRouter(handler *Handler, authMiddleware *auth.Middleware, chiMW *ChiMiddleware, gateway http.Handler) *Router {
	if chiMW == nil {
		chiMW = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, auth: authMiddleware, chiMiddleware: chiMW, gateway: gateway}
}

// Setup builds the route tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusNotFound, ErrCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", router.handler.Health)
		if router.gateway != nil {
			r.Get("/ws", router.gateway.ServeHTTP)
		}

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Use(router.auth.Authenticate)

			r.Route("/chats", func(r chi.Router) {
				r.Get("/", router.handler.ListChats)
				r.Post("/direct", router.handler.CreateDirectChat)
				r.Post("/group", router.handler.CreateGroupChat)

				r.Route("/{chatID}", func(r chi.Router) {
					r.Get("/", router.handler.GetChat)
					r.Get("/messages", router.handler.GetMessages)
					r.Post("/messages", router.handler.SendMessage)
					r.Post("/read", router.handler.MarkAsRead)
					r.Post("/participants", router.handler.AddParticipant)
					r.Delete("/leave", router.handler.LeaveChat)
				})
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", router.handler.ListNotifications)
				r.Get("/unread/count", router.handler.UnreadNotificationCount)
				r.Patch("/read-all", router.handler.MarkAllNotificationsRead)
				r.Patch("/{notificationID}/read", router.handler.MarkNotificationRead)
				r.Delete("/{notificationID}", router.handler.DeleteNotification)
			})
		})
	})

	return r
}
