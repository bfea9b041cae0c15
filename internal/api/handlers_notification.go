// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/wayfarer/internal/models"
)

// UnreadCountResult is returned by GET /notifications/unread/count.
type UnreadCountResult struct {
	Count int `json:"count"`
}

// MarkAllResult is returned by PATCH /notifications/read-all.
type MarkAllResult struct {
	MarkedCount int `json:"markedCount"`
}

// DeletedResult is returned by DELETE /notifications/{notificationID}.
type DeletedResult struct {
	Deleted bool `json:"deleted"`
}

// ListNotifications handles GET /notifications?page&limit&unread.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	rw := NewResponseWriter(w, r)

	var filter models.NotificationFilter
	var err error
	if filter.Page, err = queryInt(r, "page"); err != nil {
		rw.DomainError(err)
		return
	}
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		rw.DomainError(err)
		return
	}
	if filter.UnreadOnly, err = queryBool(r, "unread"); err != nil {
		rw.DomainError(err)
		return
	}

	items, total, filter, err := h.notifications.List(r.Context(), claims.UserID, filter)
	if err != nil {
		rw.DomainError(err)
		return
	}

	rw.SuccessWithPagination(items, &PaginationMeta{
		Total:   int64(total),
		Count:   len(items),
		Page:    filter.Page,
		Limit:   filter.Limit,
		HasMore: filter.Page*filter.Limit < total,
	})
}

// UnreadNotificationCount handles GET /notifications/unread/count.
func (h *Handler) UnreadNotificationCount(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	rw := NewResponseWriter(w, r)

	n, err := h.notifications.UnreadCount(r.Context(), claims.UserID)
	if err != nil {
		rw.DomainError(err)
		return
	}
	rw.Success(UnreadCountResult{Count: n})
}

// MarkNotificationRead handles PATCH /notifications/{notificationID}/read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	rw := NewResponseWriter(w, r)

	n, err := h.notifications.MarkAsRead(r.Context(), claims.UserID, chi.URLParam(r, "notificationID"))
	if err != nil {
		rw.DomainError(err)
		return
	}
	rw.Success(n)
}

// MarkAllNotificationsRead handles PATCH /notifications/read-all.
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	rw := NewResponseWriter(w, r)

	n, err := h.notifications.MarkAllAsRead(r.Context(), claims.UserID)
	if err != nil {
		rw.DomainError(err)
		return
	}
	rw.Success(MarkAllResult{MarkedCount: n})
}

// DeleteNotification handles DELETE /notifications/{notificationID}.
func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	rw := NewResponseWriter(w, r)

	if err := h.notifications.Delete(r.Context(), claims.UserID, chi.URLParam(r, "notificationID")); err != nil {
		rw.DomainError(err)
		return
	}
	rw.Success(DeletedResult{Deleted: true})
}
