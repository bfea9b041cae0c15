// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/wayfarer/internal/chat"
)

// ReadResult is returned by POST /chats/{chatID}/read.
type ReadResult struct {
	MarkedCount int `json:"markedCount"`
}

// LeaveResult is returned by DELETE /chats/{chatID}/leave.
type LeaveResult struct {
	ChatDeleted bool `json:"chatDeleted"`
}

// CreateDirectChat handles POST /chats/direct. An existing chat for the
// pair is returned with 200, a new one with 201.
func (h *Handler) CreateDirectChat(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	rw := NewResponseWriter(w, r)

	var req CreateDirectChatRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		rw.DomainError(err)
		return
	}

	c, created, err := h.chat.Chats().CreateDirectChat(r.Context(), claims.UserID, req.OtherUserID)
	if err != nil {
		rw.DomainError(err)
		return
	}
	if created {
		rw.Created(c)
		return
	}
	rw.Success(c)
}

// CreateGroupChat handles POST /chats/group.
func (h *Handler) CreateGroupChat(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	rw := NewResponseWriter(w, r)

	var req CreateGroupChatRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		rw.DomainError(err)
		return
	}

	c, err := h.chat.Chats().CreateGroupChat(r.Context(), claims.UserID, claims.Roles, req.Name, req.ParticipantIDs)
	if err != nil {
		rw.DomainError(err)
		return
	}
	rw.Created(c)
}

// ListChats handles GET /chats.
func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	rw := NewResponseWriter(w, r)

	chats, err := h.chat.Chats().ListChats(r.Context(), claims.UserID)
	if err != nil {
		rw.DomainError(err)
		return
	}
	rw.Success(chats)
}

// GetChat handles GET /chats/{chatID}.
func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	rw := NewResponseWriter(w, r)

	c, err := h.chat.Chats().GetChat(r.Context(), claims.UserID, chi.URLParam(r, "chatID"))
	if err != nil {
		rw.DomainError(err)
		return
	}
	rw.Success(c)
}

// SendMessage handles POST /chats/{chatID}/messages. Delivery and
// notifications run after the response.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	rw := NewResponseWriter(w, r)

	var req SendMessageRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		rw.DomainError(err)
		return
	}

	msg, err := h.chat.Send(r.Context(), claims.UserID, chi.URLParam(r, "chatID"), req.Content, req.MentionedUsers)
	if err != nil {
		rw.DomainError(err)
		return
	}
	rw.Created(msg)
}

// GetMessages handles GET /chats/{chatID}/messages?before&page&limit.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	rw := NewResponseWriter(w, r)

	page, err := queryInt(r, "page")
	if err != nil {
		rw.DomainError(err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		rw.DomainError(err)
		return
	}
	sel := chat.MessagePage{Page: page, Limit: limit, Before: r.URL.Query().Get("before")}

	msgs, err := h.chat.Chats().GetMessages(r.Context(), claims.UserID, chi.URLParam(r, "chatID"), sel)
	if err != nil {
		rw.DomainError(err)
		return
	}

	sel = sel.Normalized()
	rw.SuccessWithPagination(msgs, &PaginationMeta{
		Count:   len(msgs),
		Page:    sel.Page,
		Limit:   sel.Limit,
		HasMore: len(msgs) == sel.Limit,
	})
}

// MarkAsRead handles POST /chats/{chatID}/read with an optional messageId.
func (h *Handler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	rw := NewResponseWriter(w, r)

	var req MarkReadRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		rw.DomainError(err)
		return
	}

	marked, err := h.chat.MarkRead(r.Context(), claims.UserID, chi.URLParam(r, "chatID"), req.MessageID)
	if err != nil {
		rw.DomainError(err)
		return
	}
	rw.Success(ReadResult{MarkedCount: marked})
}

// AddParticipant handles POST /chats/{chatID}/participants.
func (h *Handler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	rw := NewResponseWriter(w, r)

	var req AddParticipantRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		rw.DomainError(err)
		return
	}

	p, err := h.chat.AddParticipant(r.Context(), claims.UserID, chi.URLParam(r, "chatID"), req.UserID)
	if err != nil {
		rw.DomainError(err)
		return
	}
	rw.Created(p)
}

// LeaveChat handles DELETE /chats/{chatID}/leave.
func (h *Handler) LeaveChat(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	rw := NewResponseWriter(w, r)

	deleted, err := h.chat.Leave(r.Context(), claims.UserID, chi.URLParam(r, "chatID"))
	if err != nil {
		rw.DomainError(err)
		return
	}
	rw.Success(LeaveResult{ChatDeleted: deleted})
}
