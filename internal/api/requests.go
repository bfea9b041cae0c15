// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfarer/internal/models"
	"github.com/tomtom215/wayfarer/internal/validation"
)

// maxBodyBytes bounds request bodies. A 5000-character message in 4-byte
// runes plus mentions fits comfortably.
const maxBodyBytes = 64 << 10

// CreateDirectChatRequest is the body of POST /chats/direct.
type CreateDirectChatRequest struct {
	OtherUserID string `json:"otherUserId" validate:"required,max=128"`
}

// CreateGroupChatRequest is the body of POST /chats/group. Name length is
// checked by the chat service after trimming.
type CreateGroupChatRequest struct {
	Name           string   `json:"name" validate:"required"`
	ParticipantIDs []string `json:"participantIds" validate:"max=200,dive,required,max=128"`
}

// SendMessageRequest is the body of POST /chats/{chatID}/messages.
type SendMessageRequest struct {
	Content        string   `json:"content" validate:"required"`
	MentionedUsers []string `json:"mentionedUsers" validate:"omitempty,max=100,dive,required,max=128"`
}

// MarkReadRequest is the optional body of POST /chats/{chatID}/read.
type MarkReadRequest struct {
	MessageID string `json:"messageId" validate:"omitempty,max=128"`
}

// AddParticipantRequest is the body of POST /chats/{chatID}/participants.
type AddParticipantRequest struct {
	UserID string `json:"userId" validate:"required,max=128"`
}

// decodeJSON reads a JSON body into dst and validates it. An empty body is
// accepted when optional is set. The body is read in full before decoding
// so an oversized request surfaces as *http.MaxBytesError.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, optional bool) error {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return models.BadRequest("request body exceeds %d bytes", maxBodyBytes)
		}
		return models.BadRequest("failed to read request body")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		if optional {
			return nil
		}
		return models.BadRequest("invalid JSON body")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return models.BadRequest("invalid JSON body")
	}
	return validation.Validate(dst)
}

// queryInt parses a positive integer query parameter; absent means 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, models.BadRequest("%s must be a non-negative integer", name)
	}
	return n, nil
}

// queryBool parses a boolean query parameter; absent means false.
func queryBool(r *http.Request, name string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, models.BadRequest("%s must be a boolean", name)
	}
	return b, nil
}
