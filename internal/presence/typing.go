// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfarer/internal/logging"
	"github.com/tomtom215/wayfarer/internal/metrics"
	"github.com/tomtom215/wayfarer/internal/models"
	"github.com/tomtom215/wayfarer/internal/websocket"
)

type typingEntry struct {
	ChatID    string    `json:"chatId"`
	UserID    string    `json:"userId"`
	StartedAt time.Time `json:"startedAt"`
}

func typingKey(chatID, userID string) string {
	return typingKeyPrefix + chatID + ":" + userID
}

// HandleTyping records that userID is typing in chatID for the typing TTL
// and tells the other participants. A client that never sends stop is
// healed by the TTL.
func (s *Service) HandleTyping(ctx context.Context, userID, chatID string) error {
	others, err := s.otherParticipants(ctx, userID, chatID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(typingEntry{ChatID: chatID, UserID: userID, StartedAt: s.now().UTC()})
	if err != nil {
		return models.Internal(err, "failed to record typing")
	}
	err = s.store.Put(ctx, typingKey(chatID, userID), data, s.typingTTL)
	metrics.RecordPresenceOp("put", err)
	if err != nil {
		return models.Internal(err, "failed to record typing")
	}
	metrics.TypingEvents.WithLabelValues("start").Inc()

	s.sender.SendToUsers(others, websocket.TypingEvent(chatID, userID, s.userName(ctx, userID)))
	return nil
}

// HandleStopTyping clears the indicator and tells the other participants.
func (s *Service) HandleStopTyping(ctx context.Context, userID, chatID string) error {
	others, err := s.otherParticipants(ctx, userID, chatID)
	if err != nil {
		return err
	}

	err = s.store.Delete(ctx, typingKey(chatID, userID))
	metrics.RecordPresenceOp("delete", err)
	if err != nil {
		return models.Internal(err, "failed to clear typing")
	}
	metrics.TypingEvents.WithLabelValues("stop").Inc()

	s.sender.SendToUsers(others, websocket.StopTypingEvent(chatID, userID))
	return nil
}

// IsTyping reports whether userID's indicator in chatID is live.
func (s *Service) IsTyping(ctx context.Context, chatID, userID string) (bool, error) {
	ok, err := s.store.Exists(ctx, typingKey(chatID, userID))
	metrics.RecordPresenceOp("get", err)
	if err != nil {
		return false, fmt.Errorf("failed to read typing state: %w", err)
	}
	return ok, nil
}

// otherParticipants authorizes userID in chatID and returns everyone else.
func (s *Service) otherParticipants(ctx context.Context, userID, chatID string) ([]string, error) {
	ok, err := s.members.IsParticipant(ctx, chatID, userID)
	if err != nil {
		return nil, models.Internal(err, "failed to check chat membership")
	}
	if !ok {
		return nil, models.Forbidden("you are not a participant of this chat")
	}

	ids, err := s.members.ParticipantIDs(ctx, chatID)
	if err != nil {
		return nil, models.Internal(err, "failed to load chat participants")
	}
	return models.UniqueIDs(ids, userID), nil
}

// userName returns "" when the directory cannot resolve userID; typing
// frames then omit the name.
func (s *Service) userName(ctx context.Context, userID string) string {
	if s.users == nil {
		return ""
	}
	user, err := s.users.FindUser(ctx, userID)
	if err != nil || user == nil {
		logging.Ctx(ctx).Debug().Err(err).Str("user_id", userID).Msg("Typing without user name")
		return ""
	}
	return user.DisplayName
}
