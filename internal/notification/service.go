// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

/*
Package notification stores per-user notifications and pushes each new one
to the user's live sockets.

Persistence is authoritative: a push that finds no live socket is counted
and dropped, and the client catches up through List on its next load.
*/
package notification

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/wayfarer/internal/database"
	"github.com/tomtom215/wayfarer/internal/logging"
	"github.com/tomtom215/wayfarer/internal/metrics"
	"github.com/tomtom215/wayfarer/internal/models"
	"github.com/tomtom215/wayfarer/internal/validation"
	"github.com/tomtom215/wayfarer/internal/websocket"
)

// Pagination bounds for List.
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Service implements the notification operations.
type Service struct {
	db     *database.DB
	sender websocket.Sender
	now    func() time.Time
}

// NewService creates a notification service. sender may be nil, in which
// case notifications are stored without a push.
func NewService(db *database.DB, sender websocket.Sender) *Service {
	return &Service{db: db, sender: sender, now: func() time.Time { return time.Now().UTC() }}
}

// CreateNotification validates and stores in, then pushes NOTIFICATION to
// the recipient. The push outcome never fails creation.
func (s *Service) CreateNotification(ctx context.Context, in models.NewNotification) (*models.Notification, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}

	n := &models.Notification{
		UserID:    in.UserID,
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		Data:      in.Data,
		ChatID:    in.ChatID,
		CreatedAt: s.now(),
	}
	if err := s.db.InsertNotification(ctx, n); err != nil {
		return nil, s.internal(ctx, err, "failed to create notification")
	}
	metrics.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()

	if s.sender != nil {
		delivered := s.sender.SendToUser(n.UserID, websocket.NotificationEvent(n))
		metrics.RecordPush(delivered)
		logging.Ctx(ctx).Debug().Str("user_id", n.UserID).Str("type", string(n.Type)).
			Bool("delivered", delivered).Msg("Notification pushed")
	}
	return n, nil
}

// List returns one page of userID's notifications newest first and the
// total matching the filter. The returned filter carries the normalized
// page and limit.
func (s *Service) List(ctx context.Context, userID string, filter models.NotificationFilter) ([]*models.Notification, int, models.NotificationFilter, error) {
	filter = normalize(filter)
	items, total, err := s.db.ListNotifications(ctx, userID, filter)
	if err != nil {
		return nil, 0, filter, s.internal(ctx, err, "failed to list notifications")
	}
	return items, total, filter, nil
}

func normalize(f models.NotificationFilter) models.NotificationFilter {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	return f
}

// UnreadCount returns how many of userID's notifications are unread.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	n, err := s.db.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return 0, s.internal(ctx, err, "failed to count unread notifications")
	}
	return n, nil
}

// MarkAsRead marks one of userID's notifications read. Marking an already
// read notification succeeds.
func (s *Service) MarkAsRead(ctx context.Context, userID, id string) (*models.Notification, error) {
	n, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if n.IsRead {
		return n, nil
	}
	if err := s.db.MarkNotificationRead(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotificationNotFound) {
			return nil, models.NotFound("notification %s not found", id)
		}
		return nil, s.internal(ctx, err, "failed to mark notification read")
	}
	n.IsRead = true
	return n, nil
}

// MarkAllAsRead marks every unread notification of userID and returns how
// many changed.
func (s *Service) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	n, err := s.db.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, s.internal(ctx, err, "failed to mark notifications read")
	}
	return n, nil
}

// MarkChatNotificationsAsRead marks userID's unread notifications tied to
// chatID and returns how many changed.
func (s *Service) MarkChatNotificationsAsRead(ctx context.Context, userID, chatID string) (int, error) {
	n, err := s.db.MarkChatNotificationsRead(ctx, userID, chatID)
	if err != nil {
		return 0, s.internal(ctx, err, "failed to mark chat notifications read")
	}
	if n > 0 {
		logging.Ctx(ctx).Debug().Str("user_id", userID).Str("chat_id", chatID).Int("count", n).
			Msg("Chat notifications marked read")
	}
	return n, nil
}

// Delete removes one of userID's notifications.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.db.DeleteNotification(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotificationNotFound) {
			return models.NotFound("notification %s not found", id)
		}
		return s.internal(ctx, err, "failed to delete notification")
	}
	return nil
}

// owned loads a notification and checks that userID is its recipient.
func (s *Service) owned(ctx context.Context, userID, id string) (*models.Notification, error) {
	if id == "" {
		return nil, models.BadRequest("notification id is required")
	}
	n, err := s.db.GetNotification(ctx, id)
	if errors.Is(err, database.ErrNotificationNotFound) {
		return nil, models.NotFound("notification %s not found", id)
	}
	if err != nil {
		return nil, s.internal(ctx, err, "failed to load notification")
	}
	if n.UserID != userID {
		return nil, models.Forbidden("notification belongs to another user")
	}
	return n, nil
}

func (s *Service) internal(ctx context.Context, err error, message string) error {
	logging.Ctx(ctx).Error().Err(err).Msg(message)
	return models.Internal(err, message)
}
