// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/wayfarer/internal/models"
)

const notificationColumns = `id, user_id, type, title, message, data, chat_id, is_read, created_at`

// InsertNotification persists n. ID and CreatedAt are filled in when empty.
func (db *DB) InsertNotification(ctx context.Context, n *models.Notification) (err error) {
	defer func(start time.Time) { observe("insert", "notifications", start, err) }(time.Now())

	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now()
	}

	var data sql.NullString
	if len(n.Data) > 0 {
		encoded, err := json.Marshal(n.Data)
		if err != nil {
			return fmt.Errorf("failed to encode notification data: %w", err)
		}
		data = sql.NullString{String: string(encoded), Valid: true}
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, string(n.Type), n.Title, n.Message, data, nullString(n.ChatID), n.IsRead, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// GetNotification returns a notification or ErrNotificationNotFound.
func (db *DB) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id)
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification %s: %w", id, err)
	}
	return n, nil
}

// ListNotifications returns one page of userID's notifications newest first
// and the total matching the filter. Page and Limit must already be
// normalized by the caller.
func (db *DB) ListNotifications(ctx context.Context, userID string, filter models.NotificationFilter) ([]*models.Notification, int, error) {
	where := ` WHERE user_id = ?`
	args := []interface{}{userID}
	if filter.UnreadOnly {
		where += ` AND is_read = false`
	}

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications`+where+
			` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, filter.Limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer closeQuietly(rows)

	notifications := []*models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return notifications, total, nil
}

// CountUnreadNotifications returns how many of userID's notifications are unread.
func (db *DB) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = false`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

// MarkNotificationRead sets is_read on one notification. Already-read rows
// are left untouched; a missing id yields ErrNotificationNotFound.
func (db *DB) MarkNotificationRead(ctx context.Context, id string) error {
	if _, err := db.GetNotification(ctx, id); err != nil {
		return err
	}
	if _, err := db.conn.ExecContext(ctx,
		`UPDATE notifications SET is_read = true WHERE id = ? AND is_read = false`, id); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllNotificationsRead flips every unread notification of userID and
// returns how many changed.
func (db *DB) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	return db.execCount(ctx,
		`UPDATE notifications SET is_read = true WHERE user_id = ? AND is_read = false`, userID)
}

// MarkChatNotificationsRead flips userID's unread notifications for chatID
// and returns how many changed.
func (db *DB) MarkChatNotificationsRead(ctx context.Context, userID, chatID string) (int, error) {
	return db.execCount(ctx,
		`UPDATE notifications SET is_read = true WHERE user_id = ? AND chat_id = ? AND is_read = false`,
		userID, chatID)
}

// DeleteNotification removes one notification or returns ErrNotificationNotFound.
func (db *DB) DeleteNotification(ctx context.Context, id string) error {
	n, err := db.execCount(ctx, `DELETE FROM notifications WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (db *DB) execCount(ctx context.Context, query string, args ...interface{}) (int, error) {
	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(n), nil
}

func scanNotification(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.Notification, error) {
	n := &models.Notification{}
	var notificationType string
	var data, chatID sql.NullString
	if err := scanner.Scan(&n.ID, &n.UserID, &notificationType, &n.Title, &n.Message, &data, &chatID, &n.IsRead, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.Type = models.NotificationType(notificationType)
	if chatID.Valid {
		n.ChatID = chatID.String
	}
	if data.Valid && data.String != "" {
		if err := json.Unmarshal([]byte(data.String), &n.Data); err != nil {
			return nil, fmt.Errorf("failed to decode data of notification %s: %w", n.ID, err)
		}
	}
	return n, nil
}
