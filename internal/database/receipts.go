// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/wayfarer/internal/models"
)

// InsertReadReceipts records that readerID has read every message in chatID
// sent by someone else, up to and including upToMessageID when it is set.
// Existing receipts are skipped; the return value counts only new rows.
// An upToMessageID outside the chat yields ErrMessageNotFound.
func (db *DB) InsertReadReceipts(ctx context.Context, chatID, readerID, upToMessageID string, readAt time.Time) (_ int, err error) {
	defer func(start time.Time) { observe("insert", "message_read_receipts", start, err) }(time.Now())

	query := `
		INSERT INTO message_read_receipts (message_id, user_id, read_at)
		SELECT m.id, ?, ?
		FROM chat_messages m
		WHERE m.chat_id = ? AND m.sender_id <> ?`
	args := []interface{}{readerID, readAt, chatID, readerID}

	if upToMessageID != "" {
		upTo, err := db.GetMessage(ctx, chatID, upToMessageID)
		if err != nil {
			return 0, err
		}
		query += ` AND m.created_at <= ?`
		args = append(args, upTo.CreatedAt)
	}
	query += ` ON CONFLICT DO NOTHING`

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert read receipts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count inserted receipts: %w", err)
	}
	return int(n), nil
}

// GetReceipts returns the receipts of one message, oldest first.
func (db *DB) GetReceipts(ctx context.Context, messageID string) ([]models.MessageReadReceipt, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT message_id, user_id, read_at
		FROM message_read_receipts
		WHERE message_id = ?
		ORDER BY read_at, user_id`, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer closeQuietly(rows)

	var receipts []models.MessageReadReceipt
	for rows.Next() {
		var r models.MessageReadReceipt
		if err := rows.Scan(&r.MessageID, &r.UserID, &r.ReadAt); err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipts: %w", err)
	}
	return receipts, nil
}

// attachReadBy fills ReadBy of every message with one batched query.
func (db *DB) attachReadBy(ctx context.Context, msgs []*models.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	ids := make([]string, len(msgs))
	byID := make(map[string]*models.ChatMessage, len(msgs))
	for i, msg := range msgs {
		ids[i] = msg.ID
		byID[msg.ID] = msg
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT message_id, user_id
		FROM message_read_receipts
		WHERE message_id IN (`+placeholders(len(ids))+`)
		ORDER BY read_at, user_id`, stringArgs(ids)...)
	if err != nil {
		return fmt.Errorf("failed to query read receipts: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var messageID, userID string
		if err := rows.Scan(&messageID, &userID); err != nil {
			return fmt.Errorf("failed to scan read receipt: %w", err)
		}
		if msg, ok := byID[messageID]; ok {
			msg.ReadBy = append(msg.ReadBy, userID)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate read receipts: %w", err)
	}
	return nil
}
