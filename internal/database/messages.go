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

const messageColumns = `id, chat_id, sender_id, content, mentioned_users, created_at`

// MessageQuery selects a page of a chat's history. A non-empty Before is a
// message id; when set, Offset is ignored and only messages after it in
// (created_at DESC, id DESC) order are returned.
type MessageQuery struct {
	Before string
	Limit  int
	Offset int
}

// InsertMessage persists msg and bumps the chat's updated_at in one
// transaction. ID and CreatedAt are filled in when empty.
func (db *DB) InsertMessage(ctx context.Context, msg *models.ChatMessage) (err error) {
	defer func(start time.Time) { observe("insert", "chat_messages", start, err) }(time.Now())

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now()
	}
	if msg.MentionedUsers == nil {
		msg.MentionedUsers = []string{}
	}
	if msg.ReadBy == nil {
		msg.ReadBy = []string{}
	}

	mentions, err := json.Marshal(msg.MentionedUsers)
	if err != nil {
		return fmt.Errorf("failed to encode mentions: %w", err)
	}

	return db.withRetryTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_messages (id, chat_id, sender_id, content, mentioned_users, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			msg.ID, msg.ChatID, msg.SenderID, msg.Content, string(mentions), msg.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
		return touchChat(ctx, tx, msg.ChatID, msg.CreatedAt)
	})
}

// GetMessage returns a message of chatID, or ErrMessageNotFound when the id
// does not exist or belongs to another chat.
func (db *DB) GetMessage(ctx context.Context, chatID, messageID string) (*models.ChatMessage, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM chat_messages WHERE id = ? AND chat_id = ?`, messageID, chatID)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	return msg, nil
}

// LastMessage returns the newest message of a chat, or ErrMessageNotFound
// when the chat is empty.
func (db *DB) LastMessage(ctx context.Context, chatID string) (*models.ChatMessage, error) {
	msgs, err := db.ListMessages(ctx, chatID, MessageQuery{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, ErrMessageNotFound
	}
	return msgs[0], nil
}

// ListMessages returns a page of messages newest first with ReadBy filled
// from receipts. A Before cursor that is not in the chat yields
// ErrMessageNotFound.
func (db *DB) ListMessages(ctx context.Context, chatID string, q MessageQuery) (_ []*models.ChatMessage, err error) {
	defer func(start time.Time) { observe("select", "chat_messages", start, err) }(time.Now())

	query := `SELECT ` + messageColumns + ` FROM chat_messages WHERE chat_id = ?`
	args := []interface{}{chatID}

	if q.Before != "" {
		cursor, err := db.GetMessage(ctx, chatID, q.Before)
		if err != nil {
			return nil, err
		}
		query += ` AND (created_at < ? OR (created_at = ? AND id < ?))`
		args = append(args, cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, q.Limit)
	if q.Before == "" && q.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, q.Offset)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}

	var msgs []*models.ChatMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			closeQuietly(rows)
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		closeQuietly(rows)
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	closeQuietly(rows)

	if err := db.attachReadBy(ctx, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// CountUnread counts messages in chatID from users other than userID that
// are newer than since; a nil since counts every such message.
func (db *DB) CountUnread(ctx context.Context, chatID, userID string, since *time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM chat_messages WHERE chat_id = ? AND sender_id <> ?`
	args := []interface{}{chatID, userID}
	if since != nil {
		query += ` AND created_at > ?`
		args = append(args, *since)
	}

	var n int
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return n, nil
}

// CountMessages returns the number of messages stored for a chat.
func (db *DB) CountMessages(ctx context.Context, chatID string) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_messages WHERE chat_id = ?`, chatID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}

func scanMessage(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.ChatMessage, error) {
	msg := &models.ChatMessage{}
	var mentions string
	if err := scanner.Scan(&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Content, &mentions, &msg.CreatedAt); err != nil {
		return nil, err
	}
	msg.MentionedUsers = []string{}
	if mentions != "" {
		if err := json.Unmarshal([]byte(mentions), &msg.MentionedUsers); err != nil {
			return nil, fmt.Errorf("failed to decode mentions of message %s: %w", msg.ID, err)
		}
	}
	msg.ReadBy = []string{}
	return msg, nil
}
