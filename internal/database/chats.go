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

	"github.com/google/uuid"

	"github.com/tomtom215/wayfarer/internal/models"
)

const chatColumns = `id, type, name, creator_id, created_at, updated_at`

// CreateChat inserts chat and one participant row per id in a single
// transaction. For DIRECT chats the direct_key is derived from the two ids
// and a taken key yields ErrDirectChatExists. ID and timestamps are filled
// in when empty; chat.Participants is populated on success.
func (db *DB) CreateChat(ctx context.Context, chat *models.Chat, participantIDs []string) error {
	if chat.ID == "" {
		chat.ID = uuid.New().String()
	}
	ts := now()
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = ts
	}
	chat.UpdatedAt = chat.CreatedAt

	var directKey sql.NullString
	if chat.Type == models.ChatTypeDirect {
		if len(participantIDs) != 2 {
			return fmt.Errorf("direct chat needs exactly two participants, got %d", len(participantIDs))
		}
		directKey = sql.NullString{String: models.DirectKey(participantIDs[0], participantIDs[1]), Valid: true}
	}

	participants := make([]models.ChatParticipant, 0, len(participantIDs))
	err := db.withRetryTx(ctx, func(tx *sql.Tx) error {
		participants = participants[:0]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chats (id, type, name, creator_id, direct_key, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			chat.ID, string(chat.Type), nullString(chat.Name), chat.CreatorID, directKey, chat.CreatedAt, chat.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert chat: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO chat_participants (chat_id, user_id, joined_at) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare participant insert: %w", err)
		}
		defer closeQuietly(stmt)

		for _, userID := range participantIDs {
			if _, err := stmt.ExecContext(ctx, chat.ID, userID, chat.CreatedAt); err != nil {
				return fmt.Errorf("failed to insert participant %s: %w", userID, err)
			}
			participants = append(participants, models.ChatParticipant{
				ChatID:   chat.ID,
				UserID:   userID,
				JoinedAt: chat.CreatedAt,
			})
		}
		return nil
	})
	if err != nil {
		if directKey.Valid && isConstraintViolation(err) {
			return ErrDirectChatExists
		}
		return err
	}

	chat.Participants = participants
	return nil
}

// FindDirectChat returns the DIRECT chat between a and b, in either order,
// or ErrChatNotFound.
func (db *DB) FindDirectChat(ctx context.Context, a, b string) (*models.Chat, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+chatColumns+` FROM chats WHERE direct_key = ?`, models.DirectKey(a, b))
	chat, err := scanChat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find direct chat: %w", err)
	}
	return chat, nil
}

// GetChat returns a chat without participants, or ErrChatNotFound.
func (db *DB) GetChat(ctx context.Context, chatID string) (*models.Chat, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+chatColumns+` FROM chats WHERE id = ?`, chatID)
	chat, err := scanChat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat %s: %w", chatID, err)
	}
	return chat, nil
}

// ListChatsForUser returns every chat userID belongs to, most recently
// active first, with participants, the last message and userID's unread
// count filled in.
func (db *DB) ListChatsForUser(ctx context.Context, userID string) ([]*models.Chat, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT c.id, c.type, c.name, c.creator_id, c.created_at, c.updated_at
		FROM chats c
		JOIN chat_participants p ON p.chat_id = c.id
		WHERE p.user_id = ?
		ORDER BY c.updated_at DESC, c.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}

	var chats []*models.Chat
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			closeQuietly(rows)
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		closeQuietly(rows)
		return nil, fmt.Errorf("failed to iterate chats: %w", err)
	}
	closeQuietly(rows)

	for _, chat := range chats {
		if err := db.populateSummary(ctx, chat, userID); err != nil {
			return nil, err
		}
	}
	return chats, nil
}

func (db *DB) populateSummary(ctx context.Context, chat *models.Chat, userID string) error {
	participants, err := db.GetParticipants(ctx, chat.ID)
	if err != nil {
		return err
	}
	chat.Participants = participants

	last, err := db.LastMessage(ctx, chat.ID)
	if err != nil && !errors.Is(err, ErrMessageNotFound) {
		return err
	}
	chat.LastMessage = last

	var lastReadAt *time.Time
	for i := range participants {
		if participants[i].UserID == userID {
			lastReadAt = participants[i].LastReadAt
			break
		}
	}
	unread, err := db.CountUnread(ctx, chat.ID, userID, lastReadAt)
	if err != nil {
		return err
	}
	chat.UnreadCount = unread
	return nil
}

// GetParticipants returns the participants of a chat in join order.
func (db *DB) GetParticipants(ctx context.Context, chatID string) ([]models.ChatParticipant, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT chat_id, user_id, joined_at, last_read_at
		FROM chat_participants
		WHERE chat_id = ?
		ORDER BY joined_at, user_id`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer closeQuietly(rows)

	var participants []models.ChatParticipant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return participants, nil
}

// GetParticipant returns one membership row or ErrParticipantNotFound.
func (db *DB) GetParticipant(ctx context.Context, chatID, userID string) (*models.ChatParticipant, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT chat_id, user_id, joined_at, last_read_at
		FROM chat_participants
		WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrParticipantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

// ParticipantIDs returns the user ids of a chat's participants.
func (db *DB) ParticipantIDs(ctx context.Context, chatID string) ([]string, error) {
	return db.queryIDs(ctx,
		`SELECT user_id FROM chat_participants WHERE chat_id = ? ORDER BY joined_at, user_id`, chatID)
}

// IsParticipant reports whether userID currently belongs to chatID.
func (db *DB) IsParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_participants WHERE chat_id = ? AND user_id = ?`, chatID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}
	return n > 0, nil
}

// CountParticipants returns the number of participants of a chat.
func (db *DB) CountParticipants(ctx context.Context, chatID string) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_participants WHERE chat_id = ?`, chatID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return n, nil
}

// PeerIDs returns the distinct users sharing at least one chat with userID.
func (db *DB) PeerIDs(ctx context.Context, userID string) ([]string, error) {
	return db.queryIDs(ctx, `
		SELECT DISTINCT other.user_id
		FROM chat_participants me
		JOIN chat_participants other ON other.chat_id = me.chat_id
		WHERE me.user_id = ? AND other.user_id <> me.user_id
		ORDER BY other.user_id`, userID)
}

// AddParticipant adds userID to chatID. The count check, the insert and the
// updated_at bump share one transaction so concurrent adds serialize on the
// chat row; a full chat yields ErrChatFull and an existing member
// ErrAlreadyParticipant.
func (db *DB) AddParticipant(ctx context.Context, chatID, userID string, maxParticipants int) (*models.ChatParticipant, error) {
	joined := now()
	err := db.withRetryTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM chat_participants WHERE chat_id = ? AND user_id = ?`, chatID, userID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check participant: %w", err)
		}
		if exists > 0 {
			return ErrAlreadyParticipant
		}

		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM chat_participants WHERE chat_id = ?`, chatID).Scan(&count); err != nil {
			return fmt.Errorf("failed to count participants: %w", err)
		}
		if count >= maxParticipants {
			return ErrChatFull
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chat_participants (chat_id, user_id, joined_at) VALUES (?, ?, ?)`,
			chatID, userID, joined); err != nil {
			if isConstraintViolation(err) {
				return ErrAlreadyParticipant
			}
			return fmt.Errorf("failed to insert participant: %w", err)
		}
		return touchChat(ctx, tx, chatID, joined)
	})
	if err != nil {
		return nil, err
	}
	return &models.ChatParticipant{ChatID: chatID, UserID: userID, JoinedAt: joined}, nil
}

// RestoreParticipant re-inserts userID into chatID when the row is missing,
// as happens when one side has left a DIRECT chat the other side still
// holds. restored is false when userID was already a participant.
func (db *DB) RestoreParticipant(ctx context.Context, chatID, userID string) (restored bool, err error) {
	joined := now()
	err = db.withRetryTx(ctx, func(tx *sql.Tx) error {
		restored = false

		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM chat_participants WHERE chat_id = ? AND user_id = ?`, chatID, userID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check participant: %w", err)
		}
		if exists > 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chat_participants (chat_id, user_id, joined_at) VALUES (?, ?, ?)`,
			chatID, userID, joined); err != nil {
			if isConstraintViolation(err) {
				return nil
			}
			return fmt.Errorf("failed to restore participant: %w", err)
		}
		restored = true
		return touchChat(ctx, tx, chatID, joined)
	})
	return restored, err
}

// RemoveParticipant deletes the membership row. When it was the last one
// the chat's receipts, messages and the chat itself go in the same
// transaction and deleted is true. A missing membership yields
// ErrParticipantNotFound.
func (db *DB) RemoveParticipant(ctx context.Context, chatID, userID string) (deleted bool, err error) {
	err = db.withRetryTx(ctx, func(tx *sql.Tx) error {
		deleted = false

		res, err := tx.ExecContext(ctx,
			`DELETE FROM chat_participants WHERE chat_id = ? AND user_id = ?`, chatID, userID)
		if err != nil {
			return fmt.Errorf("failed to delete participant: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrParticipantNotFound
		}

		var remaining int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM chat_participants WHERE chat_id = ?`, chatID).Scan(&remaining); err != nil {
			return fmt.Errorf("failed to count participants: %w", err)
		}
		if remaining > 0 {
			return touchChat(ctx, tx, chatID, now())
		}

		cascade := []string{
			`DELETE FROM message_read_receipts WHERE message_id IN (SELECT id FROM chat_messages WHERE chat_id = ?)`,
			`DELETE FROM chat_messages WHERE chat_id = ?`,
			`DELETE FROM chats WHERE id = ?`,
		}
		for _, query := range cascade {
			if _, err := tx.ExecContext(ctx, query, chatID); err != nil {
				return fmt.Errorf("failed to cascade delete chat %s: %w", chatID, err)
			}
		}
		deleted = true
		return nil
	})
	return deleted, err
}

// TouchLastRead sets the participant's last_read_at.
func (db *DB) TouchLastRead(ctx context.Context, chatID, userID string, at time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE chat_participants SET last_read_at = ? WHERE chat_id = ? AND user_id = ?`,
		at, chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to update last_read_at: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

func touchChat(ctx context.Context, tx *sql.Tx, chatID string, at time.Time) error {
	if _, err := tx.ExecContext(ctx, `UPDATE chats SET updated_at = ? WHERE id = ?`, at, chatID); err != nil {
		return fmt.Errorf("failed to update chat timestamp: %w", err)
	}
	return nil
}

func (db *DB) queryIDs(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer closeQuietly(rows)

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ids: %w", err)
	}
	return ids, nil
}

func scanChat(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.Chat, error) {
	chat := &models.Chat{}
	var chatType string
	var name sql.NullString
	if err := scanner.Scan(&chat.ID, &chatType, &name, &chat.CreatorID, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
		return nil, err
	}
	chat.Type = models.ChatType(chatType)
	if name.Valid {
		chat.Name = name.String
	}
	return chat, nil
}

func scanParticipant(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.ChatParticipant, error) {
	p := &models.ChatParticipant{}
	var lastReadAt sql.NullTime
	if err := scanner.Scan(&p.ChatID, &p.UserID, &p.JoinedAt, &lastReadAt); err != nil {
		return nil, err
	}
	if lastReadAt.Valid {
		p.LastReadAt = &lastReadAt.Time
	}
	return p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
