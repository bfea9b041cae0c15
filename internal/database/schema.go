// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaTimeout bounds each DDL batch so a wedged DuckDB fails fast at startup
const schemaTimeout = 60 * time.Second

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), schemaTimeout)
}

func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range db.getTableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}
	return nil
}

// getTableCreationQueries returns the CREATE TABLE statements in dependency
// order. There are no foreign keys: DuckDB cannot cascade them, and the
// zero-participant cascade deletes children explicitly.
func (db *DB) getTableCreationQueries() []string {
	return []string{
		// Local mirror of the identity service, read by the DuckDB directory.
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR PRIMARY KEY,
			display_name VARCHAR NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT true,
			deleted_at TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// direct_key is models.DirectKey of the pair for DIRECT chats and NULL for groups.
		// UNIQUE allows any number of NULLs.
		`CREATE TABLE IF NOT EXISTS chats (
			id VARCHAR PRIMARY KEY,
			type VARCHAR NOT NULL,
			name VARCHAR,
			creator_id VARCHAR NOT NULL,
			direct_key VARCHAR UNIQUE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS chat_participants (
			chat_id VARCHAR NOT NULL,
			user_id VARCHAR NOT NULL,
			joined_at TIMESTAMP NOT NULL,
			last_read_at TIMESTAMP,
			PRIMARY KEY (chat_id, user_id)
		)`,

		// mentioned_users is a JSON array of user ids.
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id VARCHAR PRIMARY KEY,
			chat_id VARCHAR NOT NULL,
			sender_id VARCHAR NOT NULL,
			content VARCHAR NOT NULL,
			mentioned_users VARCHAR NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS message_read_receipts (
			message_id VARCHAR NOT NULL,
			user_id VARCHAR NOT NULL,
			read_at TIMESTAMP NOT NULL,
			PRIMARY KEY (message_id, user_id)
		)`,

		// chat_id duplicates data.chatId so the read sync is a single UPDATE.
		`CREATE TABLE IF NOT EXISTS notifications (
			id VARCHAR PRIMARY KEY,
			user_id VARCHAR NOT NULL,
			type VARCHAR NOT NULL,
			title VARCHAR NOT NULL,
			message VARCHAR NOT NULL DEFAULT '',
			data VARCHAR,
			chat_id VARCHAR,
			is_read BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL
		)`,
	}
}

func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range db.getIndexQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// getIndexQueries covers the hot lookups only. DuckDB rewrites indexed
// columns on UPDATE as delete+insert, so flags that change (is_read,
// last_read_at, updated_at) are deliberately left unindexed.
func (db *DB) getIndexQueries() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_participants_user ON chat_participants(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat_created ON chat_messages(chat_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at)`,
	}
}
