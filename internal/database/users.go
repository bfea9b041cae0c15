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
	"strings"

	"github.com/tomtom215/wayfarer/internal/models"
)

// UpsertUser creates or replaces a row in the local user mirror.
func (db *DB) UpsertUser(ctx context.Context, user *models.User) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO users (id, display_name, is_active, deleted_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			display_name = excluded.display_name,
			is_active = excluded.is_active,
			deleted_at = excluded.deleted_at,
			updated_at = excluded.updated_at`,
		user.ID, user.DisplayName, user.IsActive, nullTime(user.DeletedAt), now())
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", user.ID, err)
	}
	return nil
}

// GetUser returns a mirrored user or ErrUserNotFound.
func (db *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, display_name, is_active, deleted_at FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return user, nil
}

// GetUsers returns the mirrored users among ids keyed by id. Missing ids are
// simply absent from the map.
func (db *DB) GetUsers(ctx context.Context, ids []string) (map[string]*models.User, error) {
	out := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `SELECT id, display_name, is_active, deleted_at FROM users WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := db.conn.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return out, nil
}

func scanUser(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.User, error) {
	user := &models.User{}
	var deletedAt sql.NullTime
	if err := scanner.Scan(&user.ID, &user.DisplayName, &user.IsActive, &deletedAt); err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		user.DeletedAt = &deletedAt.Time
	}
	return user, nil
}

// placeholders returns "?, ?, ..." for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
