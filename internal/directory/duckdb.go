// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package directory

import (
	"context"
	"errors"

	"github.com/tomtom215/wayfarer/internal/database"
	"github.com/tomtom215/wayfarer/internal/models"
)

// DuckDBDirectory reads the users mirror table.
type DuckDBDirectory struct {
	db *database.DB
}

// NewDuckDBDirectory creates a directory over db.
func NewDuckDBDirectory(db *database.DB) *DuckDBDirectory {
	return &DuckDBDirectory{db: db}
}

// FindUser implements Directory.
func (d *DuckDBDirectory) FindUser(ctx context.Context, id string) (*models.User, error) {
	user, err := d.db.GetUser(ctx, id)
	if errors.Is(err, database.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// FindUsers implements Directory.
func (d *DuckDBDirectory) FindUsers(ctx context.Context, ids []string) (map[string]*models.User, error) {
	return d.db.GetUsers(ctx, ids)
}

var _ Directory = (*DuckDBDirectory)(nil)
