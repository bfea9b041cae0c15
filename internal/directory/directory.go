// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package directory looks up marketplace accounts by id.
//
// Accounts are owned by the identity service; this package only answers
// whether an id exists and whether it is usable (active and not deleted).
// Three implementations are provided: DuckDBDirectory reads the local users
// mirror table, HTTPDirectory calls the identity service behind a circuit
// breaker, and Cached wraps either with a TTL cache.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/wayfarer/internal/config"
	"github.com/tomtom215/wayfarer/internal/database"
	"github.com/tomtom215/wayfarer/internal/models"
)

// ErrUserNotFound is returned by FindUser for an unknown id.
var ErrUserNotFound = errors.New("user not found")

// Directory resolves user ids.
type Directory interface {
	// FindUser returns the user or ErrUserNotFound.
	FindUser(ctx context.Context, id string) (*models.User, error)

	// FindUsers returns the known users among ids keyed by id. Unknown ids
	// are absent from the map; they are not an error.
	FindUsers(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// New builds the directory selected by cfg.Backend, wrapped in a cache when
// cfg.CacheTTL is positive. db is required for the duckdb backend.
func New(cfg *config.DirectoryConfig, db *database.DB) (Directory, error) {
	var dir Directory
	switch cfg.Backend {
	case "", "duckdb":
		if db == nil {
			return nil, fmt.Errorf("duckdb directory requires a database")
		}
		dir = NewDuckDBDirectory(db)
	case "http":
		dir = NewHTTPDirectory(cfg)
	default:
		return nil, fmt.Errorf("unknown directory backend %q", cfg.Backend)
	}

	if cfg.CacheTTL > 0 {
		dir = NewCached(dir, cfg.CacheTTL)
	}
	return dir, nil
}

// Unusable returns the ids that are missing from users or not usable, in
// input order.
func Unusable(ids []string, users map[string]*models.User) []string {
	var bad []string
	for _, id := range ids {
		if !users[id].Usable() {
			bad = append(bad, id)
		}
	}
	return bad
}
