// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/wayfarer/internal/config"
	"github.com/tomtom215/wayfarer/internal/database"
	"github.com/tomtom215/wayfarer/internal/models"
)

func TestDuckDBDirectory(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping DuckDB-backed test in short mode")
	}
	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "1GB"})
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for _, u := range []*models.User{
		{ID: "alice", DisplayName: "Alice", IsActive: true},
		{ID: "bob", DisplayName: "Bob", IsActive: false},
	} {
		if err := db.UpsertUser(ctx, u); err != nil {
			t.Fatalf("UpsertUser() error = %v", err)
		}
	}

	dir := NewDuckDBDirectory(db)

	u, err := dir.FindUser(ctx, "alice")
	if err != nil || u.DisplayName != "Alice" || !u.Usable() {
		t.Errorf("FindUser(alice) = %+v, %v", u, err)
	}
	if _, err := dir.FindUser(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("FindUser(ghost) error = %v, want ErrUserNotFound", err)
	}

	users, err := dir.FindUsers(ctx, []string{"alice", "bob", "ghost"})
	if err != nil {
		t.Fatalf("FindUsers() error = %v", err)
	}
	if len(users) != 2 {
		t.Errorf("FindUsers() returned %d users, want 2", len(users))
	}
	if bad := Unusable([]string{"alice", "bob", "ghost"}, users); len(bad) != 2 {
		t.Errorf("Unusable() = %v, want [bob ghost]", bad)
	}
}
