// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package presence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/wayfarer/internal/config"
)

// gcDiscardRatio is the value-log rewrite threshold used by RunGC.
const gcDiscardRatio = 0.5

// BadgerStore is a Store on BadgerDB's native per-entry TTL. Badger
// expiry has one-second resolution.
type BadgerStore struct {
	db     *badger.DB
	owned  bool
	closed bool
	mu     sync.RWMutex
}

// OpenBadgerStore opens a BadgerDB at cfg.Path, or purely in memory when
// cfg.InMemory is set.
//
// Example:
//
//	store, err := presence.OpenBadgerStore(&cfg.Presence)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func OpenBadgerStore(cfg *config.PresenceConfig) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil // Suppress BadgerDB internal logs
	// Presence values are tiny and short-lived
	opts.ValueLogFileSize = 16 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for presence: %w", err)
	}
	return &BadgerStore{db: db, owned: true}, nil
}

// NewBadgerStoreFromDB wraps an existing BadgerDB. Close does not close db.
func NewBadgerStoreFromDB(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func (s *BadgerStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Put implements Store.
func (s *BadgerStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value).WithTTL(ttl)
		return txn.SetEntry(e)
	})
}

// Get implements Store.
func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Delete implements Store.
func (s *BadgerStore) Delete(_ context.Context, key string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Exists implements Store.
func (s *BadgerStore) Exists(_ context.Context, key string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return true, nil
}

// RunGC runs one value-log garbage collection pass. Nothing to reclaim
// (badger.ErrNoRewrite) and a pass already running (badger.ErrRejected) are
// not reported. In-memory databases have no value log and always return nil.
func (s *BadgerStore) RunGC() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.db.Opts().InMemory {
		return nil
	}
	err := s.db.RunValueLogGC(gcDiscardRatio)
	if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
		return nil
	}
	return err
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.owned {
		return s.db.Close()
	}
	return nil
}
