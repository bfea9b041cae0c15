// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/wayfarer/internal/logging"
)

// DefaultGCInterval applies when NewPresenceGCService gets a non-positive
// interval.
const DefaultGCInterval = 5 * time.Minute

// maxConsecutiveGCFailures is how many failed passes in a row make Serve
// return so suture restarts it with backoff.
const maxConsecutiveGCFailures = 3

// GarbageCollector is satisfied by *presence.BadgerStore.
type GarbageCollector interface {
	RunGC() error
}

// PresenceGCService reclaims badger value-log space left behind by expired
// presence and typing keys.
type PresenceGCService struct {
	store    GarbageCollector
	interval time.Duration
	name     string
}

// NewPresenceGCService runs store.RunGC every interval.
func NewPresenceGCService(store GarbageCollector, interval time.Duration) *PresenceGCService {
	if interval <= 0 {
		interval = DefaultGCInterval
	}
	return &PresenceGCService{store: store, interval: interval, name: "presence-gc"}
}

// Serve implements suture.Service.
func (s *PresenceGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.store.RunGC(); err != nil {
				failures++
				logging.Warn().Err(err).Int("consecutive_failures", failures).Msg("Presence store GC failed")
				if failures >= maxConsecutiveGCFailures {
					return fmt.Errorf("presence gc failed %d times: %w", failures, err)
				}
				continue
			}
			failures = 0
		}
	}
}

func (s *PresenceGCService) String() string {
	return s.name
}
