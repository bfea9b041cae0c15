// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package presence tracks who is online and who is typing. Both are
// ephemeral TTL entries in a Store; absence of a key is the only "offline"
// or "not typing" state.
package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfarer/internal/config"
	"github.com/tomtom215/wayfarer/internal/logging"
	"github.com/tomtom215/wayfarer/internal/metrics"
	"github.com/tomtom215/wayfarer/internal/models"
	"github.com/tomtom215/wayfarer/internal/websocket"
)

const (
	defaultTTL       = 60 * time.Second
	defaultTypingTTL = 5 * time.Second

	presenceKeyPrefix = "presence:"
	typingKeyPrefix   = "typing:"
)

// Entry is the value stored under presence:<userID>.
type Entry struct {
	UserID        string    `json:"userId"`
	ConnectionID  string    `json:"connectionId"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
}

// Membership answers chat membership questions for typing and for picking
// who hears presence announcements.
type Membership interface {
	IsParticipant(ctx context.Context, chatID, userID string) (bool, error)
	ParticipantIDs(ctx context.Context, chatID string) ([]string, error)
	PeerIDs(ctx context.Context, userID string) ([]string, error)
}

// UserFinder resolves display names for typing frames.
type UserFinder interface {
	FindUser(ctx context.Context, userID string) (*models.User, error)
}

// Service owns presence markers and typing indicators.
type Service struct {
	store   Store
	sender  websocket.Sender
	members Membership
	users   UserFinder

	ttl       time.Duration
	typingTTL time.Duration
	now       func() time.Time
}

// NewService creates a presence service. Zero TTLs in cfg select 60s and 5s.
func NewService(store Store, sender websocket.Sender, members Membership, users UserFinder, cfg *config.PresenceConfig) *Service {
	s := &Service{
		store:     store,
		sender:    sender,
		members:   members,
		users:     users,
		ttl:       defaultTTL,
		typingTTL: defaultTypingTTL,
		now:       time.Now,
	}
	if cfg != nil {
		if cfg.TTL > 0 {
			s.ttl = cfg.TTL
		}
		if cfg.TypingTTL > 0 {
			s.typingTTL = cfg.TypingTTL
		}
	}
	return s
}

func presenceKey(userID string) string {
	return presenceKeyPrefix + userID
}

// SetUserOnline writes the presence marker for userID.
func (s *Service) SetUserOnline(ctx context.Context, userID, connectionID string) error {
	return s.putEntry(ctx, Entry{UserID: userID, ConnectionID: connectionID, LastHeartbeat: s.now().UTC()})
}

// Heartbeat refreshes the marker's TTL and lastHeartbeat. An empty
// connectionID keeps the one already stored.
func (s *Service) Heartbeat(ctx context.Context, userID, connectionID string) error {
	if connectionID == "" {
		if current, err := s.Get(ctx, userID); err == nil && current != nil {
			connectionID = current.ConnectionID
		}
	}
	return s.SetUserOnline(ctx, userID, connectionID)
}

// SetUserOffline clears the marker.
func (s *Service) SetUserOffline(ctx context.Context, userID string) error {
	err := s.store.Delete(ctx, presenceKey(userID))
	metrics.RecordPresenceOp("delete", err)
	if err != nil {
		return fmt.Errorf("failed to clear presence of %s: %w", userID, err)
	}
	return nil
}

// IsOnline reports whether a live marker exists.
func (s *Service) IsOnline(ctx context.Context, userID string) (bool, error) {
	ok, err := s.store.Exists(ctx, presenceKey(userID))
	metrics.RecordPresenceOp("get", err)
	if err != nil {
		return false, fmt.Errorf("failed to read presence of %s: %w", userID, err)
	}
	return ok, nil
}

// Get returns the live marker, or nil when the user is offline.
func (s *Service) Get(ctx context.Context, userID string) (*Entry, error) {
	data, err := s.store.Get(ctx, presenceKey(userID))
	if errors.Is(err, ErrKeyNotFound) {
		metrics.PresenceStoreOps.WithLabelValues("get", "miss").Inc()
		return nil, nil
	}
	metrics.RecordPresenceOp("get", err)
	if err != nil {
		return nil, fmt.Errorf("failed to read presence of %s: %w", userID, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode presence of %s: %w", userID, err)
	}
	return &entry, nil
}

// Connect marks userID online and announces PRESENCE_ONLINE to peers.
// The announcement is best-effort.
func (s *Service) Connect(ctx context.Context, userID, connectionID string) error {
	if err := s.SetUserOnline(ctx, userID, connectionID); err != nil {
		return err
	}
	s.announce(ctx, userID, true)
	return nil
}

// Disconnect clears presence and announces PRESENCE_OFFLINE to peers.
// The announcement happens even when clearing fails; the TTL cleans up.
func (s *Service) Disconnect(ctx context.Context, userID string) error {
	err := s.SetUserOffline(ctx, userID)
	s.announce(ctx, userID, false)
	return err
}

func (s *Service) announce(ctx context.Context, userID string, online bool) {
	peers, err := s.members.PeerIDs(ctx, userID)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Bool("online", online).Msg("Failed to load presence peers")
		return
	}
	delivered := s.sender.SendToUsers(peers, websocket.PresenceEvent(online, userID))
	logging.Ctx(ctx).Debug().
		Str("user_id", userID).
		Bool("online", online).
		Int("peers", len(peers)).
		Int("delivered", delivered).
		Msg("Presence announced")
}

func (s *Service) putEntry(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode presence: %w", err)
	}
	err = s.store.Put(ctx, presenceKey(entry.UserID), data, s.ttl)
	metrics.RecordPresenceOp("put", err)
	if err != nil {
		return fmt.Errorf("failed to store presence of %s: %w", entry.UserID, err)
	}
	return nil
}
