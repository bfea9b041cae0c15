// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package chat

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tomtom215/wayfarer/internal/database"
	"github.com/tomtom215/wayfarer/internal/directory"
	"github.com/tomtom215/wayfarer/internal/logging"
	"github.com/tomtom215/wayfarer/internal/metrics"
	"github.com/tomtom215/wayfarer/internal/models"
	"github.com/tomtom215/wayfarer/internal/validation"
)

// Pagination bounds for message history.
const (
	DefaultPage  = 1
	DefaultLimit = 50
	MaxLimit     = 100
)

// Authorizer decides role capabilities.
type Authorizer interface {
	CanCreateGroup(userID string, roles []string) (bool, error)
}

// MessagePage selects a page of history. A non-empty Before overrides Page.
type MessagePage struct {
	Page   int
	Limit  int
	Before string
}

// Normalized clamps the page into range.
func (p MessagePage) Normalized() MessagePage {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

type messageInput struct {
	Content string `json:"content" validate:"required,max=5000"`
}

// Service persists chats, participants, messages and receipts. It performs
// no real-time delivery; see Messenger.
type Service struct {
	db    *database.DB
	users directory.Directory
	authz Authorizer
	now   func() time.Time
}

// NewService creates a chat service.
func NewService(db *database.DB, users directory.Directory, authz Authorizer) *Service {
	return &Service{db: db, users: users, authz: authz, now: func() time.Time { return time.Now().UTC() }}
}

// CreateDirectChat returns the DIRECT chat between userID and otherUserID,
// creating it when none exists. created reports whether this call made it.
func (s *Service) CreateDirectChat(ctx context.Context, userID, otherUserID string) (chat *models.Chat, created bool, err error) {
	if otherUserID == "" {
		return nil, false, models.BadRequest("otherUserId is required")
	}
	if userID == otherUserID {
		return nil, false, models.BadRequest("cannot create a direct chat with yourself")
	}

	other, err := s.users.FindUser(ctx, otherUserID)
	if err != nil && !errors.Is(err, directory.ErrUserNotFound) {
		return nil, false, s.internal(ctx, err, "failed to look up user")
	}
	if !other.Usable() {
		return nil, false, models.NotFound("user %s not found", otherUserID)
	}

	existing, err := s.findDirect(ctx, userID, otherUserID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if err := s.rejoinDirect(ctx, existing, userID, otherUserID); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	chat = &models.Chat{Type: models.ChatTypeDirect, CreatorID: userID}
	err = s.db.CreateChat(ctx, chat, []string{userID, otherUserID})
	if errors.Is(err, database.ErrDirectChatExists) {
		// Lost the race to a concurrent create for the same pair.
		winner, ferr := s.findDirect(ctx, userID, otherUserID)
		if ferr != nil {
			return nil, false, ferr
		}
		if winner == nil {
			return nil, false, s.internal(ctx, err, "failed to create direct chat")
		}
		if err := s.rejoinDirect(ctx, winner, userID, otherUserID); err != nil {
			return nil, false, err
		}
		return winner, false, nil
	}
	if err != nil {
		return nil, false, s.internal(ctx, err, "failed to create direct chat")
	}

	metrics.ChatsCreated.WithLabelValues(string(models.ChatTypeDirect)).Inc()
	logging.Ctx(ctx).Info().Str("chat_id", chat.ID).Str("type", "DIRECT").Msg("Chat created")
	return chat, true, nil
}

func (s *Service) findDirect(ctx context.Context, a, b string) (*models.Chat, error) {
	chat, err := s.db.FindDirectChat(ctx, a, b)
	if errors.Is(err, database.ErrChatNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.internal(ctx, err, "failed to look up direct chat")
	}
	if chat.Participants, err = s.db.GetParticipants(ctx, chat.ID); err != nil {
		return nil, s.internal(ctx, err, "failed to load participants")
	}
	return chat, nil
}

// rejoinDirect restores whichever of the pair left the chat so the returned
// chat always contains both users.
func (s *Service) rejoinDirect(ctx context.Context, chat *models.Chat, a, b string) error {
	present := make(map[string]struct{}, len(chat.Participants))
	for _, p := range chat.Participants {
		present[p.UserID] = struct{}{}
	}

	rejoined := false
	for _, id := range []string{a, b} {
		if _, ok := present[id]; ok {
			continue
		}
		restored, err := s.db.RestoreParticipant(ctx, chat.ID, id)
		if err != nil {
			return s.internal(ctx, err, "failed to restore direct chat participant")
		}
		if restored {
			rejoined = true
			logging.Ctx(ctx).Info().Str("chat_id", chat.ID).Str("user_id", id).Msg("Participant rejoined direct chat")
		}
	}
	if !rejoined {
		return nil
	}

	participants, err := s.db.GetParticipants(ctx, chat.ID)
	if err != nil {
		return s.internal(ctx, err, "failed to load participants")
	}
	chat.Participants = participants
	return nil
}

// CreateGroupChat creates a named GROUP chat owned by creatorID. Every
// listed participant must exist and be active or nothing is created.
func (s *Service) CreateGroupChat(ctx context.Context, creatorID string, roles []string, name string, participantIDs []string) (*models.Chat, error) {
	allowed, err := s.authz.CanCreateGroup(creatorID, roles)
	if err != nil {
		return nil, s.internal(ctx, err, "failed to authorize group creation")
	}
	if !allowed {
		return nil, models.Forbidden("you are not allowed to create group chats")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.BadRequest("name is required")
	}
	if utf8.RuneCountInString(name) > models.MaxChatNameLength {
		return nil, models.BadRequest("name must be at most %d characters", models.MaxChatNameLength)
	}

	others := models.UniqueIDs(participantIDs, creatorID)
	if 1+len(others) > models.MaxGroupParticipants {
		return nil, models.BadRequest("a group chat holds at most %d participants", models.MaxGroupParticipants)
	}

	if len(others) > 0 {
		users, err := s.users.FindUsers(ctx, others)
		if err != nil {
			return nil, s.internal(ctx, err, "failed to look up participants")
		}
		if bad := directory.Unusable(others, users); len(bad) > 0 {
			return nil, models.NotFound("some participants were not found").
				WithDetails(map[string]interface{}{"userIds": bad})
		}
	}

	chat := &models.Chat{Type: models.ChatTypeGroup, Name: name, CreatorID: creatorID}
	if err := s.db.CreateChat(ctx, chat, append([]string{creatorID}, others...)); err != nil {
		return nil, s.internal(ctx, err, "failed to create group chat")
	}

	metrics.ChatsCreated.WithLabelValues(string(models.ChatTypeGroup)).Inc()
	logging.Ctx(ctx).Info().Str("chat_id", chat.ID).Str("type", "GROUP").
		Int("participants", len(chat.Participants)).Msg("Chat created")
	return chat, nil
}

// SendMessage persists a message from userID. Mentions are deduplicated and
// must all be current participants.
func (s *Service) SendMessage(ctx context.Context, userID, chatID, content string, mentionedUsers []string) (*models.ChatMessage, error) {
	chat, err := s.authorize(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(content) == "" {
		return nil, models.BadRequest("content is required")
	}
	if verr := validation.ValidateStruct(&messageInput{Content: content}); verr != nil {
		return nil, verr.ToDomainError()
	}

	mentions := models.UniqueIDs(mentionedUsers)
	if len(mentions) > 0 {
		participants, err := s.db.ParticipantIDs(ctx, chatID)
		if err != nil {
			return nil, s.internal(ctx, err, "failed to load participants")
		}
		members := make(map[string]struct{}, len(participants))
		for _, id := range participants {
			members[id] = struct{}{}
		}
		var outsiders []string
		for _, id := range mentions {
			if _, ok := members[id]; !ok {
				outsiders = append(outsiders, id)
			}
		}
		if len(outsiders) > 0 {
			return nil, models.BadRequest("mentioned users must be participants of the chat").
				WithDetails(map[string]interface{}{"userIds": outsiders})
		}
	}

	msg := &models.ChatMessage{
		ChatID:         chatID,
		SenderID:       userID,
		Content:        content,
		MentionedUsers: mentions,
	}
	if err := s.db.InsertMessage(ctx, msg); err != nil {
		return nil, s.internal(ctx, err, "failed to save message")
	}

	metrics.ChatMessagesSent.WithLabelValues(string(chat.Type)).Inc()
	return msg, nil
}

// GetMessages returns a page of history newest first.
func (s *Service) GetMessages(ctx context.Context, userID, chatID string, page MessagePage) ([]*models.ChatMessage, error) {
	if _, err := s.authorize(ctx, chatID, userID); err != nil {
		return nil, err
	}

	page = page.Normalized()
	msgs, err := s.db.ListMessages(ctx, chatID, database.MessageQuery{
		Before: page.Before,
		Limit:  page.Limit,
		Offset: (page.Page - 1) * page.Limit,
	})
	if errors.Is(err, database.ErrMessageNotFound) {
		return nil, models.NotFound("message %s not found in chat", page.Before)
	}
	if err != nil {
		return nil, s.internal(ctx, err, "failed to load messages")
	}
	if msgs == nil {
		msgs = []*models.ChatMessage{}
	}
	return msgs, nil
}

// MarkAsRead sets userID's lastReadAt and records receipts for every message
// from others up to and including upToMessageID (all of them when empty).
// It returns how many receipts were new.
func (s *Service) MarkAsRead(ctx context.Context, userID, chatID, upToMessageID string) (int, error) {
	if _, err := s.authorize(ctx, chatID, userID); err != nil {
		return 0, err
	}

	readAt := s.now()
	if err := s.db.TouchLastRead(ctx, chatID, userID, readAt); err != nil {
		if errors.Is(err, database.ErrParticipantNotFound) {
			return 0, models.Forbidden("you are not a participant of this chat")
		}
		return 0, s.internal(ctx, err, "failed to update read position")
	}

	marked, err := s.db.InsertReadReceipts(ctx, chatID, userID, upToMessageID, readAt)
	if errors.Is(err, database.ErrMessageNotFound) {
		return 0, models.NotFound("message %s not found in chat", upToMessageID)
	}
	if err != nil {
		return 0, s.internal(ctx, err, "failed to record read receipts")
	}

	metrics.ChatReceiptsMarked.Add(float64(marked))
	return marked, nil
}

// AddParticipant adds newUserID to a GROUP chat. Only its creator may do so.
func (s *Service) AddParticipant(ctx context.Context, userID, chatID, newUserID string) (*models.ChatParticipant, error) {
	chat, err := s.authorize(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if chat.Type != models.ChatTypeGroup {
		return nil, models.BadRequest("participants can only be added to group chats")
	}
	if chat.CreatorID != userID {
		return nil, models.Forbidden("only the chat creator can add participants")
	}
	if newUserID == "" {
		return nil, models.BadRequest("userId is required")
	}

	user, err := s.users.FindUser(ctx, newUserID)
	if err != nil && !errors.Is(err, directory.ErrUserNotFound) {
		return nil, s.internal(ctx, err, "failed to look up user")
	}
	if !user.Usable() {
		return nil, models.NotFound("user %s not found", newUserID)
	}

	p, err := s.db.AddParticipant(ctx, chatID, newUserID, models.MaxGroupParticipants)
	switch {
	case errors.Is(err, database.ErrAlreadyParticipant):
		return nil, models.BadRequest("user is already a participant")
	case errors.Is(err, database.ErrChatFull):
		return nil, models.BadRequest("a group chat holds at most %d participants", models.MaxGroupParticipants)
	case err != nil:
		return nil, s.internal(ctx, err, "failed to add participant")
	}
	return p, nil
}

// LeaveChat removes userID from the chat. deleted is true when the chat had
// no participants left and was removed with its history.
func (s *Service) LeaveChat(ctx context.Context, userID, chatID string) (deleted bool, err error) {
	if _, err := s.authorize(ctx, chatID, userID); err != nil {
		return false, err
	}

	deleted, err = s.db.RemoveParticipant(ctx, chatID, userID)
	if errors.Is(err, database.ErrParticipantNotFound) {
		return false, models.Forbidden("you are not a participant of this chat")
	}
	if err != nil {
		return false, s.internal(ctx, err, "failed to leave chat")
	}

	if deleted {
		metrics.ChatsDeleted.Inc()
		logging.Ctx(ctx).Info().Str("chat_id", chatID).Msg("Chat deleted after last participant left")
	}
	return deleted, nil
}

// ListChats returns userID's chats, most recently active first.
func (s *Service) ListChats(ctx context.Context, userID string) ([]*models.Chat, error) {
	chats, err := s.db.ListChatsForUser(ctx, userID)
	if err != nil {
		return nil, s.internal(ctx, err, "failed to list chats")
	}
	if chats == nil {
		chats = []*models.Chat{}
	}
	return chats, nil
}

// GetChat returns a chat with its participants.
func (s *Service) GetChat(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	chat, err := s.authorize(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if chat.Participants, err = s.db.GetParticipants(ctx, chatID); err != nil {
		return nil, s.internal(ctx, err, "failed to load participants")
	}
	return chat, nil
}

// IsParticipant reports current membership.
func (s *Service) IsParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	return s.db.IsParticipant(ctx, chatID, userID)
}

// ParticipantIDs returns the chat's current participant ids.
func (s *Service) ParticipantIDs(ctx context.Context, chatID string) ([]string, error) {
	return s.db.ParticipantIDs(ctx, chatID)
}

// PeerIDs returns every user sharing at least one chat with userID.
func (s *Service) PeerIDs(ctx context.Context, userID string) ([]string, error) {
	return s.db.PeerIDs(ctx, userID)
}

// authorize loads the chat and checks that userID participates in it.
func (s *Service) authorize(ctx context.Context, chatID, userID string) (*models.Chat, error) {
	if chatID == "" {
		return nil, models.BadRequest("chatId is required")
	}
	chat, err := s.db.GetChat(ctx, chatID)
	if errors.Is(err, database.ErrChatNotFound) {
		return nil, models.NotFound("chat %s not found", chatID)
	}
	if err != nil {
		return nil, s.internal(ctx, err, "failed to load chat")
	}

	ok, err := s.db.IsParticipant(ctx, chatID, userID)
	if err != nil {
		return nil, s.internal(ctx, err, "failed to check membership")
	}
	if !ok {
		return nil, models.Forbidden("you are not a participant of this chat")
	}
	return chat, nil
}

func (s *Service) internal(ctx context.Context, err error, message string) error {
	logging.Ctx(ctx).Error().Err(err).Msg(message)
	return models.Internal(err, message)
}
