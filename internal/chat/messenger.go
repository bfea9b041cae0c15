// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package chat

import (
	"context"
	"sync"
	"unicode/utf8"

	"github.com/tomtom215/wayfarer/internal/directory"
	"github.com/tomtom215/wayfarer/internal/logging"
	"github.com/tomtom215/wayfarer/internal/models"
	"github.com/tomtom215/wayfarer/internal/websocket"
)

// previewLength bounds the message excerpt placed in notifications.
const previewLength = 120

// Notifier creates and syncs notifications.
type Notifier interface {
	CreateNotification(ctx context.Context, in models.NewNotification) (*models.Notification, error)
	MarkChatNotificationsAsRead(ctx context.Context, userID, chatID string) (int, error)
}

// Messenger runs chat mutations and their side effects. Each mutation is
// persisted first; its broadcast and then its notifications run on a
// background goroutine the caller does not wait for. Side-effect failures
// are logged and never returned.
type Messenger struct {
	chats    *Service
	sender   websocket.Sender
	notifier Notifier
	users    directory.Directory

	wg sync.WaitGroup
}

// NewMessenger creates a messenger.
func NewMessenger(chats *Service, sender websocket.Sender, notifier Notifier, users directory.Directory) *Messenger {
	return &Messenger{chats: chats, sender: sender, notifier: notifier, users: users}
}

// Chats returns the underlying service.
func (m *Messenger) Chats() *Service {
	return m.chats
}

// Wait blocks until every side effect started so far has finished.
func (m *Messenger) Wait() {
	m.wg.Wait()
}

// async runs fn detached from ctx cancellation but keeping its values, so
// request and correlation ids still reach the logs.
func (m *Messenger) async(ctx context.Context, fn func(ctx context.Context)) {
	ctx = context.WithoutCancel(ctx)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn(ctx)
	}()
}

// Send persists a message, delivers CHAT_MESSAGE to every participant
// (the sender's other devices included) and creates one notification per
// participant other than the sender: CHAT_MENTION for those mentioned,
// CHAT_MESSAGE for the rest.
func (m *Messenger) Send(ctx context.Context, userID, chatID, content string, mentionedUsers []string) (*models.ChatMessage, error) {
	msg, err := m.chats.SendMessage(ctx, userID, chatID, content, mentionedUsers)
	if err != nil {
		return nil, err
	}

	m.async(ctx, func(ctx context.Context) { m.fanOut(ctx, msg) })
	return msg, nil
}

func (m *Messenger) fanOut(ctx context.Context, msg *models.ChatMessage) {
	userID, chatID := msg.SenderID, msg.ChatID
	participants := m.participants(ctx, chatID)
	m.sender.SendToUsers(participants, websocket.ChatMessageEvent(msg))

	senderName := m.displayName(ctx, userID)
	mentioned := make(map[string]bool, len(msg.MentionedUsers))
	for _, id := range msg.MentionedUsers {
		mentioned[id] = true
	}

	for _, recipient := range participants {
		if recipient == userID {
			continue
		}
		in := models.NewNotification{
			UserID:  recipient,
			Type:    models.NotificationChatMessage,
			Title:   "New message from " + senderName,
			Message: preview(msg.Content),
			ChatID:  chatID,
			Data: map[string]interface{}{
				"chatId":    chatID,
				"messageId": msg.ID,
				"senderId":  userID,
			},
		}
		if mentioned[recipient] {
			in.Type = models.NotificationChatMention
			in.Title = senderName + " mentioned you"
		}
		m.notify(ctx, in)
	}
}

// MarkRead records receipts and, when any were new, delivers CHAT_READ to
// participants and marks the reader's notifications for the chat as read.
func (m *Messenger) MarkRead(ctx context.Context, userID, chatID, messageID string) (int, error) {
	marked, err := m.chats.MarkAsRead(ctx, userID, chatID, messageID)
	if err != nil || marked == 0 {
		return marked, err
	}

	m.async(ctx, func(ctx context.Context) {
		m.sender.SendToUsers(m.participants(ctx, chatID), websocket.ReadEvent(chatID, userID, marked, messageID))

		if _, err := m.notifier.MarkChatNotificationsAsRead(ctx, userID, chatID); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("chat_id", chatID).Msg("Failed to sync chat notifications after read")
		}
	})
	return marked, nil
}

// AddParticipant adds newUserID, announces CHAT_PARTICIPANT_ADDED to the
// chat and notifies the added user.
func (m *Messenger) AddParticipant(ctx context.Context, userID, chatID, newUserID string) (*models.ChatParticipant, error) {
	p, err := m.chats.AddParticipant(ctx, userID, chatID, newUserID)
	if err != nil {
		return nil, err
	}

	m.async(ctx, func(ctx context.Context) {
		name := m.displayName(ctx, newUserID)
		m.sender.SendToUsers(m.participants(ctx, chatID), websocket.ParticipantAddedEvent(chatID, newUserID, name))

		title := "You were added to a group chat"
		if chat, err := m.chats.db.GetChat(ctx, chatID); err == nil && chat.Name != "" {
			title = "You were added to " + chat.Name
		}
		m.notify(ctx, models.NewNotification{
			UserID:  newUserID,
			Type:    models.NotificationParticipantAdded,
			Title:   title,
			Message: m.displayName(ctx, userID) + " added you to the conversation",
			ChatID:  chatID,
			Data: map[string]interface{}{
				"chatId":  chatID,
				"addedBy": userID,
			},
		})
	})
	return p, nil
}

// Leave removes userID and, when the chat survives, announces
// CHAT_PARTICIPANT_LEFT to the remaining participants.
func (m *Messenger) Leave(ctx context.Context, userID, chatID string) (bool, error) {
	deleted, err := m.chats.LeaveChat(ctx, userID, chatID)
	if err != nil || deleted {
		return deleted, err
	}

	m.async(ctx, func(ctx context.Context) {
		m.sender.SendToUsers(m.participants(ctx, chatID),
			websocket.ParticipantLeftEvent(chatID, userID, m.displayName(ctx, userID)))
	})
	return false, nil
}

func (m *Messenger) participants(ctx context.Context, chatID string) []string {
	ids, err := m.chats.ParticipantIDs(ctx, chatID)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("chat_id", chatID).Msg("Failed to load participants for broadcast")
		return nil
	}
	return ids
}

func (m *Messenger) notify(ctx context.Context, in models.NewNotification) {
	if _, err := m.notifier.CreateNotification(ctx, in); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("user_id", in.UserID).Str("type", string(in.Type)).
			Msg("Failed to create notification")
	}
}

// displayName falls back to the id when the directory has no name.
func (m *Messenger) displayName(ctx context.Context, userID string) string {
	user, err := m.users.FindUser(ctx, userID)
	if err != nil || user == nil || user.DisplayName == "" {
		return userID
	}
	return user.DisplayName
}

func preview(content string) string {
	if utf8.RuneCountInString(content) <= previewLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:previewLength-1]) + "…"
}

var _ websocket.ChatHandler = (*Messenger)(nil)
