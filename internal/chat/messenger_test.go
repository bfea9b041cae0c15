// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/tomtom215/wayfarer/internal/directory"
	"github.com/tomtom215/wayfarer/internal/models"
	"github.com/tomtom215/wayfarer/internal/websocket"
)

type sentFrame struct {
	to  []string
	msg websocket.Message
}

// recordingSender captures frames instead of writing to sockets.
type recordingSender struct {
	mu     sync.Mutex
	frames []sentFrame
}

func (r *recordingSender) SendToUser(userID string, msg websocket.Message) bool {
	return r.SendToUsers([]string{userID}, msg) == 1
}

func (r *recordingSender) SendToUsers(userIDs []string, msg websocket.Message) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, sentFrame{to: append([]string(nil), userIDs...), msg: msg})
	return len(userIDs)
}

func (r *recordingSender) Broadcast(msg websocket.Message) int {
	return r.SendToUsers(nil, msg)
}

func (r *recordingSender) ofType(typ string) []sentFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentFrame
	for _, f := range r.frames {
		if f.msg.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

// fakeNotifier stores notifications in memory.
type fakeNotifier struct {
	mu        sync.Mutex
	created   []models.NewNotification
	chatReads []string
	err       error
}

func (n *fakeNotifier) CreateNotification(_ context.Context, in models.NewNotification) (*models.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return nil, n.err
	}
	n.created = append(n.created, in)
	return &models.Notification{ID: "n", UserID: in.UserID, Type: in.Type, Title: in.Title}, nil
}

func (n *fakeNotifier) MarkChatNotificationsAsRead(_ context.Context, userID, chatID string) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.chatReads = append(n.chatReads, userID+"@"+chatID)
	return 1, n.err
}

func (n *fakeNotifier) byRecipient() map[string]models.NewNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[string]models.NewNotification, len(n.created))
	for _, in := range n.created {
		out[in.UserID] = in
	}
	return out
}

func newMessenger(t *testing.T) (*fixture, *Messenger, *recordingSender, *fakeNotifier) {
	t.Helper()
	f := setup(t)
	sender := &recordingSender{}
	notifier := &fakeNotifier{}
	m := NewMessenger(f.svc, sender, notifier, directory.NewDuckDBDirectory(f.db))
	return f, m, sender, notifier
}

func sorted(ids []string) string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return strings.Join(out, ",")
}

func TestMessenger_Send(t *testing.T) {
	f, m, sender, notifier := newMessenger(t)
	ctx := context.Background()
	chat := f.group(t, "alice", "bob", "carol")

	msg, err := m.Send(ctx, "alice", chat.ID, "Meet at the lighthouse @bob", []string{"bob"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	m.Wait()

	frames := sender.ofType(websocket.TypeChatMessage)
	if len(frames) != 1 {
		t.Fatalf("CHAT_MESSAGE frames = %d, want 1", len(frames))
	}
	if got := sorted(frames[0].to); got != "alice,bob,carol" {
		t.Errorf("CHAT_MESSAGE recipients = %s, want every participant", got)
	}
	payload, ok := frames[0].msg.Payload.(websocket.ChatMessagePayload)
	if !ok || payload.Message.ID != msg.ID {
		t.Errorf("payload = %#v", frames[0].msg.Payload)
	}

	got := notifier.byRecipient()
	if len(got) != 2 {
		t.Fatalf("notifications = %d, want 2 (sender excluded)", len(got))
	}
	if _, ok := got["alice"]; ok {
		t.Error("sender must not be notified")
	}

	bob := got["bob"]
	if bob.Type != models.NotificationChatMention || bob.Title != "Alice mentioned you" {
		t.Errorf("bob notification = %+v, want a single CHAT_MENTION", bob)
	}
	carol := got["carol"]
	if carol.Type != models.NotificationChatMessage || carol.Title != "New message from Alice" {
		t.Errorf("carol notification = %+v", carol)
	}
	if carol.ChatID != chat.ID || carol.Data["messageId"] != msg.ID || carol.Data["senderId"] != "alice" {
		t.Errorf("carol notification data = %+v", carol.Data)
	}
	if carol.Message != msg.Content {
		t.Errorf("preview = %q, want full short content", carol.Message)
	}
}

func TestMessenger_SendRejectedHasNoSideEffects(t *testing.T) {
	f, m, sender, notifier := newMessenger(t)
	chat := f.group(t, "alice", "bob")

	if _, err := m.Send(context.Background(), "alice", chat.ID, "hi", []string{"dave"}); err == nil {
		t.Fatal("Send() with outsider mention should fail")
	}
	m.Wait()

	if len(sender.ofType(websocket.TypeChatMessage)) != 0 || len(notifier.byRecipient()) != 0 {
		t.Error("rejected send produced side effects")
	}
}

func TestMessenger_NotifierFailureDoesNotFailSend(t *testing.T) {
	f, m, sender, notifier := newMessenger(t)
	notifier.err = errors.New("notification store down")
	chat := f.direct(t, "alice", "bob")

	if _, err := m.Send(context.Background(), "alice", chat.ID, "hello", nil); err != nil {
		t.Fatalf("Send() error = %v, want side-effect failures swallowed", err)
	}
	m.Wait()

	if len(sender.ofType(websocket.TypeChatMessage)) != 1 {
		t.Error("broadcast should still happen")
	}
}

func TestMessenger_MarkRead(t *testing.T) {
	f, m, sender, notifier := newMessenger(t)
	ctx := context.Background()
	chat := f.direct(t, "alice", "bob")
	f.send(t, "alice", chat.ID, "hello")

	marked, err := m.MarkRead(ctx, "bob", chat.ID, "")
	if err != nil || marked != 1 {
		t.Fatalf("MarkRead() = %d, %v; want 1", marked, err)
	}
	m.Wait()

	frames := sender.ofType(websocket.TypeChatRead)
	if len(frames) != 1 {
		t.Fatalf("CHAT_READ frames = %d, want 1", len(frames))
	}
	p, _ := frames[0].msg.Payload.(websocket.ReadPayload)
	if p.UserID != "bob" || p.MarkedCount != 1 || p.ChatID != chat.ID {
		t.Errorf("CHAT_READ payload = %+v", p)
	}
	if strings.Join(notifier.chatReads, ",") != "bob@"+chat.ID {
		t.Errorf("chat notification sync = %v", notifier.chatReads)
	}

	marked, err = m.MarkRead(ctx, "bob", chat.ID, "")
	if err != nil || marked != 0 {
		t.Fatalf("second MarkRead() = %d, %v; want 0", marked, err)
	}
	m.Wait()
	if len(sender.ofType(websocket.TypeChatRead)) != 1 {
		t.Error("no CHAT_READ expected when nothing new was marked")
	}
}

func TestMessenger_AddParticipant(t *testing.T) {
	f, m, sender, notifier := newMessenger(t)
	chat, err := f.svc.CreateGroupChat(context.Background(), "alice", nil, "Porto wine tour", []string{"bob"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.AddParticipant(context.Background(), "alice", chat.ID, "carol"); err != nil {
		t.Fatalf("AddParticipant() error = %v", err)
	}
	m.Wait()

	frames := sender.ofType(websocket.TypeParticipantAdded)
	if len(frames) != 1 || sorted(frames[0].to) != "alice,bob,carol" {
		t.Fatalf("CHAT_PARTICIPANT_ADDED frames = %+v", frames)
	}
	p, _ := frames[0].msg.Payload.(websocket.ParticipantPayload)
	if p.UserID != "carol" || p.UserName != "Carol" {
		t.Errorf("payload = %+v", p)
	}

	n, ok := notifier.byRecipient()["carol"]
	if !ok || n.Type != models.NotificationParticipantAdded || n.Title != "You were added to Porto wine tour" {
		t.Errorf("notification = %+v", n)
	}
}

func TestMessenger_Leave(t *testing.T) {
	f, m, sender, _ := newMessenger(t)
	ctx := context.Background()
	chat := f.direct(t, "alice", "bob")

	if deleted, err := m.Leave(ctx, "alice", chat.ID); err != nil || deleted {
		t.Fatalf("Leave() = %v, %v", deleted, err)
	}
	m.Wait()
	frames := sender.ofType(websocket.TypeParticipantLeft)
	if len(frames) != 1 || sorted(frames[0].to) != "bob" {
		t.Fatalf("CHAT_PARTICIPANT_LEFT frames = %+v", frames)
	}

	if deleted, err := m.Leave(ctx, "bob", chat.ID); err != nil || !deleted {
		t.Fatalf("final Leave() = %v, %v; want deleted", deleted, err)
	}
	m.Wait()
	if len(sender.ofType(websocket.TypeParticipantLeft)) != 1 {
		t.Error("no announcement expected once the chat is deleted")
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		runes int
	}{
		{"short", "hola", 4},
		{"exact", strings.Repeat("a", previewLength), previewLength},
		{"long multibyte", strings.Repeat("ñ", previewLength+10), previewLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len([]rune(preview(tt.in))); got != tt.runes {
				t.Errorf("preview() runes = %d, want %d", got, tt.runes)
			}
		})
	}
}
