// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/wayfarer/internal/config"
	"github.com/tomtom215/wayfarer/internal/database"
	"github.com/tomtom215/wayfarer/internal/directory"
	"github.com/tomtom215/wayfarer/internal/logging"
	"github.com/tomtom215/wayfarer/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.SetLogger(logging.NewTestLogger(io.Discard))
}

// testDBSemaphore serializes DuckDB creation across parallel tests.
var testDBSemaphore = make(chan struct{}, 1)

// denyAuthorizer allows group creation unless the caller holds a denied role.
type denyAuthorizer struct {
	denied map[string]bool
	err    error
}

func (a denyAuthorizer) CanCreateGroup(_ string, roles []string) (bool, error) {
	if a.err != nil {
		return false, a.err
	}
	for _, r := range roles {
		if a.denied[r] {
			return false, nil
		}
	}
	return true, nil
}

type fixture struct {
	db  *database.DB
	svc *Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping DuckDB-backed test in short mode")
	}

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "1GB"})
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	deleted := time.Now().Add(-time.Hour)
	users := []*models.User{
		{ID: "alice", DisplayName: "Alice", IsActive: true},
		{ID: "bob", DisplayName: "Bob", IsActive: true},
		{ID: "carol", DisplayName: "Carol", IsActive: true},
		{ID: "dave", DisplayName: "Dave", IsActive: true},
		{ID: "erin", DisplayName: "Erin", IsActive: true},
		{ID: "frank", DisplayName: "Frank", IsActive: true},
		{ID: "idle", DisplayName: "Idle", IsActive: false},
		{ID: "gone", DisplayName: "Gone", IsActive: true, DeletedAt: &deleted},
	}
	for _, u := range users {
		mustUpsert(t, db, u)
	}

	svc := NewService(db, directory.NewDuckDBDirectory(db), denyAuthorizer{denied: map[string]bool{"suspended": true}})
	return &fixture{db: db, svc: svc}
}

func mustUpsert(t *testing.T, db *database.DB, u *models.User) {
	t.Helper()
	if err := db.UpsertUser(context.Background(), u); err != nil {
		t.Fatalf("UpsertUser(%s) error = %v", u.ID, err)
	}
}

func (f *fixture) direct(t *testing.T, a, b string) *models.Chat {
	t.Helper()
	chat, _, err := f.svc.CreateDirectChat(context.Background(), a, b)
	if err != nil {
		t.Fatalf("CreateDirectChat(%s, %s) error = %v", a, b, err)
	}
	return chat
}

func (f *fixture) group(t *testing.T, creator string, ids ...string) *models.Chat {
	t.Helper()
	chat, err := f.svc.CreateGroupChat(context.Background(), creator, nil, "Trip", ids)
	if err != nil {
		t.Fatalf("CreateGroupChat() error = %v", err)
	}
	return chat
}

func (f *fixture) send(t *testing.T, sender, chatID, content string, mentions ...string) *models.ChatMessage {
	t.Helper()
	msg, err := f.svc.SendMessage(context.Background(), sender, chatID, content, mentions)
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	return msg
}

func unreadFor(t *testing.T, svc *Service, userID, chatID string) int {
	t.Helper()
	chats, err := svc.ListChats(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListChats() error = %v", err)
	}
	for _, c := range chats {
		if c.ID == chatID {
			return c.UnreadCount
		}
	}
	t.Fatalf("chat %s not listed for %s", chatID, userID)
	return -1
}

func assertKind(t *testing.T, err error, want models.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("error = nil, want %s", want)
	}
	if got := models.KindOf(err); got != want {
		t.Fatalf("error kind = %s (%v), want %s", got, err, want)
	}
}

func TestCreateDirectChat(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	t.Run("rejects", func(t *testing.T) {
		tests := []struct {
			name  string
			other string
			want  models.ErrorKind
		}{
			{"self", "alice", models.KindBadRequest},
			{"empty", "", models.KindBadRequest},
			{"unknown", "ghost", models.KindNotFound},
			{"inactive", "idle", models.KindNotFound},
			{"deleted", "gone", models.KindNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, _, err := f.svc.CreateDirectChat(ctx, "alice", tt.other)
				assertKind(t, err, tt.want)
			})
		}
	})

	t.Run("idempotent in both directions", func(t *testing.T) {
		first, created, err := f.svc.CreateDirectChat(ctx, "alice", "bob")
		if err != nil || !created {
			t.Fatalf("first create = %v, created=%v", err, created)
		}
		if len(first.Participants) != 2 || first.Type != models.ChatTypeDirect {
			t.Errorf("chat = %+v", first)
		}

		for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
			again, created, err := f.svc.CreateDirectChat(ctx, pair[0], pair[1])
			if err != nil {
				t.Fatal(err)
			}
			if created || again.ID != first.ID {
				t.Errorf("CreateDirectChat(%v) = %s created=%v, want %s reused", pair, again.ID, created, first.ID)
			}
			if len(again.Participants) != 2 {
				t.Errorf("reused chat participants = %d, want 2", len(again.Participants))
			}
		}
	})
}

func TestCreateDirectChat_Concurrent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	const workers = 6
	ids := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := "carol", "dave"
			if i%2 == 1 {
				a, b = b, a
			}
			chat, _, err := f.svc.CreateDirectChat(ctx, a, b)
			errs[i] = err
			if chat != nil {
				ids[i] = chat.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		if errs[i] != nil {
			t.Fatalf("worker %d error = %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Errorf("worker %d got chat %s, want %s", i, ids[i], ids[0])
		}
	}
}

func TestCreateGroupChat(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tooMany := make([]string, models.MaxGroupParticipants)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("u%03d", i)
	}

	tests := []struct {
		name  string
		roles []string
		title string
		ids   []string
		want  models.ErrorKind
	}{
		{"denied role", []string{"suspended"}, "Trip", []string{"bob"}, models.KindForbidden},
		{"blank name", nil, "   ", []string{"bob"}, models.KindBadRequest},
		{"long name", nil, strings.Repeat("n", models.MaxChatNameLength+1), []string{"bob"}, models.KindBadRequest},
		{"over capacity", nil, "Trip", tooMany, models.KindBadRequest},
		{"unknown participant", nil, "Trip", []string{"bob", "ghost"}, models.KindNotFound},
		{"inactive participant", nil, "Trip", []string{"bob", "idle"}, models.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateGroupChat(ctx, "alice", tt.roles, tt.title, tt.ids)
			assertKind(t, err, tt.want)
		})
	}

	chats, err := f.svc.ListChats(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 0 {
		t.Fatalf("rejected creations persisted %d chats", len(chats))
	}

	t.Run("not found lists missing ids", func(t *testing.T) {
		_, err := f.svc.CreateGroupChat(ctx, "alice", nil, "Trip", []string{"ghost", "bob", "idle"})
		var de *models.DomainError
		if !errors.As(err, &de) {
			t.Fatalf("error = %v, want DomainError", err)
		}
		got, _ := de.Details["userIds"].([]string)
		if strings.Join(got, ",") != "ghost,idle" {
			t.Errorf("details userIds = %v, want [ghost idle]", de.Details["userIds"])
		}
	})

	t.Run("dedupes and drops self", func(t *testing.T) {
		chat, err := f.svc.CreateGroupChat(ctx, "alice", []string{"guide"}, "  Lisbon food walk ", []string{"bob", "alice", "carol", "bob", ""})
		if err != nil {
			t.Fatalf("CreateGroupChat() error = %v", err)
		}
		if chat.Name != "Lisbon food walk" || chat.CreatorID != "alice" || chat.Type != models.ChatTypeGroup {
			t.Errorf("chat = %+v", chat)
		}
		if len(chat.Participants) != 3 {
			t.Errorf("participants = %d, want 3", len(chat.Participants))
		}
	})

	t.Run("creator only", func(t *testing.T) {
		chat, err := f.svc.CreateGroupChat(ctx, "erin", nil, "Solo planning", nil)
		if err != nil {
			t.Fatalf("CreateGroupChat() error = %v", err)
		}
		if len(chat.Participants) != 1 {
			t.Errorf("participants = %d, want 1", len(chat.Participants))
		}
	})

	t.Run("authorizer failure is internal", func(t *testing.T) {
		svc := NewService(f.db, directory.NewDuckDBDirectory(f.db), denyAuthorizer{err: errors.New("policy unavailable")})
		_, err := svc.CreateGroupChat(ctx, "alice", nil, "Trip", nil)
		assertKind(t, err, models.KindInternal)
	})
}

func TestSendMessage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	chat := f.group(t, "alice", "bob", "carol")
	other := f.direct(t, "dave", "erin")

	tests := []struct {
		name     string
		sender   string
		chatID   string
		content  string
		mentions []string
		want     models.ErrorKind
	}{
		{"missing chat", "alice", "no-such-chat", "hi", nil, models.KindNotFound},
		{"non participant", "dave", chat.ID, "hi", nil, models.KindForbidden},
		{"empty content", "alice", chat.ID, "", nil, models.KindBadRequest},
		{"blank content", "alice", chat.ID, " \n\t", nil, models.KindBadRequest},
		{"too long", "alice", chat.ID, strings.Repeat("a", models.MaxMessageLength+1), nil, models.KindBadRequest},
		{"mention outsider", "alice", chat.ID, "hi @dave", []string{"bob", "dave"}, models.KindBadRequest},
		{"mention unknown", "alice", chat.ID, "hi", []string{"ghost"}, models.KindBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SendMessage(ctx, tt.sender, tt.chatID, tt.content, tt.mentions)
			assertKind(t, err, tt.want)
		})
	}

	if n, err := f.db.CountMessages(ctx, chat.ID); err != nil || n != 0 {
		t.Fatalf("rejected sends persisted %d messages (err %v)", n, err)
	}

	t.Run("accepts max length and dedupes mentions", func(t *testing.T) {
		content := strings.Repeat("é", models.MaxMessageLength)
		msg, err := f.svc.SendMessage(ctx, "alice", chat.ID, content, []string{"bob", "bob", "carol"})
		if err != nil {
			t.Fatalf("SendMessage() error = %v", err)
		}
		if strings.Join(msg.MentionedUsers, ",") != "bob,carol" {
			t.Errorf("mentions = %v, want [bob carol]", msg.MentionedUsers)
		}
		if msg.ID == "" || msg.SenderID != "alice" || msg.ChatID != chat.ID || msg.CreatedAt.IsZero() {
			t.Errorf("message = %+v", msg)
		}
	})

	t.Run("bumps chat activity", func(t *testing.T) {
		f.send(t, "dave", other.ID, "see you at the pier")
		chats, err := f.svc.ListChats(ctx, "dave")
		if err != nil {
			t.Fatal(err)
		}
		if len(chats) != 1 || chats[0].LastMessage == nil || chats[0].LastMessage.Content != "see you at the pier" {
			t.Errorf("ListChats(dave) = %+v", chats)
		}
	})
}

func TestGetMessages(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	chat := f.direct(t, "alice", "bob")

	var sent []*models.ChatMessage
	for i := 0; i < 5; i++ {
		sent = append(sent, f.send(t, "alice", chat.ID, fmt.Sprintf("m%d", i)))
		time.Sleep(2 * time.Millisecond)
	}

	contents := func(msgs []*models.ChatMessage) string {
		parts := make([]string, len(msgs))
		for i, m := range msgs {
			parts[i] = m.Content
		}
		return strings.Join(parts, ",")
	}

	tests := []struct {
		name string
		page MessagePage
		want string
	}{
		{"defaults newest first", MessagePage{}, "m4,m3,m2,m1,m0"},
		{"first page", MessagePage{Page: 1, Limit: 2}, "m4,m3"},
		{"second page", MessagePage{Page: 2, Limit: 2}, "m2,m1"},
		{"past the end", MessagePage{Page: 9, Limit: 2}, ""},
		{"limit clamped", MessagePage{Limit: 1000}, "m4,m3,m2,m1,m0"},
		{"before cursor", MessagePage{Before: sent[3].ID}, "m2,m1,m0"},
		{"before overrides page", MessagePage{Before: sent[3].ID, Page: 5, Limit: 2}, "m2,m1"},
		{"before oldest", MessagePage{Before: sent[0].ID}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := f.svc.GetMessages(ctx, "bob", chat.ID, tt.page)
			if err != nil {
				t.Fatalf("GetMessages() error = %v", err)
			}
			if msgs == nil {
				t.Fatal("GetMessages() returned nil slice")
			}
			if got := contents(msgs); got != tt.want {
				t.Errorf("GetMessages() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("unknown cursor", func(t *testing.T) {
		_, err := f.svc.GetMessages(ctx, "bob", chat.ID, MessagePage{Before: "nope"})
		assertKind(t, err, models.KindNotFound)
	})

	t.Run("cursor from another chat", func(t *testing.T) {
		elsewhere := f.direct(t, "alice", "carol")
		foreign := f.send(t, "alice", elsewhere.ID, "hola")
		_, err := f.svc.GetMessages(ctx, "bob", chat.ID, MessagePage{Before: foreign.ID})
		assertKind(t, err, models.KindNotFound)
	})

	// Scenario: a non-participant cannot read history.
	t.Run("non participant", func(t *testing.T) {
		_, err := f.svc.GetMessages(ctx, "frank", chat.ID, MessagePage{})
		assertKind(t, err, models.KindForbidden)
	})
}

// Scenario: A says hello to B; B's unread goes 0 -> 1, B reads everything,
// unread returns to 0 and the message shows readBy=[B].
func TestReadFlow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	chat := f.direct(t, "alice", "bob")

	if got := unreadFor(t, f.svc, "bob", chat.ID); got != 0 {
		t.Fatalf("unread before = %d, want 0", got)
	}
	hello := f.send(t, "alice", chat.ID, "hello")
	if got := unreadFor(t, f.svc, "bob", chat.ID); got != 1 {
		t.Fatalf("unread after send = %d, want 1", got)
	}
	if got := unreadFor(t, f.svc, "alice", chat.ID); got != 0 {
		t.Errorf("sender unread = %d, want 0", got)
	}

	marked, err := f.svc.MarkAsRead(ctx, "bob", chat.ID, "")
	if err != nil || marked != 1 {
		t.Fatalf("MarkAsRead() = %d, %v; want 1", marked, err)
	}
	if got := unreadFor(t, f.svc, "bob", chat.ID); got != 0 {
		t.Errorf("unread after read = %d, want 0", got)
	}

	msgs, err := f.svc.GetMessages(ctx, "alice", chat.ID, MessagePage{})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].ID != hello.ID || strings.Join(msgs[0].ReadBy, ",") != "bob" {
		t.Errorf("messages = %+v, want hello read by bob", msgs)
	}
}

func TestMarkAsRead(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	chat := f.group(t, "alice", "bob", "carol")

	m1 := f.send(t, "alice", chat.ID, "one")
	time.Sleep(2 * time.Millisecond)
	m2 := f.send(t, "carol", chat.ID, "two")
	time.Sleep(2 * time.Millisecond)
	f.send(t, "bob", chat.ID, "three")
	time.Sleep(2 * time.Millisecond)
	f.send(t, "alice", chat.ID, "four")

	t.Run("up to a message", func(t *testing.T) {
		marked, err := f.svc.MarkAsRead(ctx, "bob", chat.ID, m2.ID)
		if err != nil || marked != 2 {
			t.Fatalf("MarkAsRead(up to m2) = %d, %v; want 2", marked, err)
		}
	})

	t.Run("twice yields zero", func(t *testing.T) {
		if marked, err := f.svc.MarkAsRead(ctx, "carol", chat.ID, m1.ID); err != nil || marked != 1 {
			t.Fatalf("first = %d, %v; want 1", marked, err)
		}
		if marked, err := f.svc.MarkAsRead(ctx, "carol", chat.ID, m1.ID); err != nil || marked != 0 {
			t.Fatalf("second = %d, %v; want 0", marked, err)
		}
	})

	t.Run("remaining and own messages skipped", func(t *testing.T) {
		marked, err := f.svc.MarkAsRead(ctx, "bob", chat.ID, "")
		if err != nil || marked != 1 {
			t.Fatalf("MarkAsRead(all) = %d, %v; want 1 (own message excluded)", marked, err)
		}
	})

	t.Run("unknown message", func(t *testing.T) {
		_, err := f.svc.MarkAsRead(ctx, "bob", chat.ID, "missing")
		assertKind(t, err, models.KindNotFound)
	})

	t.Run("non participant", func(t *testing.T) {
		_, err := f.svc.MarkAsRead(ctx, "dave", chat.ID, "")
		assertKind(t, err, models.KindForbidden)
	})

	t.Run("last read moves even without new receipts", func(t *testing.T) {
		if _, err := f.svc.MarkAsRead(ctx, "alice", chat.ID, ""); err != nil {
			t.Fatal(err)
		}
		p, err := f.db.GetParticipant(ctx, chat.ID, "alice")
		if err != nil {
			t.Fatal(err)
		}
		if p.LastReadAt == nil {
			t.Error("lastReadAt should be set")
		}
	})
}

func TestAddParticipant(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	group := f.group(t, "alice", "bob")
	direct := f.direct(t, "alice", "carol")

	tests := []struct {
		name    string
		caller  string
		chatID  string
		newUser string
		want    models.ErrorKind
	}{
		{"direct chat", "alice", direct.ID, "dave", models.KindBadRequest},
		{"not creator", "bob", group.ID, "dave", models.KindForbidden},
		{"not participant", "erin", group.ID, "dave", models.KindForbidden},
		{"already member", "alice", group.ID, "bob", models.KindBadRequest},
		{"unknown user", "alice", group.ID, "ghost", models.KindNotFound},
		{"inactive user", "alice", group.ID, "idle", models.KindNotFound},
		{"missing chat", "alice", "nope", "dave", models.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddParticipant(ctx, tt.caller, tt.chatID, tt.newUser)
			assertKind(t, err, tt.want)
		})
	}

	p, err := f.svc.AddParticipant(ctx, "alice", group.ID, "dave")
	if err != nil {
		t.Fatalf("AddParticipant() error = %v", err)
	}
	if p.UserID != "dave" || p.ChatID != group.ID || p.LastReadAt != nil {
		t.Errorf("participant = %+v", p)
	}
	if n, _ := f.db.CountParticipants(ctx, group.ID); n != 3 {
		t.Errorf("participants = %d, want 3", n)
	}
}

func TestAddParticipant_Capacity(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	others := make([]string, models.MaxGroupParticipants-1)
	for i := range others {
		others[i] = fmt.Sprintf("traveler-%03d", i)
		mustUpsert(t, f.db, &models.User{ID: others[i], IsActive: true})
	}

	group, err := f.svc.CreateGroupChat(ctx, "alice", nil, "Festival", others)
	if err != nil {
		t.Fatalf("CreateGroupChat(100) error = %v", err)
	}
	if len(group.Participants) != models.MaxGroupParticipants {
		t.Fatalf("participants = %d, want %d", len(group.Participants), models.MaxGroupParticipants)
	}

	_, err = f.svc.AddParticipant(ctx, "alice", group.ID, "bob")
	assertKind(t, err, models.KindBadRequest)
	if n, _ := f.db.CountParticipants(ctx, group.ID); n != models.MaxGroupParticipants {
		t.Errorf("participants after rejected add = %d", n)
	}
}

// Scenario: C creates "Trip" with D and E; D leaves and the chat persists;
// E then C leave and the chat is gone.
func TestLeaveChat_GroupLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	chat := f.group(t, "carol", "dave", "erin")
	f.send(t, "dave", chat.ID, "count me in")
	f.send(t, "carol", chat.ID, "great")
	if _, err := f.svc.MarkAsRead(ctx, "erin", chat.ID, ""); err != nil {
		t.Fatal(err)
	}

	deleted, err := f.svc.LeaveChat(ctx, "dave", chat.ID)
	if err != nil || deleted {
		t.Fatalf("dave leave = %v, %v", deleted, err)
	}
	ids, _ := f.svc.ParticipantIDs(ctx, chat.ID)
	if strings.Join(ids, ",") != "carol,erin" {
		t.Errorf("participants = %v, want [carol erin]", ids)
	}

	if _, err := f.svc.LeaveChat(ctx, "dave", chat.ID); models.KindOf(err) != models.KindForbidden {
		t.Errorf("second leave by dave = %v, want Forbidden", err)
	}

	if deleted, err := f.svc.LeaveChat(ctx, "erin", chat.ID); err != nil || deleted {
		t.Fatalf("erin leave = %v, %v", deleted, err)
	}
	deleted, err = f.svc.LeaveChat(ctx, "carol", chat.ID)
	if err != nil || !deleted {
		t.Fatalf("carol leave = %v, %v; want deleted", deleted, err)
	}

	if _, err := f.db.GetChat(ctx, chat.ID); !errors.Is(err, database.ErrChatNotFound) {
		t.Errorf("GetChat after cascade = %v, want ErrChatNotFound", err)
	}
	if n, _ := f.db.CountMessages(ctx, chat.ID); n != 0 {
		t.Errorf("messages after cascade = %d, want 0", n)
	}
}

func TestLeaveChat_Direct(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	chat := f.direct(t, "alice", "bob")

	if deleted, err := f.svc.LeaveChat(ctx, "alice", chat.ID); err != nil || deleted {
		t.Fatalf("first leave = %v, %v", deleted, err)
	}
	if n, _ := f.db.CountParticipants(ctx, chat.ID); n != 1 {
		t.Errorf("participants = %d, want 1", n)
	}
	if deleted, err := f.svc.LeaveChat(ctx, "bob", chat.ID); err != nil || !deleted {
		t.Fatalf("second leave = %v, %v; want deleted", deleted, err)
	}
	_, err := f.svc.GetChat(ctx, "bob", chat.ID)
	assertKind(t, err, models.KindNotFound)
}

func TestCreateDirectChat_AfterLeave(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	chat := f.direct(t, "alice", "bob")
	f.send(t, "bob", chat.ID, "still here?")

	if _, err := f.svc.LeaveChat(ctx, "alice", chat.ID); err != nil {
		t.Fatal(err)
	}

	t.Run("re-contact restores the leaver", func(t *testing.T) {
		again, created, err := f.svc.CreateDirectChat(ctx, "alice", "bob")
		if err != nil {
			t.Fatalf("CreateDirectChat() error = %v", err)
		}
		if created || again.ID != chat.ID {
			t.Errorf("CreateDirectChat() = %s created=%v, want existing %s", again.ID, created, chat.ID)
		}
		if len(again.Participants) != 2 {
			t.Errorf("Participants = %d, want 2", len(again.Participants))
		}
		if _, err := f.svc.SendMessage(ctx, "alice", chat.ID, "back again", nil); err != nil {
			t.Errorf("SendMessage() after re-contact = %v", err)
		}
		msgs, err := f.svc.GetMessages(ctx, "alice", chat.ID, MessagePage{})
		if err != nil || len(msgs) != 2 {
			t.Errorf("GetMessages() = %d, %v; want 2 messages", len(msgs), err)
		}
	})

	t.Run("the other side can re-contact too", func(t *testing.T) {
		if _, err := f.svc.LeaveChat(ctx, "bob", chat.ID); err != nil {
			t.Fatal(err)
		}
		again, created, err := f.svc.CreateDirectChat(ctx, "alice", "bob")
		if err != nil || created || again.ID != chat.ID {
			t.Fatalf("CreateDirectChat() = %v created=%v err=%v", again, created, err)
		}
		if ok, _ := f.svc.IsParticipant(ctx, chat.ID, "bob"); !ok {
			t.Error("bob was not restored")
		}
	})

	t.Run("both leaving still deletes the chat", func(t *testing.T) {
		if deleted, err := f.svc.LeaveChat(ctx, "alice", chat.ID); err != nil || deleted {
			t.Fatalf("alice leave = %v, %v", deleted, err)
		}
		if deleted, err := f.svc.LeaveChat(ctx, "bob", chat.ID); err != nil || !deleted {
			t.Fatalf("bob leave = %v, %v; want deleted", deleted, err)
		}
		fresh, created, err := f.svc.CreateDirectChat(ctx, "alice", "bob")
		if err != nil || !created || fresh.ID == chat.ID {
			t.Errorf("CreateDirectChat() after delete = %v created=%v err=%v; want a new chat", fresh, created, err)
		}
	})
}

func TestListAndGetChat(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	older := f.direct(t, "alice", "bob")
	time.Sleep(2 * time.Millisecond)
	newer := f.group(t, "alice", "carol")
	time.Sleep(2 * time.Millisecond)
	f.send(t, "bob", older.ID, "ping")

	chats, err := f.svc.ListChats(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 2 || chats[0].ID != older.ID || chats[1].ID != newer.ID {
		t.Fatalf("ListChats order = %v", chats)
	}
	if chats[0].UnreadCount != 1 || chats[1].UnreadCount != 0 {
		t.Errorf("unread = %d/%d, want 1/0", chats[0].UnreadCount, chats[1].UnreadCount)
	}

	empty, err := f.svc.ListChats(ctx, "frank")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("ListChats(frank) = %v, %v; want empty slice", empty, err)
	}

	detail, err := f.svc.GetChat(ctx, "carol", newer.ID)
	if err != nil || len(detail.Participants) != 2 {
		t.Errorf("GetChat() = %+v, %v", detail, err)
	}
	_, err = f.svc.GetChat(ctx, "bob", newer.ID)
	assertKind(t, err, models.KindForbidden)

	peers, err := f.svc.PeerIDs(ctx, "alice")
	if err != nil || strings.Join(peers, ",") != "bob,carol" {
		t.Errorf("PeerIDs(alice) = %v, %v", peers, err)
	}
	if ok, _ := f.svc.IsParticipant(ctx, newer.ID, "bob"); ok {
		t.Error("bob should not be a participant of the group")
	}
}
