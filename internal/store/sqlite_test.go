package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dhruvjindal555/AlumLink-sub001/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(st.Close)
	return st
}

func TestUpsertUserIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	id := uuid.New()

	if _, err := st.UpsertUser(ctx, id, "Asha", "asha@example.com", ""); err != nil {
		t.Fatal(err)
	}
	u, err := st.UpsertUser(ctx, id, "Asha Rao", "asha@example.com", "https://cdn.example.com/a.png")
	if err != nil {
		t.Fatal(err)
	}
	if u.Name != "Asha Rao" || u.AvatarURL != "https://cdn.example.com/a.png" {
		t.Fatalf("profile not updated: %+v", u)
	}

	count, err := st.CountUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 user, got %d", count)
	}
}

func TestGetUserMissing(t *testing.T) {
	st := newTestStore(t)

	u, err := st.GetUser(context.Background(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	if u != nil {
		t.Fatalf("expected nil for missing user, got %+v", u)
	}
}

func TestThreadPairCanonical(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	t1, err := st.GetOrCreateThread(ctx, a, b)
	if err != nil {
		t.Fatal(err)
	}
	t2, err := st.GetOrCreateThread(ctx, b, a)
	if err != nil {
		t.Fatal(err)
	}
	if t1.ID != t2.ID {
		t.Fatalf("pair order produced different threads: %s vs %s", t1.ID, t2.ID)
	}

	count, err := st.CountThreads(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 thread, got %d", count)
	}
}

func TestRecordThreadMessage(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	th, err := st.GetOrCreateThread(ctx, a, b)
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC()
	if err := st.RecordThreadMessage(ctx, th.ID, "hello there", now, b); err != nil {
		t.Fatal(err)
	}

	th, err = st.GetThreadByPair(ctx, a, b)
	if err != nil {
		t.Fatal(err)
	}
	if th.Preview != "hello there" {
		t.Fatalf("preview = %q", th.Preview)
	}
	if th.LastMessageAt == nil {
		t.Fatal("last_message_at not set")
	}
	if got := th.UnreadFor(b); got != 1 {
		t.Fatalf("receiver unread = %d, want 1", got)
	}
	if got := th.UnreadFor(a); got != 0 {
		t.Fatalf("sender unread = %d, want 0", got)
	}
}

func TestResetUnread(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	th, _ := st.GetOrCreateThread(ctx, a, b)
	now := time.Now().UTC()
	st.RecordThreadMessage(ctx, th.ID, "one", now, b)
	st.RecordThreadMessage(ctx, th.ID, "two", now, b)

	if err := st.ResetUnread(ctx, th.ID, b); err != nil {
		t.Fatal(err)
	}

	th, _ = st.GetThreadByPair(ctx, a, b)
	if got := th.UnreadFor(b); got != 0 {
		t.Fatalf("unread after reset = %d, want 0", got)
	}
}

func TestMarkPairMessagesRead(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	for i := 0; i < 3; i++ {
		if err := st.AppendMessage(ctx, &models.Message{
			SenderID: a, ReceiverID: b, Text: "hi", MediaType: models.MediaText,
		}); err != nil {
			t.Fatal(err)
		}
	}
	// One in the other direction must stay unread.
	st.AppendMessage(ctx, &models.Message{
		SenderID: b, ReceiverID: a, Text: "yo", MediaType: models.MediaText,
	})

	n, err := st.MarkPairMessagesRead(ctx, a, b)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("marked %d messages, want 3", n)
	}

	msgs, err := st.ListMessagesBetween(ctx, a, b)
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range msgs {
		wantRead := m.SenderID == a
		if m.Read != wantRead {
			t.Fatalf("message %s read=%v, want %v", m.ID, m.Read, wantRead)
		}
	}

	// Second pass marks nothing new.
	n, err = st.MarkPairMessagesRead(ctx, a, b)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("second pass marked %d, want 0", n)
	}
}

func TestAppendMessageAssignsID(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	msg := &models.Message{
		SenderID:   uuid.New(),
		ReceiverID: uuid.New(),
		Text:       "first",
		MediaType:  models.MediaText,
	}
	if err := st.AppendMessage(ctx, msg); err != nil {
		t.Fatal(err)
	}
	if msg.ID == "" {
		t.Fatal("expected generated message ID")
	}

	got, err := st.GetMessageByID(ctx, msg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Text != "first" {
		t.Fatalf("round trip failed: %+v", got)
	}
}

func TestGetMessageByIDMissing(t *testing.T) {
	st := newTestStore(t)

	got, err := st.GetMessageByID(context.Background(), "01J00000000000000000000000")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestListThreadsForUserOrdering(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	me := uuid.New()
	old, recent, empty := uuid.New(), uuid.New(), uuid.New()

	thOld, _ := st.GetOrCreateThread(ctx, me, old)
	thRecent, _ := st.GetOrCreateThread(ctx, me, recent)
	st.GetOrCreateThread(ctx, me, empty)

	base := time.Now().UTC()
	st.RecordThreadMessage(ctx, thOld.ID, "older", base.Add(-time.Hour), me)
	st.RecordThreadMessage(ctx, thRecent.ID, "newer", base, me)

	threads, err := st.ListThreadsForUser(ctx, me)
	if err != nil {
		t.Fatal(err)
	}
	if len(threads) != 3 {
		t.Fatalf("expected 3 threads, got %d", len(threads))
	}
	if threads[0].PeerOf(me) != recent {
		t.Fatalf("most recent thread first, got peer %s", threads[0].PeerOf(me))
	}
	if threads[1].PeerOf(me) != old {
		t.Fatalf("older thread second, got peer %s", threads[1].PeerOf(me))
	}
	// Threads without messages sort last.
	if threads[2].PeerOf(me) != empty {
		t.Fatalf("empty thread last, got peer %s", threads[2].PeerOf(me))
	}
}

func TestSetUserPresence(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	id := uuid.New()

	st.UpsertUser(ctx, id, "Ravi", "", "")

	at := time.Now().UTC()
	if err := st.SetUserPresence(ctx, id, true, at); err != nil {
		t.Fatal(err)
	}
	u, _ := st.GetUser(ctx, id)
	if !u.Online {
		t.Fatal("expected online")
	}

	if err := st.SetUserPresence(ctx, id, false, at.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	u, _ = st.GetUser(ctx, id)
	if u.Online {
		t.Fatal("expected offline")
	}
	if u.LastActive.Before(at) {
		t.Fatalf("last_active not advanced: %v", u.LastActive)
	}
}

func TestCreateNotification(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	n := &models.Notification{
		UserID:     uuid.New(),
		Type:       "chat",
		Title:      "hello",
		Body:       "Asha messaged you",
		MessageID:  "01J0TEST00000000000000000",
		SenderName: "Asha",
	}
	if err := st.CreateNotification(ctx, n); err != nil {
		t.Fatal(err)
	}
	if n.ID == "" {
		t.Fatal("expected generated notification ID")
	}
}
