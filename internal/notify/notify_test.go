package notify

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/dhruvjindal555/AlumLink-sub001/internal/metrics"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/models"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/presence"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/store"
)

type fakeSink struct {
	mu     sync.Mutex
	events []string
	data   []any
}

func (f *fakeSink) Send(event string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	f.data = append(f.data, data)
	return nil
}

func (f *fakeSink) Close() error { return nil }

func newTestFanout(t *testing.T) (*Fanout, *presence.Registry) {
	t.Helper()
	st, err := store.NewSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(st.Close)

	registry := presence.NewRegistry()
	return NewFanout(st, registry, zerolog.Nop()), registry
}

func TestDispatchCreatesRecordAndPushes(t *testing.T) {
	f, registry := newTestFanout(t)
	receiver := uuid.New()

	sink := &fakeSink{}
	registry.Register(receiver, sink)

	before := testutil.ToFloat64(metrics.NotificationsCreated)

	msg := &models.Message{
		ID:         "01J0TEST00000000000000000",
		SenderID:   uuid.New(),
		ReceiverID: receiver,
		Text:       "see you there",
		MediaType:  models.MediaText,
	}
	n, err := f.Dispatch(context.Background(), msg, "Asha")
	if err != nil {
		t.Fatal(err)
	}
	if n.ID == "" {
		t.Fatal("notification record not assigned an ID")
	}
	if n.Type != TypeChat || n.Title != "see you there" || n.Body != "Asha messaged you" {
		t.Fatalf("unexpected record: %+v", n)
	}

	if got := testutil.ToFloat64(metrics.NotificationsCreated) - before; got != 1 {
		t.Fatalf("notifications counter advanced by %v, want 1", got)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) != 1 || sink.events[0] != EventNotification {
		t.Fatalf("pushed events = %v, want [%s]", sink.events, EventNotification)
	}
	pushed, ok := sink.data[0].(*models.Notification)
	if !ok || pushed.ID != n.ID {
		t.Fatalf("pushed payload = %#v", sink.data[0])
	}
}

func TestDispatchOfflineReceiverStillRecords(t *testing.T) {
	f, _ := newTestFanout(t)

	msg := &models.Message{
		ID:         "01J0TEST00000000000000001",
		SenderID:   uuid.New(),
		ReceiverID: uuid.New(),
		Text:       "",
		MediaURLs:  []string{"https://cdn.example.com/pic.jpg"},
		MediaType:  models.MediaImage,
	}
	n, err := f.Dispatch(context.Background(), msg, "Ravi")
	if err != nil {
		t.Fatal(err)
	}
	if n.ID == "" {
		t.Fatal("record not created for offline receiver")
	}
	if n.Title != models.MediaPlaceholder {
		t.Fatalf("media-only title = %q, want %q", n.Title, models.MediaPlaceholder)
	}
}
