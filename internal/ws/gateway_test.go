package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dhruvjindal555/AlumLink-sub001/internal/auth"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/chat"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/notify"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/presence"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/store"
)

// recordedEvent is one frame captured by a fake sink.
type recordedEvent struct {
	event string
	data  any
}

// fakeSink captures pushed events in place of a WebSocket connection.
type fakeSink struct {
	mu     sync.Mutex
	events []recordedEvent
	closed bool
}

func (f *fakeSink) Send(event string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{event: event, data: data})
	return nil
}

func (f *fakeSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSink) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// eventsNamed returns captured events with the given name.
func (f *fakeSink) eventsNamed(name string) []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedEvent
	for _, e := range f.events {
		if e.event == name {
			out = append(out, e)
		}
	}
	return out
}

// fakeVerifier accepts tokens of the form it was seeded with.
type fakeVerifier struct {
	tokens map[string]*auth.Claims
}

func (f *fakeVerifier) Verify(token string) (*auth.Claims, error) {
	c, ok := f.tokens[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return c, nil
}

type testEnv struct {
	gateway  *Gateway
	registry *presence.Registry
	store    *store.SQLiteStore
	verifier *fakeVerifier
}

func newTestEnv(t *testing.T, grace time.Duration) *testEnv {
	t.Helper()

	st, err := store.NewSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(st.Close)

	logger := zerolog.Nop()
	registry := presence.NewRegistry()
	chatSvc := chat.NewService(st, nil, logger)
	fanout := notify.NewFanout(st, registry, logger)
	verifier := &fakeVerifier{tokens: make(map[string]*auth.Claims)}

	return &testEnv{
		gateway:  NewGateway(registry, chatSvc, fanout, st, verifier, grace, logger),
		registry: registry,
		store:    st,
		verifier: verifier,
	}
}

// connect registers a token for the user and authenticates a fresh session.
func (e *testEnv) connect(t *testing.T, userID uuid.UUID, name string) (*Session, *fakeSink) {
	t.Helper()

	token := "token-" + uuid.NewString()
	e.verifier.tokens[token] = &auth.Claims{UserID: userID.String(), Name: name}

	sink := &fakeSink{}
	sess := e.gateway.NewSession(sink)
	if err := e.gateway.Authenticate(context.Background(), sess, token); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	return sess, sink
}

func frame(t *testing.T, event string, payload any) Frame {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return Frame{Event: event, Data: data}
}

func TestAuthenticateRegistersAndBroadcasts(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	userID := uuid.New()
	env.store.UpsertUser(context.Background(), userID, "Asha", "", "")

	// An already connected observer should see the status broadcast.
	_, observer := env.connect(t, uuid.New(), "Observer")

	_, _ = env.connect(t, userID, "Asha")

	if env.registry.Resolve(userID) == nil {
		t.Fatal("user not registered after authenticate")
	}

	u, _ := env.store.GetUser(context.Background(), userID)
	if !u.Online {
		t.Fatal("online status not persisted")
	}

	statuses := observer.eventsNamed(EventUserStatus)
	if len(statuses) == 0 {
		t.Fatal("observer missed the online broadcast")
	}
	last := statuses[len(statuses)-1].data.(UserStatusPayload)
	if last.UserID != userID.String() || !last.Online {
		t.Fatalf("unexpected status payload: %+v", last)
	}
}

func TestAuthenticateFailureTerminates(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	sink := &fakeSink{}
	sess := env.gateway.NewSession(sink)

	err := env.gateway.Dispatch(context.Background(), sess, frame(t, EventAuthenticate, AuthenticatePayload{Token: "bogus"}))
	if !errors.Is(err, ErrTerminated) {
		t.Fatalf("expected ErrTerminated, got %v", err)
	}
	if len(sink.eventsNamed(EventAuthError)) != 1 {
		t.Fatal("authError not sent")
	}
}

func TestUnauthenticatedEventTerminates(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	sink := &fakeSink{}
	sess := env.gateway.NewSession(sink)

	err := env.gateway.Dispatch(context.Background(), sess, frame(t, EventSendMessage, SendMessagePayload{ReceiverID: uuid.NewString(), Text: "hi"}))
	if !errors.Is(err, ErrTerminated) {
		t.Fatalf("expected ErrTerminated, got %v", err)
	}
	if len(sink.eventsNamed(EventAuthError)) != 1 {
		t.Fatal("authError not sent")
	}
}

func TestRepeatConnectionDisplacesPrevious(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	userID := uuid.New()

	_, first := env.connect(t, userID, "Asha")
	_, second := env.connect(t, userID, "Asha")

	if !first.isClosed() {
		t.Fatal("displaced connection not closed")
	}
	if second.isClosed() {
		t.Fatal("new connection closed")
	}
	if env.registry.Resolve(userID) != second {
		t.Fatal("newest connection should be registered")
	}
}

func TestSendMessageLiveDelivery(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	sender, receiver := uuid.New(), uuid.New()
	env.store.UpsertUser(context.Background(), sender, "Asha", "", "https://cdn.example.com/a.png")

	senderSess, senderSink := env.connect(t, sender, "Asha")
	_, receiverSink := env.connect(t, receiver, "Ravi")

	err := env.gateway.Dispatch(context.Background(), senderSess, frame(t, EventSendMessage, SendMessagePayload{
		ReceiverID: receiver.String(),
		Text:       "see you at the reunion",
	}))
	if err != nil {
		t.Fatal(err)
	}

	pushes := receiverSink.eventsNamed(EventNewMessage)
	if len(pushes) != 1 {
		t.Fatalf("receiver got %d pushes, want 1", len(pushes))
	}
	push := pushes[0].data.(NewMessagePayload)
	if push.SenderID != sender.String() || push.Text != "see you at the reunion" {
		t.Fatalf("unexpected push: %+v", push)
	}
	if push.SenderName != "Asha" || push.ProfileImage != "https://cdn.example.com/a.png" {
		t.Fatalf("sender profile not attached: %+v", push)
	}

	acks := senderSink.eventsNamed(EventMessageSent)
	if len(acks) != 1 {
		t.Fatalf("sender got %d acks, want 1", len(acks))
	}
	ack := acks[0].data.(MessageSentPayload)
	if ack.MessageID != push.MessageID {
		t.Fatalf("ack id %q != push id %q", ack.MessageID, push.MessageID)
	}
}

func TestSendMessageOfflineReceiverStillAcks(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	sender, receiver := uuid.New(), uuid.New()

	senderSess, senderSink := env.connect(t, sender, "Asha")

	err := env.gateway.Dispatch(context.Background(), senderSess, frame(t, EventSendMessage, SendMessagePayload{
		ReceiverID: receiver.String(),
		Text:       "catch up later?",
	}))
	if err != nil {
		t.Fatal(err)
	}

	if len(senderSink.eventsNamed(EventMessageSent)) != 1 {
		t.Fatal("send to offline receiver must still ack")
	}

	// The message awaits the receiver in the log.
	msgs, err := env.store.ListMessagesBetween(context.Background(), sender, receiver)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Read {
		t.Fatalf("unexpected log state: %+v", msgs)
	}
}

func TestSendMessageValidationKeepsConnection(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	sender := uuid.New()

	senderSess, senderSink := env.connect(t, sender, "Asha")

	err := env.gateway.Dispatch(context.Background(), senderSess, frame(t, EventSendMessage, SendMessagePayload{
		ReceiverID: uuid.NewString(),
	}))
	if err != nil {
		t.Fatalf("validation failure must not terminate: %v", err)
	}
	if len(senderSink.eventsNamed(EventMessageError)) != 1 {
		t.Fatal("messageError not sent")
	}
	if len(senderSink.eventsNamed(EventMessageSent)) != 0 {
		t.Fatal("rejected send was acked")
	}
}

func TestTypingRelay(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	a, b := uuid.New(), uuid.New()

	aSess, _ := env.connect(t, a, "Asha")
	_, bSink := env.connect(t, b, "Ravi")

	err := env.gateway.Dispatch(context.Background(), aSess, frame(t, EventTyping, TypingPayload{ReceiverID: b.String()}))
	if err != nil {
		t.Fatal(err)
	}

	typings := bSink.eventsNamed(EventUserTyping)
	if len(typings) != 1 {
		t.Fatalf("got %d typing events, want 1", len(typings))
	}
	if p := typings[0].data.(UserTypingPayload); p.UserID != a.String() {
		t.Fatalf("typing attributed to %q", p.UserID)
	}
}

func TestTypingToOfflineReceiverIsDropped(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	a := uuid.New()

	aSess, aSink := env.connect(t, a, "Asha")

	err := env.gateway.Dispatch(context.Background(), aSess, frame(t, EventTyping, TypingPayload{ReceiverID: uuid.NewString()}))
	if err != nil {
		t.Fatal(err)
	}
	if len(aSink.eventsNamed(EventMessageError)) != 0 {
		t.Fatal("typing to offline receiver must fail silently")
	}
}

func TestMarkReadRelay(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	reader, counterpart := uuid.New(), uuid.New()

	cpSess, cpSink := env.connect(t, counterpart, "Ravi")
	readerSess, _ := env.connect(t, reader, "Asha")

	// Counterpart sends first so a thread exists.
	if err := env.gateway.Dispatch(context.Background(), cpSess, frame(t, EventSendMessage, SendMessagePayload{
		ReceiverID: reader.String(),
		Text:       "ping",
	})); err != nil {
		t.Fatal(err)
	}

	if err := env.gateway.Dispatch(context.Background(), readerSess, frame(t, EventMarkRead, MarkReadPayload{
		ChatWithUserID: counterpart.String(),
	})); err != nil {
		t.Fatal(err)
	}

	receipts := cpSink.eventsNamed(EventMessagesRead)
	if len(receipts) != 1 {
		t.Fatalf("got %d read receipts, want 1", len(receipts))
	}
	if p := receipts[0].data.(MessagesReadPayload); p.ByUserID != reader.String() {
		t.Fatalf("receipt attributed to %q", p.ByUserID)
	}
}

func TestMarkReadWithoutThreadSendsNothing(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	reader, stranger := uuid.New(), uuid.New()

	readerSess, readerSink := env.connect(t, reader, "Asha")
	_, strangerSink := env.connect(t, stranger, "Ravi")

	if err := env.gateway.Dispatch(context.Background(), readerSess, frame(t, EventMarkRead, MarkReadPayload{
		ChatWithUserID: stranger.String(),
	})); err != nil {
		t.Fatal(err)
	}

	if len(strangerSink.eventsNamed(EventMessagesRead)) != 0 {
		t.Fatal("read receipt sent without a thread")
	}
	if len(readerSink.eventsNamed(EventMessageError)) != 0 {
		t.Fatal("no-op mark read reported an error")
	}
}

func TestDisconnectCommitsOfflineAfterGrace(t *testing.T) {
	env := newTestEnv(t, 20*time.Millisecond)
	userID := uuid.New()
	env.store.UpsertUser(context.Background(), userID, "Asha", "", "")

	_, observer := env.connect(t, uuid.New(), "Observer")
	sess, _ := env.connect(t, userID, "Asha")

	env.gateway.Disconnect(sess)

	if env.registry.Resolve(userID) != nil {
		t.Fatal("registry entry should be removed immediately")
	}

	// Before the grace elapses nothing is committed.
	u, _ := env.store.GetUser(context.Background(), userID)
	if !u.Online {
		t.Fatal("offline committed before grace elapsed")
	}

	time.Sleep(100 * time.Millisecond)

	u, _ = env.store.GetUser(context.Background(), userID)
	if u.Online {
		t.Fatal("offline not committed after grace")
	}

	var sawOffline bool
	for _, e := range observer.eventsNamed(EventUserStatus) {
		p := e.data.(UserStatusPayload)
		if p.UserID == userID.String() && !p.Online {
			sawOffline = true
		}
	}
	if !sawOffline {
		t.Fatal("observer missed the offline broadcast")
	}
}

func TestReconnectWithinGraceStaysOnline(t *testing.T) {
	env := newTestEnv(t, 50*time.Millisecond)
	userID := uuid.New()
	env.store.UpsertUser(context.Background(), userID, "Asha", "", "")

	_, observer := env.connect(t, uuid.New(), "Observer")
	sess, _ := env.connect(t, userID, "Asha")

	env.gateway.Disconnect(sess)

	// Reconnect before the grace window closes (a page reload).
	_, _ = env.connect(t, userID, "Asha")

	time.Sleep(150 * time.Millisecond)

	u, _ := env.store.GetUser(context.Background(), userID)
	if !u.Online {
		t.Fatal("reconnect within grace flipped the user offline")
	}

	for _, e := range observer.eventsNamed(EventUserStatus) {
		p := e.data.(UserStatusPayload)
		if p.UserID == userID.String() && !p.Online {
			t.Fatal("offline broadcast despite reconnect within grace")
		}
	}
}

func TestStaleDisconnectDoesNotEvictNewConnection(t *testing.T) {
	env := newTestEnv(t, 20*time.Millisecond)
	userID := uuid.New()

	oldSess, _ := env.connect(t, userID, "Asha")
	_, newSink := env.connect(t, userID, "Asha")

	// The displaced connection's read loop winds down late.
	env.gateway.Disconnect(oldSess)

	if env.registry.Resolve(userID) != newSink {
		t.Fatal("stale disconnect evicted the live connection")
	}

	time.Sleep(100 * time.Millisecond)

	// The live registration also suppresses the offline commit.
	if env.registry.Resolve(userID) != newSink {
		t.Fatal("live connection lost after grace")
	}
}

func TestUnknownEventIgnored(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	sess, sink := env.connect(t, uuid.New(), "Asha")

	if err := env.gateway.Dispatch(context.Background(), sess, Frame{Event: "moonwalk"}); err != nil {
		t.Fatalf("unknown event must be ignored: %v", err)
	}
	if len(sink.eventsNamed(EventMessageError)) != 0 {
		t.Fatal("unknown event produced an error frame")
	}
}
