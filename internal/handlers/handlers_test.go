package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dhruvjindal555/AlumLink-sub001/internal/api/middleware"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/chat"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/presence"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/store"
)

type testServer struct {
	router *chi.Mux
	store  *store.SQLiteStore
	chat   *chat.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := store.NewSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(st.Close)

	registry := presence.NewRegistry()
	chatSvc := chat.NewService(st, nil, zerolog.Nop())
	h := NewHandler(st, chatSvc, registry, nil)

	r := chi.NewRouter()
	r.Get("/health", h.Health)
	r.Post("/api/users", h.SyncUser)
	r.Get("/api/users/{id}", h.GetUser)
	r.Get("/api/messages", h.GetMessages)
	r.Get("/api/messages/search", h.SearchMessages)
	r.Get("/api/contacts", h.GetContacts)
	r.Post("/api/threads", h.OpenThread)
	r.Get("/api/stats", h.Stats)

	return &testServer{router: r, store: st, chat: chatSvc}
}

// do performs a request, optionally authenticated as userID.
func (s *testServer) do(t *testing.T, method, path, body string, userID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		req = req.WithContext(middleware.WithIdentity(req.Context(), &middleware.Identity{UserID: userID}))
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, w.Body.String())
	}
}

func TestSyncUserCreatesAndUpdates(t *testing.T) {
	s := newTestServer(t)
	id := uuid.New()

	w := s.do(t, "POST", "/api/users", `{"id":"`+id.String()+`","name":"Asha","email":"asha@example.com"}`, id)
	if w.Code != http.StatusCreated {
		t.Fatalf("first sync status = %d, body %s", w.Code, w.Body.String())
	}

	// Second sync is an update, not a duplicate.
	w = s.do(t, "POST", "/api/users", `{"id":"`+id.String()+`","name":"Asha Rao"}`, id)
	if w.Code != http.StatusOK {
		t.Fatalf("second sync status = %d", w.Code)
	}

	u, _ := s.store.GetUser(context.Background(), id)
	if u.Name != "Asha Rao" {
		t.Fatalf("name = %q", u.Name)
	}
}

func TestSyncUserValidation(t *testing.T) {
	s := newTestServer(t)
	id := uuid.New()

	cases := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"missing id", `{"name":"Asha"}`},
		{"bad id", `{"id":"nope","name":"Asha"}`},
		{"missing name", `{"id":"` + id.String() + `"}`},
		{"bad email", `{"id":"` + id.String() + `","name":"Asha","email":"not-an-email"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, "POST", "/api/users", tc.body, id)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestGetUser(t *testing.T) {
	s := newTestServer(t)
	id := uuid.New()
	s.store.UpsertUser(context.Background(), id, "Ravi", "ravi@example.com", "")

	w := s.do(t, "GET", "/api/users/"+id.String(), "", id)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp UserResponse
	decode(t, w, &resp)
	if resp.Name != "Ravi" || resp.Online {
		t.Fatalf("unexpected profile: %+v", resp)
	}

	if w := s.do(t, "GET", "/api/users/"+uuid.NewString(), "", id); w.Code != http.StatusNotFound {
		t.Fatalf("missing user status = %d, want 404", w.Code)
	}
	if w := s.do(t, "GET", "/api/users/abc", "", id); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", w.Code)
	}
}

func TestGetMessagesMarksRead(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	me, peer := uuid.New(), uuid.New()

	s.chat.Send(ctx, chat.SendInput{SenderID: peer, ReceiverID: me, Text: "hello"})
	s.chat.Send(ctx, chat.SendInput{SenderID: peer, ReceiverID: me, Text: "you there?"})

	w := s.do(t, "GET", "/api/messages?with="+peer.String(), "", me)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp MessagesResponse
	decode(t, w, &resp)
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	for _, m := range resp.Messages {
		if !m.Read {
			t.Fatalf("fetched message %s not marked read", m.ID)
		}
	}

	th, _ := s.store.GetThreadByPair(ctx, me, peer)
	if th.UnreadFor(me) != 0 {
		t.Fatalf("unread after fetch = %d, want 0", th.UnreadFor(me))
	}
}

func TestGetMessagesRequiresWith(t *testing.T) {
	s := newTestServer(t)
	me := uuid.New()

	if w := s.do(t, "GET", "/api/messages", "", me); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if w := s.do(t, "GET", "/api/messages?with=abc", "", me); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", w.Code)
	}
}

func TestGetContacts(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	me, peer := uuid.New(), uuid.New()

	s.store.UpsertUser(ctx, peer, "Nina", "", "")
	s.chat.Send(ctx, chat.SendInput{SenderID: peer, ReceiverID: me, Text: "hi"})

	w := s.do(t, "GET", "/api/contacts", "", me)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp ContactsResponse
	decode(t, w, &resp)
	if resp.Count != 1 {
		t.Fatalf("count = %d, want 1", resp.Count)
	}
	c := resp.Contacts[0]
	if c.User.Name != "Nina" || c.Unread != 1 || c.Preview != "hi" {
		t.Fatalf("unexpected contact: %+v", c)
	}

	// Listing does not acknowledge.
	th, _ := s.store.GetThreadByPair(ctx, me, peer)
	if th.UnreadFor(me) != 1 {
		t.Fatalf("unread after listing = %d, want 1", th.UnreadFor(me))
	}
}

func TestOpenThread(t *testing.T) {
	s := newTestServer(t)
	me, peer := uuid.New(), uuid.New()

	w := s.do(t, "POST", "/api/threads", `{"peer_id":"`+peer.String()+`"}`, me)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp OpenThreadResponse
	decode(t, w, &resp)
	if len(resp.Participants) != 2 {
		t.Fatalf("participants: %v", resp.Participants)
	}

	// Opening again returns the same thread.
	w = s.do(t, "POST", "/api/threads", `{"peer_id":"`+peer.String()+`"}`, me)
	var again OpenThreadResponse
	decode(t, w, &again)
	if again.ID != resp.ID {
		t.Fatalf("reopen produced a new thread: %s vs %s", again.ID, resp.ID)
	}

	// Self threads are rejected.
	w = s.do(t, "POST", "/api/threads", `{"peer_id":"`+me.String()+`"}`, me)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("self thread status = %d, want 400", w.Code)
	}
}

func TestSearchUnavailableWithoutRedis(t *testing.T) {
	s := newTestServer(t)
	me := uuid.New()

	w := s.do(t, "GET", "/api/messages/search?q=reunion", "", me)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestStats(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	s.store.UpsertUser(ctx, a, "Asha", "", "")
	s.store.UpsertUser(ctx, b, "Ravi", "", "")
	s.chat.Send(ctx, chat.SendInput{SenderID: a, ReceiverID: b, Text: "hi"})

	w := s.do(t, "GET", "/api/stats", "", a)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp StatsResponse
	decode(t, w, &resp)
	if resp.TotalUsers != 2 || resp.TotalThreads != 1 || resp.TotalMessages != 1 {
		t.Fatalf("unexpected stats: %+v", resp)
	}
}

func TestHealthDegradedWithoutRedisIsStillHealthy(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "GET", "/health", "", uuid.Nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp HealthResponse
	decode(t, w, &resp)
	if resp.Status != "healthy" {
		t.Fatalf("status = %q", resp.Status)
	}
	if resp.Checks["database"].Status != "pass" {
		t.Fatalf("database check: %+v", resp.Checks["database"])
	}
}
