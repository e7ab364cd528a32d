// Package presence tracks which users currently hold a live,
// authenticated connection. The registry is process-local shared
// state: it is not visible to other instances, and a multi-instance
// deployment would need an external presence store.
package presence

import (
	"sync"

	"github.com/google/uuid"
)

// Sink is the push side of a live connection. Implemented by the
// websocket client; tests substitute their own.
type Sink interface {
	Send(event string, data any) error
	Close() error
}

// Registry maps user identity to the single active connection sink.
// A second registration for the same user displaces the first
// (last-writer-wins; multi-device is not multiplexed).
type Registry struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]Sink
}

// NewRegistry creates an empty registry. It starts empty on process
// restart, so every user is implicitly offline until they reconnect.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[uuid.UUID]Sink)}
}

// Register binds a user to a sink, returning the displaced sink if the
// user was already connected.
func (r *Registry) Register(userID uuid.UUID, s Sink) Sink {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.conns[userID]
	r.conns[userID] = s
	if prev == s {
		return nil
	}
	return prev
}

// Unregister removes the binding only if it still points at the given
// sink, so a stale disconnect never evicts a newer connection.
func (r *Registry) Unregister(userID uuid.UUID, s Sink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[userID] != s {
		return false
	}
	delete(r.conns, userID)
	return true
}

// Resolve returns the user's live sink, or nil.
func (r *Registry) Resolve(userID uuid.UUID) Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[userID]
}

// Broadcast pushes an event to every live connection. Send failures
// are ignored; a dead sink cleans itself up on its own pump.
func (r *Registry) Broadcast(event string, data any) {
	r.mu.RLock()
	sinks := make([]Sink, 0, len(r.conns))
	for _, s := range r.conns {
		sinks = append(sinks, s)
	}
	r.mu.RUnlock()

	for _, s := range sinks {
		_ = s.Send(event, data)
	}
}

// Online returns the ids of all currently connected users.
func (r *Registry) Online() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
