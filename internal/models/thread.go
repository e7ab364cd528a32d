package models

import (
	"time"

	"github.com/google/uuid"
)

// Thread is the single conversation record between exactly two
// participants. Participants are stored in canonical order (UserA <
// UserB lexicographically) so that the pair (A,B) and (B,A) always
// resolve to the same row. Threads are never deleted.
type Thread struct {
	ID            uuid.UUID  `json:"id"`
	UserA         uuid.UUID  `json:"user_a"`
	UserB         uuid.UUID  `json:"user_b"`
	Preview       string     `json:"preview"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	UnreadA       int64      `json:"-"`
	UnreadB       int64      `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CanonicalPair orders two participant IDs so that unordered pairs map
// to a single storage key.
func CanonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}

// PeerOf returns the other participant of the thread.
func (t *Thread) PeerOf(userID uuid.UUID) uuid.UUID {
	if t.UserA == userID {
		return t.UserB
	}
	return t.UserA
}

// UnreadFor returns the unread counter belonging to the given participant.
func (t *Thread) UnreadFor(userID uuid.UUID) int64 {
	if t.UserA == userID {
		return t.UnreadA
	}
	if t.UserB == userID {
		return t.UnreadB
	}
	return 0
}

// UnreadCounts materializes the per-participant counters as a map
// keyed by participant ID, the shape the HTTP layer serializes.
func (t *Thread) UnreadCounts() map[string]int64 {
	return map[string]int64{
		t.UserA.String(): t.UnreadA,
		t.UserB.String(): t.UnreadB,
	}
}
