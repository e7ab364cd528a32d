package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is the durable record produced for a recipient on every
// successful message send. The platform's notification feed reads
// these; this core only creates them.
type Notification struct {
	ID         string    `json:"id"` // ULID
	UserID     uuid.UUID `json:"user_id"`
	Type       string    `json:"type"` // always "chat" from this core
	Title      string    `json:"title"`
	Body       string    `json:"message"`
	MessageID  string    `json:"message_id"`
	SenderName string    `json:"sender_name"`
	CreatedAt  time.Time `json:"created_at"`
}
