package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an alumni profile as seen by the messaging core. Profile
// fields are owned by the platform; only Online and LastActive are
// mutated here, on connect and disconnect.
type User struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	AvatarURL  string    `json:"profile_image,omitempty"`
	Online     bool      `json:"online"`
	LastActive time.Time `json:"last_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
