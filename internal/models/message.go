package models

import (
	"time"

	"github.com/google/uuid"
)

// MediaKind tags the content type of a message.
type MediaKind string

const (
	MediaText  MediaKind = "text"
	MediaEmoji MediaKind = "emoji"
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
	MediaFile  MediaKind = "file"
)

// ValidMediaKind reports whether k is one of the known media tags.
func ValidMediaKind(k MediaKind) bool {
	switch k {
	case MediaText, MediaEmoji, MediaImage, MediaVideo, MediaAudio, MediaFile:
		return true
	}
	return false
}

// MediaPlaceholder is the preview text used when a message carries
// attachments but no text.
const MediaPlaceholder = "media message"

// PreviewText derives the display text for a message: the literal
// text when present, otherwise a media placeholder. Used both for the
// stored message text and the thread preview. A message with neither
// never reaches storage.
func PreviewText(text string, mediaURLs []string) string {
	if text != "" {
		return text
	}
	if len(mediaURLs) > 0 {
		return MediaPlaceholder
	}
	return ""
}

// Message is one entry in the append-only message log. Immutable once
// created except for Read, which transitions false to true only.
type Message struct {
	ID         string    `json:"id"` // ULID, sortable by creation time
	SenderID   uuid.UUID `json:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	Text       string    `json:"text"`
	MediaURLs  []string  `json:"media_urls,omitempty"`
	MediaType  MediaKind `json:"media_type"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}
