package ws

import (
	"encoding/json"
	"time"

	"github.com/dhruvjindal555/AlumLink-sub001/internal/notify"
)

// Inbound event names.
const (
	EventAuthenticate = "authenticate"
	EventSendMessage  = "sendMessage"
	EventTyping       = "typing"
	EventMarkRead     = "markMessagesRead"
)

// Outbound event names.
const (
	EventAuthError    = "authError"
	EventMessageSent  = "messageSent"
	EventNewMessage   = "newMessage"
	EventMessageError = "messageError"
	EventUserTyping   = "userTyping"
	EventMessagesRead = "messagesRead"
	EventUserStatus   = "userStatusChanged"
	EventNotification = notify.EventNotification
)

// Frame is the wire envelope for every socket event, in both
// directions: {"event": name, "data": {...}}.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type AuthenticatePayload struct {
	Token string `json:"token"`
}

type SendMessagePayload struct {
	ReceiverID string   `json:"receiverId"`
	Text       string   `json:"text,omitempty"`
	MediaURLs  []string `json:"mediaUrls,omitempty"`
	MediaType  string   `json:"mediaType,omitempty"`
}

type TypingPayload struct {
	ReceiverID string `json:"receiverId"`
}

type MarkReadPayload struct {
	ChatWithUserID string `json:"chatWithUserId"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

// MessageSentPayload acknowledges a send to its sender.
type MessageSentPayload struct {
	MessageID  string    `json:"messageId"`
	ReceiverID string    `json:"receiverId"`
	Time       time.Time `json:"time"`
	MediaURLs  []string  `json:"mediaUrls,omitempty"`
}

// NewMessagePayload is the live push to a reachable receiver.
type NewMessagePayload struct {
	SenderID     string    `json:"senderId"`
	SenderName   string    `json:"senderName"`
	ProfileImage string    `json:"profileImage,omitempty"`
	Text         string    `json:"text"`
	Time         time.Time `json:"time"`
	MessageID    string    `json:"messageId"`
	MediaURLs    []string  `json:"mediaUrls,omitempty"`
	MediaType    string    `json:"mediaType"`
}

type UserTypingPayload struct {
	UserID string `json:"userId"`
}

type MessagesReadPayload struct {
	ByUserID string `json:"byUserId"`
}

type UserStatusPayload struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}
