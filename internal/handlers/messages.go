package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/dhruvjindal555/AlumLink-sub001/internal/api/middleware"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/models"
)

// MessagesResponse represents the conversation history response.
type MessagesResponse struct {
	Messages []models.Message `json:"messages"`
	Count    int              `json:"count"`
}

// GetMessages returns the full conversation between the caller and the
// user given by ?with=. Fetching acknowledges the conversation, so the
// counterpart's unread counter is reset as a side effect.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentityFromContext(r.Context())
	if id == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	withStr := r.URL.Query().Get("with")
	if withStr == "" {
		h.Error(w, http.StatusBadRequest, "with query parameter is required")
		return
	}

	withID, err := uuid.Parse(withStr)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid user ID format")
		return
	}

	messages, err := h.chat.History(r.Context(), id.UserID, withID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	h.JSON(w, http.StatusOK, MessagesResponse{
		Messages: messages,
		Count:    len(messages),
	})
}

// OpenThreadRequest represents the thread creation request body.
type OpenThreadRequest struct {
	PeerID string `json:"peer_id"`
}

// OpenThreadResponse represents the thread creation response.
type OpenThreadResponse struct {
	ID            string           `json:"id"`
	Participants  []string         `json:"participants"`
	Preview       string           `json:"preview"`
	UnreadCounts  map[string]int64 `json:"unread_counts"`
	LastMessageAt string           `json:"last_message_at,omitempty"`
}

// OpenThread ensures a thread exists between the caller and a peer.
// Linking two users as contacts calls this before any message is sent,
// so both sides see each other in their contact lists immediately.
func (h *Handler) OpenThread(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentityFromContext(r.Context())
	if id == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req OpenThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	peerID, err := uuid.Parse(req.PeerID)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid peer ID format")
		return
	}

	thread, err := h.chat.Open(r.Context(), id.UserID, peerID)
	if err != nil {
		h.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := OpenThreadResponse{
		ID:           thread.ID.String(),
		Participants: []string{thread.UserA.String(), thread.UserB.String()},
		Preview:      thread.Preview,
		UnreadCounts: thread.UnreadCounts(),
	}
	if thread.LastMessageAt != nil {
		resp.LastMessageAt = thread.LastMessageAt.UTC().Format("2006-01-02T15:04:05Z")
	}

	h.JSON(w, http.StatusOK, resp)
}
