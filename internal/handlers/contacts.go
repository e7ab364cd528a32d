package handlers

import (
	"net/http"

	"github.com/dhruvjindal555/AlumLink-sub001/internal/api/middleware"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/chat"
)

// ContactsResponse represents the contact list response.
type ContactsResponse struct {
	Contacts []chat.Contact `json:"contacts"`
	Count    int            `json:"count"`
}

// GetContacts returns every conversation counterpart of the caller with
// preview, unread count and history, most recent activity first.
// Unlike GetMessages this has no read side effect.
func (h *Handler) GetContacts(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentityFromContext(r.Context())
	if id == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	contacts, err := h.chat.Contacts(r.Context(), id.UserID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to load contacts")
		return
	}

	h.JSON(w, http.StatusOK, ContactsResponse{
		Contacts: contacts,
		Count:    len(contacts),
	})
}
