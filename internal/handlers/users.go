package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// SyncUserRequest represents the profile sync request body.
type SyncUserRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	ProfileImage string `json:"profile_image"`
}

// SyncUserResponse represents the profile sync response.
type SyncUserResponse struct {
	ID         string `json:"id"`
	ProfileURL string `json:"profile_url"`
}

// SyncUser upserts a user profile from the identity platform.
// Registration is idempotent: repeated syncs update the profile in place.
func (h *Handler) SyncUser(w http.ResponseWriter, r *http.Request) {
	var req SyncUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.ID == "" {
		h.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid user ID format")
		return
	}

	name := sanitizeName(req.Name)
	if name == "" {
		h.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	if !isValidEmail(req.Email) {
		h.Error(w, http.StatusBadRequest, "invalid email format")
		return
	}

	existing, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	user, err := h.store.UpsertUser(r.Context(), id, name, req.Email, req.ProfileImage)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to sync user")
		return
	}

	status := http.StatusCreated
	if existing != nil {
		status = http.StatusOK
	}

	h.JSON(w, status, SyncUserResponse{
		ID:         user.ID.String(),
		ProfileURL: fmt.Sprintf("/api/users/%s", user.ID.String()),
	})
}

// UserResponse represents the user profile response.
type UserResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	ProfileImage string `json:"profile_image,omitempty"`
	Online       bool   `json:"online"`
	LastActive   string `json:"last_active,omitempty"`
	JoinedAt     string `json:"joined_at"`
}

// GetUser handles user profile lookup.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")

	// Validate UUID format
	id, err := uuid.Parse(idStr)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid user ID format")
		return
	}

	user, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	if user == nil {
		h.Error(w, http.StatusNotFound, "user not found")
		return
	}

	resp := UserResponse{
		ID:           user.ID.String(),
		Name:         user.Name,
		Email:        user.Email,
		ProfileImage: user.AvatarURL,
		// Live connections win over the persisted flag.
		Online:   h.registry.Resolve(user.ID) != nil || user.Online,
		JoinedAt: user.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !user.LastActive.IsZero() {
		resp.LastActive = user.LastActive.UTC().Format(time.RFC3339)
	}

	h.JSON(w, http.StatusOK, resp)
}
