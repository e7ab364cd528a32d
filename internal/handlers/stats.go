package handlers

import (
	"net/http"
	"time"
)

// StatsResponse represents the response from the stats endpoint.
type StatsResponse struct {
	TotalUsers    int64  `json:"total_users"`
	TotalThreads  int64  `json:"total_threads"`
	TotalMessages int64  `json:"total_messages"`
	OnlineUsers   int    `json:"online_users"`
	Timestamp     string `json:"timestamp"`
}

// Stats returns platform statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totalUsers, err := h.store.CountUsers(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count users")
		return
	}

	totalThreads, err := h.store.CountThreads(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count threads")
		return
	}

	totalMessages, err := h.store.CountMessages(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count messages")
		return
	}

	h.JSON(w, http.StatusOK, StatsResponse{
		TotalUsers:    totalUsers,
		TotalThreads:  totalThreads,
		TotalMessages: totalMessages,
		OnlineUsers:   h.registry.Len(),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}
