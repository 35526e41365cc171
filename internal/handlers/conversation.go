package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/anasakil/chat-app-techniq8/internal/models"
)

const defaultConversationLimit = 50

// ConversationResponse lists archived messages between two users. Content
// stays sealed; this surface is for inspecting delivery, not reading mail.
type ConversationResponse struct {
	UserA    string           `json:"userA"`
	UserB    string           `json:"userB"`
	Count    int              `json:"count"`
	Messages []models.Message `json:"messages"`
}

// Conversation handles archived-conversation lookup.
func (h *Handler) Conversation(w http.ResponseWriter, r *http.Request) {
	userA := chi.URLParam(r, "a")
	userB := chi.URLParam(r, "b")
	if userA == "" || userB == "" {
		h.Error(w, http.StatusBadRequest, "both user IDs required")
		return
	}

	if h.arc == nil {
		h.Error(w, http.StatusNotFound, "archive not configured")
		return
	}

	limit := defaultConversationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			h.Error(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	messages, err := h.arc.RecentMessages(r.Context(), userA, userB, limit)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "archive lookup failed")
		return
	}

	h.JSON(w, http.StatusOK, ConversationResponse{
		UserA:    userA,
		UserB:    userB,
		Count:    len(messages),
		Messages: messages,
	})
}
