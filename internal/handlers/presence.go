package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anasakil/chat-app-techniq8/internal/models"
)

// PresenceResponse lists everyone the registry currently knows about.
type PresenceResponse struct {
	Count int                   `json:"count"`
	Users []models.PresenceInfo `json:"users"`
}

// Presence returns the full presence snapshot.
func (h *Handler) Presence(w http.ResponseWriter, r *http.Request) {
	snapshot := h.registry.Snapshot()
	h.JSON(w, http.StatusOK, PresenceResponse{
		Count: len(snapshot),
		Users: snapshot,
	})
}

// UserPresenceResponse describes a single user's reachability.
type UserPresenceResponse struct {
	UserID    string `json:"userId"`
	Reachable bool   `json:"reachable"`
	Pending   int    `json:"pending"`
	Name      string `json:"name,omitempty"`
}

// UserPresence handles a single-user presence lookup.
func (h *Handler) UserPresence(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		h.Error(w, http.StatusBadRequest, "user ID required")
		return
	}

	resp := UserPresenceResponse{
		UserID:    userID,
		Reachable: h.registry.IsReachable(userID),
		Pending:   h.pending.Depth(userID),
	}

	if h.dir != nil {
		if profile, err := h.dir.GetProfile(r.Context(), userID); err == nil && profile != nil {
			resp.Name = profile.Name
		}
	}

	h.JSON(w, http.StatusOK, resp)
}
