package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/anasakil/chat-app-techniq8/internal/archive"
	"github.com/anasakil/chat-app-techniq8/internal/directory"
	"github.com/anasakil/chat-app-techniq8/internal/presence"
	"github.com/anasakil/chat-app-techniq8/internal/queue"
	"github.com/anasakil/chat-app-techniq8/internal/tracker"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	registry *presence.Registry
	pending  *queue.PendingQueue
	tracker  *tracker.Tracker
	dir      directory.Directory
	arc      *archive.Archive
}

// NewHandler creates a new Handler over the live server state.
func NewHandler(reg *presence.Registry, pending *queue.PendingQueue, tr *tracker.Tracker, dir directory.Directory, arc *archive.Archive) *Handler {
	return &Handler{registry: reg, pending: pending, tracker: tr, dir: dir, arc: arc}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
