// Package presence tracks which users currently own live connection
// handles. A user may hold several handles at once (multi-device); the
// registry keeps both the user->handles map and the reverse handle->user
// index so disconnects resolve in O(1).
package presence

import (
	"sync"
	"time"

	"github.com/anasakil/chat-app-techniq8/internal/models"
)

// StatusListener is notified after a user's presence changes. It is
// invoked outside the registry lock.
type StatusListener func(userID string, status models.PresenceStatus)

type entry struct {
	handles  map[string]*Handle
	status   models.PresenceStatus
	lastSeen time.Time
}

// Registry is the shared presence table. All methods are safe for
// concurrent use and none blocks on I/O.
type Registry struct {
	mu       sync.RWMutex
	users    map[string]*entry
	byHandle map[string]string

	listenerMu sync.RWMutex
	listeners  []StatusListener
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		users:    make(map[string]*entry),
		byHandle: make(map[string]string),
	}
}

// Subscribe registers a listener for presence changes.
func (r *Registry) Subscribe(l StatusListener) {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()
	r.listeners = append(r.listeners, l)
}

func (r *Registry) notify(userID string, status models.PresenceStatus) {
	r.listenerMu.RLock()
	listeners := r.listeners
	r.listenerMu.RUnlock()
	for _, l := range listeners {
		l(userID, status)
	}
}

// Register adds a handle to the user's handle set and marks the user
// online. Registering the same handle twice is a no-op.
func (r *Registry) Register(userID string, h *Handle) {
	r.mu.Lock()
	e, ok := r.users[userID]
	if !ok {
		e = &entry{handles: make(map[string]*Handle)}
		r.users[userID] = e
	}
	if _, dup := e.handles[h.ID]; dup {
		r.mu.Unlock()
		return
	}
	e.handles[h.ID] = h
	e.status = models.PresenceOnline
	e.lastSeen = time.Now()
	r.byHandle[h.ID] = userID
	r.mu.Unlock()

	r.notify(userID, models.PresenceOnline)
}

// Deregister removes a handle from whichever user owns it. When the
// user's handle set empties, the user goes offline and the affected
// userID is returned so the caller can broadcast. Unknown handles return
// ("", false); a concurrent double-disconnect resolves to exactly one
// removal.
func (r *Registry) Deregister(handleID string) (string, bool) {
	r.mu.Lock()
	userID, ok := r.byHandle[handleID]
	if !ok {
		r.mu.Unlock()
		return "", false
	}
	delete(r.byHandle, handleID)

	e := r.users[userID]
	delete(e.handles, handleID)
	wentOffline := len(e.handles) == 0
	if wentOffline {
		// Empty handle set must never read as online.
		delete(r.users, userID)
	} else {
		e.lastSeen = time.Now()
	}
	r.mu.Unlock()

	if wentOffline {
		r.notify(userID, models.PresenceOffline)
	}
	return userID, true
}

// SetStatus updates a connected user's advertised status (online/away).
// Offline is owned by Deregister and cannot be set directly.
func (r *Registry) SetStatus(userID string, status models.PresenceStatus) bool {
	if status == models.PresenceOffline {
		return false
	}
	r.mu.Lock()
	e, ok := r.users[userID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	changed := e.status != status
	e.status = status
	e.lastSeen = time.Now()
	r.mu.Unlock()

	if changed {
		r.notify(userID, status)
	}
	return true
}

// IsReachable reports whether the user owns at least one live handle.
func (r *Registry) IsReachable(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.users[userID]
	return ok && len(e.handles) > 0
}

// HandlesFor returns the user's live handles; empty when offline.
func (r *Registry) HandlesFor(userID string) []*Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.users[userID]
	if !ok {
		return nil
	}
	handles := make([]*Handle, 0, len(e.handles))
	for _, h := range e.handles {
		handles = append(handles, h)
	}
	return handles
}

// Snapshot lists every connected user and status, for answering "who is
// online" at connect time.
func (r *Registry) Snapshot() []models.PresenceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]models.PresenceInfo, 0, len(r.users))
	for userID, e := range r.users {
		infos = append(infos, models.PresenceInfo{
			UserID:   userID,
			Status:   e.status,
			LastSeen: e.lastSeen,
		})
	}
	return infos
}

// Broadcast fans an event out to every connected handle.
func (r *Registry) Broadcast(ev models.Event) {
	r.mu.RLock()
	handles := make([]*Handle, 0, len(r.byHandle))
	for _, e := range r.users {
		for _, h := range e.handles {
			handles = append(handles, h)
		}
	}
	r.mu.RUnlock()

	for _, h := range handles {
		h.Send(ev)
	}
}

// Connections returns the number of live handles.
func (r *Registry) Connections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byHandle)
}

// OnlineUsers returns the number of users with at least one handle.
func (r *Registry) OnlineUsers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
