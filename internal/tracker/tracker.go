// Package tracker keeps a best-effort in-memory mirror of recent
// conversations and message delivery states for UX (recent history, read
// receipts). It is not the system of record; a durable store collaborator
// holds ground truth when persistence matters.
package tracker

import (
	"sync"

	"github.com/anasakil/chat-app-techniq8/internal/models"
)

// DefaultCap bounds each conversation's retained history.
const DefaultCap = 100

// Key returns the canonical conversation key for a pair of users: the
// same key regardless of direction.
func Key(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// Tracker indexes bounded conversation histories by canonical pair key.
// Safe for concurrent use.
type Tracker struct {
	mu            sync.Mutex
	cap           int
	conversations map[string][]models.Message
}

// NewTracker creates a tracker with the given per-conversation cap.
func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &Tracker{
		cap:           capacity,
		conversations: make(map[string][]models.Message),
	}
}

// Record appends a message to the pair's history, evicting the oldest
// entry when the cap is reached.
func (t *Tracker) Record(senderID, receiverID string, msg models.Message) {
	key := Key(senderID, receiverID)

	t.mu.Lock()
	defer t.mu.Unlock()

	history := t.conversations[key]
	if len(history) >= t.cap {
		history = history[len(history)-t.cap+1:]
	}
	t.conversations[key] = append(history, msg)
}

// UpdateStatus advances a tracked message's status. Transitions only move
// forward (sent < delivered < read); regressions are ignored. Returns
// whether a message with the given ID was found.
func (t *Tracker) UpdateStatus(messageID string, status models.Status) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, history := range t.conversations {
		for i := range history {
			if history[i].ID != messageID {
				continue
			}
			if status.Advances(history[i].Status) {
				history[i].Status = status
				t.conversations[key] = history
			}
			return true
		}
	}
	return false
}

// History returns a copy of the tracked conversation between two users,
// oldest first. Argument order does not matter.
func (t *Tracker) History(userA, userB string) []models.Message {
	key := Key(userA, userB)

	t.mu.Lock()
	defer t.mu.Unlock()

	history := t.conversations[key]
	if len(history) == 0 {
		return nil
	}
	out := make([]models.Message, len(history))
	copy(out, history)
	return out
}

// Conversations returns the number of tracked conversations.
func (t *Tracker) Conversations() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conversations)
}
