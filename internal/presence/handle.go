package presence

import (
	"sync"

	"github.com/anasakil/chat-app-techniq8/internal/crypto"
	"github.com/anasakil/chat-app-techniq8/internal/models"
)

// Handle is one live connection endpoint for a user. Sends are buffered
// and never block: a slow or dead receiver must not stall dispatch for
// other users, so an overflowing buffer drops the oldest queued event.
type Handle struct {
	ID     string
	UserID string

	out  chan models.Event
	done chan struct{}

	closeOnce sync.Once
}

// NewHandle creates a handle with the given outbound buffer size.
func NewHandle(userID string, buffer int) *Handle {
	if buffer <= 0 {
		buffer = 64
	}
	return &Handle{
		ID:     crypto.NewUUIDv7().String(),
		UserID: userID,
		out:    make(chan models.Event, buffer),
		done:   make(chan struct{}),
	}
}

// Send queues an event for the connection writer. It never blocks; when
// the buffer is full the oldest event is evicted first. Returns false if
// the event could not be queued or the handle is closed.
func (h *Handle) Send(ev models.Event) bool {
	select {
	case <-h.done:
		return false
	default:
	}

	select {
	case h.out <- ev:
		return true
	default:
	}

	// Buffer full: evict oldest, then retry once.
	select {
	case <-h.out:
	default:
	}
	select {
	case h.out <- ev:
		return true
	default:
		return false
	}
}

// Out is the channel the connection writer drains.
func (h *Handle) Out() <-chan models.Event { return h.out }

// Done is closed when the handle is shut down.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Close shuts the handle down. Safe to call more than once.
func (h *Handle) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}
