// Package queue buffers messages addressed to currently-unreachable
// users. Memory-only: a process restart loses pending messages, which is
// an accepted limitation — durable queueing belongs to an external
// collaborator.
package queue

import (
	"sync"
	"time"

	"github.com/anasakil/chat-app-techniq8/internal/models"
)

// DefaultCap bounds each receiver's buffer.
const DefaultCap = 100

// Entry wraps a queued message with its enqueue time.
type Entry struct {
	Message  models.Message
	QueuedAt time.Time
}

// PendingQueue holds per-receiver FIFO buffers. Safe for concurrent use.
type PendingQueue struct {
	mu         sync.Mutex
	cap        int
	byReceiver map[string][]Entry
}

// NewPendingQueue creates a queue with the given per-receiver cap.
func NewPendingQueue(capacity int) *PendingQueue {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &PendingQueue{
		cap:        capacity,
		byReceiver: make(map[string][]Entry),
	}
}

// Enqueue appends a message to the receiver's buffer, evicting the oldest
// entry first when the cap is reached.
func (q *PendingQueue) Enqueue(receiverID string, msg models.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()

	buf := q.byReceiver[receiverID]
	if len(buf) >= q.cap {
		buf = buf[len(buf)-q.cap+1:]
	}
	q.byReceiver[receiverID] = append(buf, Entry{Message: msg, QueuedAt: time.Now()})
}

// Drain atomically removes and returns all of the receiver's queued
// messages in arrival order. A racing Enqueue either lands before the
// swap (and is drained now) or after (and waits for the next drain);
// nothing is lost or drained twice.
func (q *PendingQueue) Drain(receiverID string) []models.Message {
	q.mu.Lock()
	buf, ok := q.byReceiver[receiverID]
	if ok {
		delete(q.byReceiver, receiverID)
	}
	q.mu.Unlock()

	if len(buf) == 0 {
		return nil
	}
	msgs := make([]models.Message, len(buf))
	for i, e := range buf {
		msgs[i] = e.Message
	}
	return msgs
}

// Depth returns the number of messages queued for one receiver.
func (q *PendingQueue) Depth(receiverID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.byReceiver[receiverID])
}

// Total returns the number of queued messages across all receivers.
func (q *PendingQueue) Total() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	total := 0
	for _, buf := range q.byReceiver {
		total += len(buf)
	}
	return total
}
