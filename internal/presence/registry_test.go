package presence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anasakil/chat-app-techniq8/internal/models"
)

func TestUnknownUserUnreachable(t *testing.T) {
	r := NewRegistry()

	assert.False(t, r.IsReachable("nobody"))
	assert.Empty(t, r.HandlesFor("nobody"))
}

func TestRegisterIdempotent(t *testing.T) {
	r := NewRegistry()
	h := NewHandle("alice", 8)

	r.Register("alice", h)
	r.Register("alice", h)

	require.True(t, r.IsReachable("alice"))
	assert.Len(t, r.HandlesFor("alice"), 1)
}

func TestMultiDeviceHandles(t *testing.T) {
	r := NewRegistry()
	phone := NewHandle("alice", 8)
	laptop := NewHandle("alice", 8)

	r.Register("alice", phone)
	r.Register("alice", laptop)

	assert.Len(t, r.HandlesFor("alice"), 2)
	assert.Equal(t, 2, r.Connections())
	assert.Equal(t, 1, r.OnlineUsers())

	// Dropping one device keeps the user online.
	userID, ok := r.Deregister(phone.ID)
	require.True(t, ok)
	assert.Equal(t, "alice", userID)
	assert.True(t, r.IsReachable("alice"))

	// Dropping the last one takes the user offline.
	_, ok = r.Deregister(laptop.ID)
	require.True(t, ok)
	assert.False(t, r.IsReachable("alice"))
	assert.Empty(t, r.Snapshot())
}

func TestDeregisterUnknownHandle(t *testing.T) {
	r := NewRegistry()

	userID, ok := r.Deregister("no-such-handle")
	assert.False(t, ok)
	assert.Empty(t, userID)
}

func TestDeregisterAtMostOnce(t *testing.T) {
	r := NewRegistry()
	h := NewHandle("alice", 8)
	r.Register("alice", h)

	var removed int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := r.Deregister(h.ID); ok {
				mu.Lock()
				removed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, removed)
}

func TestStatusTransitions(t *testing.T) {
	r := NewRegistry()

	var events []models.PresenceStatus
	var mu sync.Mutex
	r.Subscribe(func(userID string, status models.PresenceStatus) {
		mu.Lock()
		events = append(events, status)
		mu.Unlock()
	})

	h := NewHandle("alice", 8)
	r.Register("alice", h)
	require.True(t, r.SetStatus("alice", models.PresenceAway))
	r.Deregister(h.ID)

	assert.Equal(t, []models.PresenceStatus{
		models.PresenceOnline,
		models.PresenceAway,
		models.PresenceOffline,
	}, events)

	// Offline is owned by Deregister.
	assert.False(t, r.SetStatus("alice", models.PresenceOffline))
}

func TestHandleDropOldestOnOverflow(t *testing.T) {
	h := NewHandle("alice", 2)

	require.True(t, h.Send(models.Event{Type: "a"}))
	require.True(t, h.Send(models.Event{Type: "b"}))
	require.True(t, h.Send(models.Event{Type: "c"})) // evicts "a"

	first := <-h.Out()
	assert.Equal(t, "b", first.Type)
	second := <-h.Out()
	assert.Equal(t, "c", second.Type)
}

func TestClosedHandleRejectsSends(t *testing.T) {
	h := NewHandle("alice", 2)
	h.Close()
	h.Close() // safe to repeat

	assert.False(t, h.Send(models.Event{Type: "a"}))
}

func TestBroadcastReachesAllHandles(t *testing.T) {
	r := NewRegistry()
	h1 := NewHandle("alice", 8)
	h2 := NewHandle("bob", 8)
	r.Register("alice", h1)
	r.Register("bob", h2)

	r.Broadcast(models.Event{Type: models.EventUserStatus})

	for _, h := range []*Handle{h1, h2} {
		select {
		case ev := <-h.Out():
			assert.Equal(t, models.EventUserStatus, ev.Type)
		default:
			t.Fatalf("handle %s received nothing", h.UserID)
		}
	}
}
