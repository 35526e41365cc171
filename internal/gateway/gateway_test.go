package gateway

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anasakil/chat-app-techniq8/internal/auth"
	"github.com/anasakil/chat-app-techniq8/internal/crypto"
	"github.com/anasakil/chat-app-techniq8/internal/models"
	"github.com/anasakil/chat-app-techniq8/internal/presence"
	"github.com/anasakil/chat-app-techniq8/internal/queue"
	"github.com/anasakil/chat-app-techniq8/internal/router"
	"github.com/anasakil/chat-app-techniq8/internal/signal"
	"github.com/anasakil/chat-app-techniq8/internal/tracker"
)

func newTestGateway(t *testing.T, verifier auth.Verifier) (*Gateway, *queue.PendingQueue) {
	t.Helper()
	codec, err := crypto.NewCodec("test-secret", "test-salt")
	require.NoError(t, err)

	reg := presence.NewRegistry()
	pq := queue.NewPendingQueue(100)
	tr := tracker.NewTracker(100)
	rt := router.New(zerolog.Nop(), codec, reg, pq, tr, nil, nil)
	rl := signal.NewRelay(zerolog.Nop(), reg)

	g := New(zerolog.Nop(), Config{
		OutboundBuffer: 64,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
	}, verifier, reg, rt, rl)
	return g, pq
}

// testClient simulates one connected device over a net.Pipe.
type testClient struct {
	t       *testing.T
	conn    net.Conn
	scanner *bufio.Scanner
}

func connectClient(t *testing.T, g *Gateway) *testClient {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	go g.handleConn(serverConn)

	scanner := bufio.NewScanner(clientConn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	c := &testClient{t: t, conn: clientConn, scanner: scanner}
	t.Cleanup(func() { clientConn.Close() })
	return c
}

func (c *testClient) emit(eventType string, data any) {
	c.t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(c.t, err)
	frame, err := json.Marshal(models.Frame{Type: eventType, Data: raw})
	require.NoError(c.t, err)

	c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	_, err = c.conn.Write(append(frame, '\n'))
	require.NoError(c.t, err)
}

type receivedEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// waitFor reads events until one matches the wanted type.
func (c *testClient) waitFor(eventType string) receivedEvent {
	c.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.conn.SetReadDeadline(deadline)
		if !c.scanner.Scan() {
			break
		}
		var ev receivedEvent
		require.NoError(c.t, json.Unmarshal(c.scanner.Bytes(), &ev))
		if ev.Type == eventType {
			return ev
		}
	}
	c.t.Fatalf("never received %q", eventType)
	return receivedEvent{}
}

func decodeData[T any](t *testing.T, ev receivedEvent) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(ev.Data, &out))
	return out
}

func TestConnectBroadcastsOnlineStatus(t *testing.T) {
	g, _ := newTestGateway(t, nil)

	alice := connectClient(t, g)
	alice.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "alice"})

	ev := alice.waitFor(models.EventUserStatus)
	status := decodeData[models.UserStatusPayload](t, ev)
	assert.Equal(t, "alice", status.UserID)
	assert.Equal(t, models.PresenceOnline, status.Status)
}

func TestOfflineSendQueuedAndReplayedOnConnect(t *testing.T) {
	g, pq := newTestGateway(t, nil)

	alice := connectClient(t, g)
	alice.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "alice"})
	alice.waitFor(models.EventUserStatus)

	// Bob is offline: alice is told the message is pending.
	alice.emit(models.EventSendMessage, models.SendMessageRequest{ReceiverID: "bob", Message: "hi"})
	pendingAck := decodeData[models.MessageStatusPayload](t, alice.waitFor(models.EventMessagePending))
	assert.Equal(t, models.StatusPending, pendingAck.Status)

	// Bob connects and the message is replayed; the queue empties.
	bob := connectClient(t, g)
	bob.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "bob"})
	msg := decodeData[models.NewMessagePayload](t, bob.waitFor(models.EventNewMessage))
	assert.Equal(t, "hi", msg.Content)
	assert.Equal(t, "alice", msg.SenderID)
	assert.Equal(t, models.StatusDelivered, msg.Status)
	assert.Equal(t, 0, pq.Depth("bob"))

	// Alice sees the delivery catch up.
	upd := decodeData[models.MessageStatusPayload](t, alice.waitFor(models.EventMessageStatusUpdate))
	assert.Equal(t, models.StatusDelivered, upd.Status)
}

func TestLiveDeliveryFansOutToBothDevices(t *testing.T) {
	g, _ := newTestGateway(t, nil)

	alice := connectClient(t, g)
	alice.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "alice"})
	alice.waitFor(models.EventUserStatus)

	bobPhone := connectClient(t, g)
	bobPhone.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "bob"})
	bobPhone.waitFor(models.EventUserStatus)
	bobDesk := connectClient(t, g)
	bobDesk.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "bob"})
	bobDesk.waitFor(models.EventUserStatus)

	alice.emit(models.EventSendMessage, models.SendMessageRequest{ReceiverID: "bob", Message: "hello both", MessageID: "m1"})

	for _, device := range []*testClient{bobPhone, bobDesk} {
		msg := decodeData[models.NewMessagePayload](t, device.waitFor(models.EventNewMessage))
		assert.Equal(t, "hello both", msg.Content)
	}

	ack := decodeData[models.MessageStatusPayload](t, alice.waitFor(models.EventMessageDelivered))
	assert.Equal(t, "m1", ack.MessageID)
}

func TestSignalToOfflineUserFailsCall(t *testing.T) {
	g, _ := newTestGateway(t, nil)

	alice := connectClient(t, g)
	alice.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "alice"})
	alice.waitFor(models.EventUserStatus)

	alice.emit(models.EventOffer, models.SignalRequest{
		ReceiverID: "bob",
		Payload:    json.RawMessage(`{"sdp":"x","callType":"audio"}`),
	})

	failed := decodeData[models.CallFailedPayload](t, alice.waitFor(models.EventCallFailed))
	assert.Equal(t, signal.ReasonOffline, failed.Reason)
	assert.Equal(t, "bob", failed.ReceiverID)
}

func TestSignalForwardedWithSender(t *testing.T) {
	g, _ := newTestGateway(t, nil)

	alice := connectClient(t, g)
	alice.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "alice"})
	alice.waitFor(models.EventUserStatus)
	bob := connectClient(t, g)
	bob.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "bob"})
	bob.waitFor(models.EventUserStatus)

	alice.emit(models.EventOffer, models.SignalRequest{
		ReceiverID: "bob",
		Payload:    json.RawMessage(`{"sdp":"offer-sdp","callType":"video"}`),
	})

	offer := decodeData[models.SignalPayload](t, bob.waitFor(models.EventOffer))
	assert.Equal(t, "alice", offer.SenderID)
	assert.JSONEq(t, `{"sdp":"offer-sdp","callType":"video"}`, string(offer.Payload))
}

func TestTypingIndicatorForwarded(t *testing.T) {
	g, _ := newTestGateway(t, nil)

	alice := connectClient(t, g)
	alice.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "alice"})
	alice.waitFor(models.EventUserStatus)
	bob := connectClient(t, g)
	bob.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "bob"})
	bob.waitFor(models.EventUserStatus)

	alice.emit(models.EventTyping, models.TypingRequest{ReceiverID: "bob"})

	typing := decodeData[models.UserTypingPayload](t, bob.waitFor(models.EventUserTyping))
	assert.Equal(t, "alice", typing.SenderID)
}

func TestConversationHistoryRequest(t *testing.T) {
	g, _ := newTestGateway(t, nil)

	alice := connectClient(t, g)
	alice.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "alice"})
	alice.waitFor(models.EventUserStatus)
	bob := connectClient(t, g)
	bob.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "bob"})
	bob.waitFor(models.EventUserStatus)

	alice.emit(models.EventSendMessage, models.SendMessageRequest{ReceiverID: "bob", Message: "hi there", MessageID: "m1"})
	alice.waitFor(models.EventMessageDelivered)

	bob.emit(models.EventGetConversation, models.GetConversationRequest{OtherUserID: "alice"})
	history := decodeData[models.ConversationHistoryPayload](t, bob.waitFor(models.EventConversationHistory))
	require.Len(t, history.Messages, 1)
	assert.Equal(t, "hi there", history.Messages[0].Content)
}

func TestUnknownEventRejected(t *testing.T) {
	g, _ := newTestGateway(t, nil)

	client := connectClient(t, g)
	client.emit("teleport", map[string]string{"to": "mars"})

	errPayload := decodeData[models.ErrorPayload](t, client.waitFor(models.EventError))
	assert.Equal(t, "unknown event type", errPayload.Message)
}

func TestUnregisteredSendRejected(t *testing.T) {
	g, _ := newTestGateway(t, nil)

	client := connectClient(t, g)
	client.emit(models.EventSendMessage, models.SendMessageRequest{ReceiverID: "bob", Message: "hi"})

	errPayload := decodeData[models.ErrorPayload](t, client.waitFor(models.EventError))
	assert.Equal(t, "not authenticated", errPayload.Message)
}

func signTestToken(t *testing.T, secret, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": userID})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestHelloAuthenticatesAndRegisters(t *testing.T) {
	verifier, err := auth.NewJWTVerifier("gateway-secret")
	require.NoError(t, err)
	g, _ := newTestGateway(t, verifier)

	alice := connectClient(t, g)
	alice.emit(models.EventHello, models.HelloRequest{Token: signTestToken(t, "gateway-secret", "alice")})

	status := decodeData[models.UserStatusPayload](t, alice.waitFor(models.EventUserStatus))
	assert.Equal(t, "alice", status.UserID)
}

func TestHelloRejectsBadToken(t *testing.T) {
	verifier, err := auth.NewJWTVerifier("gateway-secret")
	require.NoError(t, err)
	g, _ := newTestGateway(t, verifier)

	alice := connectClient(t, g)
	alice.emit(models.EventHello, models.HelloRequest{Token: signTestToken(t, "wrong-secret", "alice")})

	errPayload := decodeData[models.ErrorPayload](t, alice.waitFor(models.EventError))
	assert.Equal(t, "invalid token", errPayload.Message)
}

func TestUserConnectedIdentityMismatch(t *testing.T) {
	verifier, err := auth.NewJWTVerifier("gateway-secret")
	require.NoError(t, err)
	g, _ := newTestGateway(t, verifier)

	alice := connectClient(t, g)
	alice.emit(models.EventHello, models.HelloRequest{Token: signTestToken(t, "gateway-secret", "alice")})
	alice.waitFor(models.EventUserStatus)

	alice.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "mallory"})
	errPayload := decodeData[models.ErrorPayload](t, alice.waitFor(models.EventError))
	assert.Equal(t, "identity mismatch", errPayload.Message)
}

func TestUserConnectedRebindRejected(t *testing.T) {
	g, pq := newTestGateway(t, nil)

	c1 := connectClient(t, g)
	c1.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "alice"})
	c1.waitFor(models.EventUserStatus)

	// A registered session cannot switch identities.
	c1.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "bob"})
	errPayload := decodeData[models.ErrorPayload](t, c1.waitFor(models.EventError))
	assert.Equal(t, "already registered", errPayload.Message)

	carol := connectClient(t, g)
	carol.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "carol"})
	carol.waitFor(models.EventUserStatus)

	// "bob" never came online, so mail for him queues.
	carol.emit(models.EventSendMessage, models.SendMessageRequest{ReceiverID: "bob", Message: "hi bob"})
	pending := decodeData[models.MessageStatusPayload](t, carol.waitFor(models.EventMessagePending))
	assert.Equal(t, models.StatusPending, pending.Status)
	assert.Equal(t, 1, pq.Depth("bob"))

	// The session still sends under its original identity.
	c1.emit(models.EventSendMessage, models.SendMessageRequest{ReceiverID: "carol", Message: "still alice"})
	msg := decodeData[models.NewMessagePayload](t, carol.waitFor(models.EventNewMessage))
	assert.Equal(t, "alice", msg.SenderID)
}

func TestUserConnectedSameIdentityIdempotent(t *testing.T) {
	g, _ := newTestGateway(t, nil)

	alice := connectClient(t, g)
	alice.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "alice"})
	alice.waitFor(models.EventUserStatus)

	bob := connectClient(t, g)
	bob.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "bob"})
	bob.waitFor(models.EventUserStatus)

	// Repeating the same identity is a no-op, not an error.
	alice.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "alice"})
	alice.emit(models.EventSendMessage, models.SendMessageRequest{ReceiverID: "bob", Message: "hi"})
	msg := decodeData[models.NewMessagePayload](t, bob.waitFor(models.EventNewMessage))
	assert.Equal(t, "alice", msg.SenderID)
}

func TestHelloRebindRejected(t *testing.T) {
	verifier, err := auth.NewJWTVerifier("gateway-secret")
	require.NoError(t, err)
	g, _ := newTestGateway(t, verifier)

	c1 := connectClient(t, g)
	c1.emit(models.EventHello, models.HelloRequest{Token: signTestToken(t, "gateway-secret", "alice")})
	c1.waitFor(models.EventUserStatus)

	c1.emit(models.EventHello, models.HelloRequest{Token: signTestToken(t, "gateway-secret", "bob")})
	errPayload := decodeData[models.ErrorPayload](t, c1.waitFor(models.EventError))
	assert.Equal(t, "already registered", errPayload.Message)
}

func TestUserConnectedRequiresAuthWhenConfigured(t *testing.T) {
	verifier, err := auth.NewJWTVerifier("gateway-secret")
	require.NoError(t, err)
	g, _ := newTestGateway(t, verifier)

	client := connectClient(t, g)
	client.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "alice"})

	errPayload := decodeData[models.ErrorPayload](t, client.waitFor(models.EventError))
	assert.Equal(t, "authentication required", errPayload.Message)
}

func TestAwayStatusBroadcast(t *testing.T) {
	g, _ := newTestGateway(t, nil)

	alice := connectClient(t, g)
	alice.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "alice"})
	alice.waitFor(models.EventUserStatus)

	bob := connectClient(t, g)
	bob.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "bob"})
	bob.waitFor(models.EventUserStatus)

	alice.emit(models.EventUserStatus, models.UserStatusPayload{Status: models.PresenceAway})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		status := decodeData[models.UserStatusPayload](t, bob.waitFor(models.EventUserStatus))
		if status.UserID == "alice" && status.Status == models.PresenceAway {
			return
		}
	}
	t.Fatal("bob never saw alice go away")
}

func TestOfflineStatusRejectedFromClient(t *testing.T) {
	g, _ := newTestGateway(t, nil)

	alice := connectClient(t, g)
	alice.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "alice"})
	alice.waitFor(models.EventUserStatus)

	alice.emit(models.EventUserStatus, models.UserStatusPayload{Status: models.PresenceOffline})
	errPayload := decodeData[models.ErrorPayload](t, alice.waitFor(models.EventError))
	assert.Equal(t, "status must be online or away", errPayload.Message)
}

func TestDisconnectBroadcastsOffline(t *testing.T) {
	g, _ := newTestGateway(t, nil)

	alice := connectClient(t, g)
	alice.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "alice"})
	alice.waitFor(models.EventUserStatus)

	bob := connectClient(t, g)
	bob.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "bob"})
	bob.waitFor(models.EventUserStatus)

	bob.conn.Close()

	for {
		ev := alice.waitFor(models.EventUserStatus)
		status := decodeData[models.UserStatusPayload](t, ev)
		if status.UserID == "bob" && status.Status == models.PresenceOffline {
			return
		}
		// Skip bob's online broadcast still in flight.
		if status.Status != models.PresenceOffline {
			continue
		}
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestScenarioSnapshotListsExistingUsers(t *testing.T) {
	g, _ := newTestGateway(t, nil)

	alice := connectClient(t, g)
	alice.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "alice"})
	alice.waitFor(models.EventUserStatus)

	bob := connectClient(t, g)
	bob.emit(models.EventUserConnected, models.UserConnectedRequest{UserID: "bob"})

	// Bob learns about alice either via snapshot or broadcast.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ev := bob.waitFor(models.EventUserStatus)
		status := decodeData[models.UserStatusPayload](t, ev)
		if status.UserID == "alice" && status.Status == models.PresenceOnline {
			return
		}
	}
	t.Fatal("bob never learned alice is online")
}
