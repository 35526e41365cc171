package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/anasakil/chat-app-techniq8/internal/metrics"
	"github.com/anasakil/chat-app-techniq8/internal/models"
	"github.com/anasakil/chat-app-techniq8/internal/presence"
	"github.com/anasakil/chat-app-techniq8/internal/router"
)

// dispatch routes one inbound frame. Unknown event types are rejected at
// the boundary rather than ignored.
func (g *Gateway) dispatch(sess *session, frame models.Frame) {
	start := time.Now()
	metrics.EventsReceived.WithLabelValues(frame.Type).Inc()
	defer func() {
		metrics.EventDuration.WithLabelValues(frame.Type).Observe(time.Since(start).Seconds())
	}()

	switch frame.Type {
	case models.EventHello:
		g.handleHello(sess, frame.Data)
	case models.EventUserConnected:
		g.handleUserConnected(sess, frame.Data)
	case models.EventUserStatus:
		g.handleUserStatus(sess, frame.Data)
	case models.EventSendMessage:
		g.handleSendMessage(sess, frame.Data)
	case models.EventTyping:
		g.handleTyping(sess, frame.Data)
	case models.EventMessageRead:
		g.handleMessageRead(sess, frame.Data)
	case models.EventGetConversation:
		g.handleGetConversation(sess, frame.Data)
	case models.EventOffer, models.EventAnswer, models.EventICECandidate,
		models.EventEndCall, models.EventRejectCall, models.EventSignal:
		g.handleSignal(sess, frame.Type, frame.Data)
	default:
		g.sendError(sess, frame.Type, "unknown event type")
	}
}

// handleHello authenticates the connection with a bearer token and
// registers the yielded identity.
func (g *Gateway) handleHello(sess *session, data json.RawMessage) {
	var req models.HelloRequest
	if err := json.Unmarshal(data, &req); err != nil || req.Token == "" {
		g.sendError(sess, models.EventHello, "token required")
		return
	}
	if g.verifier == nil {
		g.sendError(sess, models.EventHello, "token authentication not configured")
		return
	}

	userID, err := g.verifier.Verify(req.Token)
	if err != nil {
		g.log.Debug().Err(err).Msg("token rejected")
		g.sendError(sess, models.EventHello, "invalid token")
		return
	}

	// A registered session keeps its identity for the connection's
	// lifetime; the registry binding must never diverge from it.
	if sess.handle != nil {
		if userID != sess.userID {
			g.sendError(sess, models.EventHello, "already registered")
		}
		return
	}

	sess.userID = userID
	sess.authed = true
	g.register(sess)
}

// handleUserConnected registers an explicit identity. With a verifier
// configured the claimed identity must match the authenticated one; the
// core otherwise trusts the auth collaborator's answer, never its own.
func (g *Gateway) handleUserConnected(sess *session, data json.RawMessage) {
	var req models.UserConnectedRequest
	if err := json.Unmarshal(data, &req); err != nil || req.UserID == "" {
		g.sendError(sess, models.EventUserConnected, "userId required")
		return
	}

	// Re-identifying a registered session would desync it from its
	// registry binding. Same identity is a no-op, anything else is an
	// error.
	if sess.handle != nil {
		if req.UserID != sess.userID {
			g.sendError(sess, models.EventUserConnected, "already registered")
		}
		return
	}

	if g.verifier != nil {
		if !sess.authed {
			g.sendError(sess, models.EventUserConnected, "authentication required")
			return
		}
		if req.UserID != sess.userID {
			g.sendError(sess, models.EventUserConnected, "identity mismatch")
			return
		}
	} else {
		sess.userID = req.UserID
	}
	g.register(sess)
}

// register creates the session's handle, replays queued messages, and
// sends the connecting client the current online snapshot. Calling it on
// an already-registered session is a no-op.
func (g *Gateway) register(sess *session) {
	if sess.handle != nil {
		return
	}

	h := presence.NewHandle(sess.userID, g.cfg.OutboundBuffer)
	sess.handle = h

	// Writer first, so replayed messages drain instead of piling up.
	go g.writeLoop(sess.conn, h)

	g.registry.Register(sess.userID, h)
	g.router.DeliverPending(sess.userID, h)

	for _, info := range g.registry.Snapshot() {
		if info.UserID == sess.userID {
			continue
		}
		h.Send(models.Event{
			Type: models.EventUserStatus,
			Data: models.UserStatusPayload{UserID: info.UserID, Status: info.Status},
		})
	}

	g.log.Info().Str("user", sess.userID).Str("handle", h.ID).Msg("user registered")
}

// handleUserStatus updates the session user's advertised status. Only
// online and away are accepted; offline is owned by disconnect.
func (g *Gateway) handleUserStatus(sess *session, data json.RawMessage) {
	if !g.requireRegistered(sess, models.EventUserStatus) {
		return
	}
	var req models.UserStatusPayload
	if err := json.Unmarshal(data, &req); err != nil {
		g.sendError(sess, models.EventUserStatus, "invalid payload")
		return
	}
	if req.Status != models.PresenceOnline && req.Status != models.PresenceAway {
		g.sendError(sess, models.EventUserStatus, "status must be online or away")
		return
	}
	g.registry.SetStatus(sess.userID, req.Status)
}

func (g *Gateway) requireRegistered(sess *session, event string) bool {
	if sess.handle == nil {
		g.sendError(sess, event, "not authenticated")
		return false
	}
	return true
}

func (g *Gateway) handleSendMessage(sess *session, data json.RawMessage) {
	if !g.requireRegistered(sess, models.EventSendMessage) {
		return
	}
	var req models.SendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		g.sendError(sess, models.EventSendMessage, "invalid payload")
		return
	}

	outcome := g.router.Send(context.Background(), sess.userID, req.ReceiverID, req.Message, req.ContentType, req.MessageID)
	if outcome.Status == router.OutcomeRejected {
		g.sendError(sess, models.EventSendMessage, outcome.Reason)
	}
}

func (g *Gateway) handleTyping(sess *session, data json.RawMessage) {
	if !g.requireRegistered(sess, models.EventTyping) {
		return
	}
	var req models.TypingRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	g.router.Typing(sess.userID, req.ReceiverID)
}

func (g *Gateway) handleMessageRead(sess *session, data json.RawMessage) {
	if !g.requireRegistered(sess, models.EventMessageRead) {
		return
	}
	var req models.MessageReadRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	g.router.MarkRead(req.MessageID, req.SenderID)
}

func (g *Gateway) handleGetConversation(sess *session, data json.RawMessage) {
	if !g.requireRegistered(sess, models.EventGetConversation) {
		return
	}
	var req models.GetConversationRequest
	if err := json.Unmarshal(data, &req); err != nil || req.OtherUserID == "" {
		g.sendError(sess, models.EventGetConversation, "otherUserId required")
		return
	}

	messages := g.router.History(sess.userID, req.OtherUserID)
	if messages == nil {
		messages = []models.Message{}
	}
	g.send(sess, models.Event{
		Type: models.EventConversationHistory,
		Data: models.ConversationHistoryPayload{UserID: req.OtherUserID, Messages: messages},
	})
}

// handleSignal relays call signaling. Rejection targets the caller; all
// other events target the callee.
func (g *Gateway) handleSignal(sess *session, eventType string, data json.RawMessage) {
	if !g.requireRegistered(sess, eventType) {
		return
	}
	var req models.SignalRequest
	if err := json.Unmarshal(data, &req); err != nil {
		g.sendError(sess, eventType, "invalid payload")
		return
	}

	target := req.ReceiverID
	if eventType == models.EventRejectCall && req.CallerID != "" {
		target = req.CallerID
	}
	g.relay.Relay(eventType, sess.userID, target, req.Payload)
}
