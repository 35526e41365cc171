// Package signal relays call-setup and WebRTC negotiation events between
// presence-registered endpoints. Stateless: no retry, no queueing — a
// stale signaling event is worthless.
package signal

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/anasakil/chat-app-techniq8/internal/metrics"
	"github.com/anasakil/chat-app-techniq8/internal/models"
	"github.com/anasakil/chat-app-techniq8/internal/presence"
)

// ReasonOffline is the call_failed reason for an unreachable target.
const ReasonOffline = "user_offline"

// Relay forwards signaling events by presence lookup only.
type Relay struct {
	log      zerolog.Logger
	registry *presence.Registry
}

// NewRelay creates a relay over the shared presence registry.
func NewRelay(log zerolog.Logger, reg *presence.Registry) *Relay {
	return &Relay{
		log:      log.With().Str("component", "signal").Logger(),
		registry: reg,
	}
}

// Relay forwards one signaling event to every handle of the target. All
// event types (offer, answer, ICE candidate, end, reject, generic) are
// handled uniformly. When the target is unreachable the caller gets a
// call_failed notice with reason user_offline; the lookup never creates
// a presence entry for the target.
func (r *Relay) Relay(eventType, fromUserID, toUserID string, payload json.RawMessage) bool {
	if toUserID == "" {
		r.fail(eventType, fromUserID, toUserID)
		return false
	}

	handles := r.registry.HandlesFor(toUserID)
	if len(handles) == 0 {
		r.fail(eventType, fromUserID, toUserID)
		return false
	}

	ev := models.Event{
		Type: forwardType(eventType),
		Data: models.SignalPayload{SenderID: fromUserID, Payload: payload},
	}
	for _, h := range handles {
		h.Send(ev)
	}

	metrics.SignalsRelayed.WithLabelValues(eventType).Inc()
	r.log.Debug().
		Str("event", eventType).
		Str("from", fromUserID).
		Str("to", toUserID).
		Msg("signal relayed")

	return true
}

// fail notifies the caller that the target cannot take the call.
func (r *Relay) fail(eventType, fromUserID, toUserID string) {
	metrics.CallsFailed.Inc()
	r.log.Debug().
		Str("event", eventType).
		Str("to", toUserID).
		Msg("signal target unreachable")

	ev := models.Event{
		Type: models.EventCallFailed,
		Data: models.CallFailedPayload{Reason: ReasonOffline, ReceiverID: toUserID},
	}
	for _, h := range r.registry.HandlesFor(fromUserID) {
		h.Send(ev)
	}
}

// forwardType maps an inbound signaling event to its outbound name.
// Rejection is renamed so the caller sees the verdict, not the request.
func forwardType(eventType string) string {
	if eventType == models.EventRejectCall {
		return models.EventCallRejected
	}
	return eventType
}
