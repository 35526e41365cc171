// Package router implements message dispatch: reachability resolution,
// encryption at rest, live fan-out or offline queueing, tracker updates,
// and sender acknowledgments.
package router

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/anasakil/chat-app-techniq8/internal/archive"
	"github.com/anasakil/chat-app-techniq8/internal/crypto"
	"github.com/anasakil/chat-app-techniq8/internal/directory"
	"github.com/anasakil/chat-app-techniq8/internal/metrics"
	"github.com/anasakil/chat-app-techniq8/internal/models"
	"github.com/anasakil/chat-app-techniq8/internal/presence"
	"github.com/anasakil/chat-app-techniq8/internal/queue"
	"github.com/anasakil/chat-app-techniq8/internal/tracker"
)

// decryptPlaceholder is surfaced instead of content that cannot be
// opened. Failures degrade, they never crash dispatch.
const decryptPlaceholder = "[message could not be decrypted]"

// OutcomeStatus classifies a send.
type OutcomeStatus string

const (
	OutcomeDelivered OutcomeStatus = "delivered"
	OutcomePending   OutcomeStatus = "pending"
	OutcomeRejected  OutcomeStatus = "rejected"
)

// Outcome is the result of a send request.
type Outcome struct {
	Status    OutcomeStatus
	Reason    string
	MessageID string
	Degraded  bool
}

// Router owns the dispatch path. The directory and archive collaborators
// are optional; a nil directory disables block-list checks and
// enrichment, a nil archive disables mirroring.
type Router struct {
	log       zerolog.Logger
	codec     *crypto.Codec
	registry  *presence.Registry
	pending   *queue.PendingQueue
	tracker   *tracker.Tracker
	directory directory.Directory
	archive   *archive.Archive
}

// New creates a router over the shared core structures.
func New(log zerolog.Logger, codec *crypto.Codec, reg *presence.Registry, pq *queue.PendingQueue, tr *tracker.Tracker, dir directory.Directory, arc *archive.Archive) *Router {
	return &Router{
		log:       log.With().Str("component", "router").Logger(),
		codec:     codec,
		registry:  reg,
		pending:   pq,
		tracker:   tr,
		directory: dir,
		archive:   arc,
	}
}

// Send routes one message. Reachable receivers get the plaintext fanned
// out to every handle; unreachable receivers get the encrypted copy
// queued. The sender is acknowledged either way.
func (r *Router) Send(ctx context.Context, senderID, receiverID, content, contentType, messageID string) Outcome {
	if senderID == "" || receiverID == "" {
		return r.reject(messageID, "sender and receiver required")
	}
	if content == "" {
		return r.reject(messageID, "message content required")
	}
	if contentType == "" {
		contentType = "text"
	}
	if messageID == "" {
		messageID = ulid.Make().String()
	}

	if blocked := r.isBlocked(ctx, receiverID, senderID); blocked {
		return r.reject(messageID, "recipient unavailable")
	}

	// Encrypted at rest, plaintext in flight. An encryption failure
	// degrades to storing plaintext rather than dropping the message.
	stored, encrypted := content, false
	envelope, err := r.codec.Encrypt([]byte(content))
	if err != nil {
		r.log.Error().Err(err).Str("message_id", messageID).Msg("encryption failed, storing degraded")
	} else {
		stored, encrypted = envelope, true
	}
	degraded := !encrypted

	msg := models.Message{
		ID:          messageID,
		SenderID:    senderID,
		ReceiverID:  receiverID,
		Content:     stored,
		ContentType: contentType,
		CreatedAt:   time.Now().UTC(),
		Status:      models.StatusSent,
		Encrypted:   encrypted,
	}

	handles := r.registry.HandlesFor(receiverID)
	if len(handles) == 0 {
		return r.enqueue(msg, degraded)
	}

	payload := models.NewMessagePayload{
		ID:          msg.ID,
		SenderID:    senderID,
		ReceiverID:  receiverID,
		Content:     content,
		ContentType: contentType,
		CreatedAt:   msg.CreatedAt.Format(time.RFC3339Nano),
		Status:      models.StatusDelivered,
		SenderName:  r.senderName(ctx, senderID),
		Degraded:    degraded,
	}
	for _, h := range handles {
		h.Send(models.Event{Type: models.EventNewMessage, Data: payload})
	}

	msg.Status = models.StatusDelivered
	r.tracker.Record(senderID, receiverID, msg)
	r.mirror(msg)

	r.sendToUser(senderID, models.Event{
		Type: models.EventMessageDelivered,
		Data: models.MessageStatusPayload{MessageID: msg.ID, Status: models.StatusDelivered, Degraded: degraded},
	})

	metrics.MessagesRouted.WithLabelValues(string(OutcomeDelivered)).Inc()
	r.log.Debug().
		Str("message_id", msg.ID).
		Str("receiver", receiverID).
		Int("fan_out", len(handles)).
		Msg("message delivered")

	return Outcome{Status: OutcomeDelivered, MessageID: msg.ID, Degraded: degraded}
}

// enqueue parks a message for an unreachable receiver and acks the
// sender with pending.
func (r *Router) enqueue(msg models.Message, degraded bool) Outcome {
	queued := msg
	queued.Status = models.StatusPending
	r.pending.Enqueue(msg.ReceiverID, queued)
	metrics.PendingQueueDepth.Set(float64(r.pending.Total()))

	r.tracker.Record(msg.SenderID, msg.ReceiverID, msg)
	r.mirror(msg)

	r.sendToUser(msg.SenderID, models.Event{
		Type: models.EventMessagePending,
		Data: models.MessageStatusPayload{MessageID: msg.ID, Status: models.StatusPending, Degraded: degraded},
	})

	metrics.MessagesRouted.WithLabelValues(string(OutcomePending)).Inc()
	r.log.Debug().
		Str("message_id", msg.ID).
		Str("receiver", msg.ReceiverID).
		Msg("receiver offline, message queued")

	return Outcome{Status: OutcomePending, MessageID: msg.ID, Degraded: degraded}
}

// DeliverPending drains the user's offline queue onto one freshly
// registered handle and reports delivery back to the original senders.
// Returns the number of messages replayed.
func (r *Router) DeliverPending(userID string, h *presence.Handle) int {
	msgs := r.pending.Drain(userID)
	if len(msgs) == 0 {
		return 0
	}
	metrics.PendingQueueDepth.Set(float64(r.pending.Total()))

	for _, msg := range msgs {
		content, degraded := r.open(msg)
		h.Send(models.Event{Type: models.EventNewMessage, Data: models.NewMessagePayload{
			ID:          msg.ID,
			SenderID:    msg.SenderID,
			ReceiverID:  msg.ReceiverID,
			Content:     content,
			ContentType: msg.ContentType,
			CreatedAt:   msg.CreatedAt.Format(time.RFC3339Nano),
			Status:      models.StatusDelivered,
			Degraded:    degraded,
		}})

		r.tracker.UpdateStatus(msg.ID, models.StatusDelivered)
		r.sendToUser(msg.SenderID, models.Event{
			Type: models.EventMessageStatusUpdate,
			Data: models.MessageStatusPayload{MessageID: msg.ID, Status: models.StatusDelivered},
		})
		metrics.PendingDelivered.Inc()
	}

	r.log.Info().
		Str("user", userID).
		Int("count", len(msgs)).
		Msg("pending messages replayed")

	return len(msgs)
}

// Typing forwards an ephemeral typing indicator. No queueing, no retry:
// if the receiver is unreachable the signal is dropped silently.
func (r *Router) Typing(senderID, receiverID string) {
	if receiverID == "" {
		return
	}
	r.sendToUser(receiverID, models.Event{
		Type: models.EventUserTyping,
		Data: models.UserTypingPayload{SenderID: senderID},
	})
}

// MarkRead advances a message to read and forwards the receipt to the
// sender if reachable. Ephemeral: dropped when the sender is offline.
func (r *Router) MarkRead(messageID, senderID string) {
	if messageID == "" {
		return
	}
	r.tracker.UpdateStatus(messageID, models.StatusRead)
	r.sendToUser(senderID, models.Event{
		Type: models.EventMessageStatusUpdate,
		Data: models.MessageStatusPayload{MessageID: messageID, Status: models.StatusRead},
	})
}

// History returns the tracked conversation between two users with
// envelopes opened for the caller.
func (r *Router) History(userA, userB string) []models.Message {
	history := r.tracker.History(userA, userB)
	for i := range history {
		content, _ := r.open(history[i])
		history[i].Content = content
		history[i].Encrypted = false
	}
	return history
}

// open returns a message's plaintext content, or a placeholder when the
// envelope cannot be decrypted. The second return reports degradation.
func (r *Router) open(msg models.Message) (string, bool) {
	if !msg.Encrypted {
		return msg.Content, false
	}
	plaintext, err := r.codec.Decrypt(msg.Content)
	if err != nil {
		metrics.DecryptFailures.Inc()
		r.log.Error().Err(err).Str("message_id", msg.ID).Msg("could not decrypt stored message")
		return decryptPlaceholder, true
	}
	return string(plaintext), false
}

// sendToUser fans an event out to every handle of a user, if any.
func (r *Router) sendToUser(userID string, ev models.Event) {
	for _, h := range r.registry.HandlesFor(userID) {
		h.Send(ev)
	}
}

// isBlocked consults the directory collaborator. Lookups fail open so a
// directory outage degrades block enforcement, not delivery.
func (r *Router) isBlocked(ctx context.Context, ownerID, otherID string) bool {
	if r.directory == nil {
		return false
	}
	blocked, err := r.directory.IsBlocked(ctx, ownerID, otherID)
	if err != nil {
		metrics.DirectoryErrors.Inc()
		r.log.Warn().Err(err).Msg("block-list lookup failed")
		return false
	}
	return blocked
}

// senderName fetches the sender's display name for enrichment.
// Best-effort: a miss or error yields no enrichment.
func (r *Router) senderName(ctx context.Context, userID string) string {
	if r.directory == nil {
		return ""
	}
	profile, err := r.directory.GetProfile(ctx, userID)
	if err != nil {
		metrics.DirectoryErrors.Inc()
		return ""
	}
	if profile == nil {
		return ""
	}
	return profile.Name
}

// mirror writes the at-rest copy to the archive off the dispatch path.
func (r *Router) mirror(msg models.Message) {
	if r.archive == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.archive.StoreMessage(ctx, &msg); err != nil {
			metrics.ArchiveErrors.Inc()
			r.log.Warn().Err(err).Str("message_id", msg.ID).Msg("archive write failed")
		}
	}()
}

// reject records and returns a validation rejection. No side effects.
func (r *Router) reject(messageID, reason string) Outcome {
	metrics.MessagesRouted.WithLabelValues(string(OutcomeRejected)).Inc()
	return Outcome{Status: OutcomeRejected, Reason: reason, MessageID: messageID}
}
