package models

import "encoding/json"

// Client-to-server event names.
const (
	EventHello           = "hello"
	EventUserConnected   = "user_connected"
	EventSendMessage     = "send_message"
	EventTyping          = "typing"
	EventMessageRead     = "message_read"
	EventGetConversation = "get_conversation"

	EventOffer        = "webrtc_offer"
	EventAnswer       = "webrtc_answer"
	EventICECandidate = "webrtc_ice_candidate"
	EventEndCall      = "webrtc_end_call"
	EventRejectCall   = "webrtc_reject_call"
	EventSignal       = "webrtc_signal"
)

// Server-to-client event names.
const (
	EventUserStatus          = "user_status"
	EventNewMessage          = "new_message"
	EventMessageDelivered    = "message_delivered"
	EventMessagePending      = "message_pending"
	EventMessageStatusUpdate = "message_status_update"
	EventUserTyping          = "user_typing"
	EventConversationHistory = "conversation_history"
	EventCallRejected        = "webrtc_call_rejected"
	EventCallFailed          = "call_failed"
	EventError               = "error"
)

// Frame is one inbound wire unit: a tagged event with a raw payload that
// the dispatcher decodes into the matching request type. Unknown types are
// rejected at the boundary.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Event is one outbound wire unit.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// HelloRequest authenticates a connection with a bearer credential.
type HelloRequest struct {
	Token string `json:"token"`
}

// UserConnectedRequest registers an identity on the connection. Only
// honored when no token authenticator is configured, or when it matches
// the authenticated identity.
type UserConnectedRequest struct {
	UserID string `json:"userId"`
}

// SendMessageRequest asks the router to deliver a message.
type SendMessageRequest struct {
	ReceiverID  string `json:"receiverId"`
	Message     string `json:"message"`
	MessageID   string `json:"messageId,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// TypingRequest is an ephemeral typing indicator.
type TypingRequest struct {
	ReceiverID string `json:"receiverId"`
}

// MessageReadRequest reports a read receipt back to the sender.
type MessageReadRequest struct {
	MessageID string `json:"messageId"`
	SenderID  string `json:"senderId"`
}

// GetConversationRequest asks for the tracked in-memory history with
// another user.
type GetConversationRequest struct {
	OtherUserID string `json:"otherUserId"`
}

// SignalRequest is the shared shape of all call-signaling events. The
// payload is relayed opaquely; CallerID is only set on reject, which
// targets the caller instead of the callee.
type SignalRequest struct {
	ReceiverID string          `json:"receiverId,omitempty"`
	CallerID   string          `json:"callerId,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// UserStatusPayload announces a presence change.
type UserStatusPayload struct {
	UserID string         `json:"userId"`
	Status PresenceStatus `json:"status"`
}

// NewMessagePayload is the live-delivery form of a message: plaintext
// content plus optional sender enrichment from the user directory.
type NewMessagePayload struct {
	ID          string `json:"id"`
	SenderID    string `json:"senderId"`
	ReceiverID  string `json:"receiverId"`
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
	CreatedAt   string `json:"createdAt"`
	Status      Status `json:"status"`
	SenderName  string `json:"senderName,omitempty"`
	Degraded    bool   `json:"degraded,omitempty"`
}

// MessageStatusPayload acknowledges a message's delivery state to the
// sender.
type MessageStatusPayload struct {
	MessageID string `json:"messageId"`
	Status    Status `json:"status"`
	Degraded  bool   `json:"degraded,omitempty"`
}

// UserTypingPayload identifies who is typing.
type UserTypingPayload struct {
	SenderID string `json:"senderId"`
}

// ConversationHistoryPayload returns the tracked history with a peer.
type ConversationHistoryPayload struct {
	UserID   string    `json:"userId"`
	Messages []Message `json:"messages"`
}

// SignalPayload is a forwarded call-signaling event.
type SignalPayload struct {
	SenderID string          `json:"senderId"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// CallFailedPayload reports an unreachable call target to the caller.
type CallFailedPayload struct {
	Reason     string `json:"reason"`
	ReceiverID string `json:"receiverId"`
}

// ErrorPayload reports a rejected event back to the offending client.
type ErrorPayload struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}
