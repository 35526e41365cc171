package models

import "time"

// Status is the delivery state of a message. Transitions are monotonic:
// sent -> delivered -> read. Pending marks a copy parked in the offline
// queue and is never a forward transition target.
type Status string

const (
	StatusSent      Status = "sent"
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

// statusRank orders the forward transitions. Pending is excluded on
// purpose: queue state is not part of the sent/delivered/read machine.
var statusRank = map[Status]int{
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// Advances reports whether moving from old to s is a forward transition.
func (s Status) Advances(old Status) bool {
	newRank, ok := statusRank[s]
	if !ok {
		return false
	}
	oldRank := statusRank[old]
	return newRank > oldRank
}

// Valid reports whether s is a known delivery status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return s == StatusPending || ok
}

// Message is a routed chat message. Content holds the encrypted envelope
// (base64) while the message is at rest; live delivery carries plaintext
// in the event payload instead.
type Message struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"senderId"`
	ReceiverID  string    `json:"receiverId"`
	Content     string    `json:"content"`
	ContentType string    `json:"contentType"`
	CreatedAt   time.Time `json:"createdAt"`
	Status      Status    `json:"status"`
	Encrypted   bool      `json:"encrypted"`
}

// PresenceStatus is a user's reachability state.
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceAway    PresenceStatus = "away"
	PresenceOffline PresenceStatus = "offline"
)

// PresenceInfo is one row of a presence snapshot.
type PresenceInfo struct {
	UserID   string         `json:"userId"`
	Status   PresenceStatus `json:"status"`
	LastSeen time.Time      `json:"lastSeen"`
}

// Profile carries the directory fields used for message enrichment.
type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar,omitempty"`
}
