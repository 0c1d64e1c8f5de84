package models

// MessageKind distinguishes ordinary chat messages from host announcements.
type MessageKind string

const (
	KindChat         MessageKind = "chat"
	KindAnnouncement MessageKind = "announcement"
)

// Message is a single chat entry in a meetup conversation. Identity is the
// ID; a message is immutable once created except for the temporary-to-durable
// ID swap performed during send reconciliation.
type Message struct {
	ID         string      `json:"id"`
	MeetupID   string      `json:"meetup_id"`
	Text       string      `json:"text"`
	SenderID   string      `json:"sender_id"`
	SenderName string      `json:"sender_name,omitempty"`
	// TS is unix milliseconds.
	TS   int64       `json:"ts"`
	Kind MessageKind `json:"kind"`
}

// QueuedMessage is a message accepted locally but not yet confirmed
// delivered to the backend. Owned exclusively by the pending queue.
type QueuedMessage struct {
	QueueID    string      `json:"queue_id"`
	MeetupID   string      `json:"meetup_id"`
	SenderID   string      `json:"sender_id"`
	SenderName string      `json:"sender_name,omitempty"`
	Text       string      `json:"text"`
	Kind       MessageKind `json:"kind"`
	// EnqueuedAt is unix milliseconds.
	EnqueuedAt int64 `json:"enqueued_at"`
}
