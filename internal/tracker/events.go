// Package tracker implements the message shadow cache pipeline: recording
// inbound messages, correlating deletion signals against the cache, and
// dispatching deletion digests to the admin.
package tracker

import "time"

// Sender is the message sender identity captured at the platform boundary.
// Optional platform fields arrive as empty strings.
type Sender struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// MessageEvent is a fully-typed inbound message event. All optional
// platform fields are resolved once at the Telegram adapter; the core
// never probes raw update structures.
type MessageEvent struct {
	MessageID int64
	ChatID    int64
	ChatTitle string // empty for private chats
	Sender    Sender
	Text      string
	HasMedia  bool
	SentAt    time.Time
}

// Deletion is a deletion signal: one or more message ids believed to have
// been deleted, with optional chat context. ChatID 0 means the signal
// carried no usable location context.
type Deletion struct {
	MessageIDs []int64
	ChatID     int64
}
