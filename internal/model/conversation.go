package model

import "time"

// LegacyPeerID is the fallback counterparty that untagged (legacy format)
// records are attributed to. The historical feed contains records from
// before the sender tag existed; they carry no author identity, so they
// are grouped under this placeholder peer to keep them visible. Zero is
// never a valid account id on the backend, so the bucket cannot collide
// with a real conversation.
const LegacyPeerID int64 = 0

// Peer is the display identity of a conversation counterparty.
type Peer struct {
	ID     int64  `json:"id"`
	Pseudo string `json:"pseudo"`
	Avatar string `json:"avatar,omitempty"`
}

// Conversation is a client-derived grouping of messages exchanged with a
// single counterparty. It is never persisted by the backend and is
// recomputed from the notification feed on every aggregation pass.
type Conversation struct {
	// Peer identifies and labels the counterparty.
	Peer Peer

	// Messages is the time-ordered message history, oldest first.
	Messages []Message

	// Unread counts incoming messages not yet marked read.
	Unread int

	// LastPreview is the untruncated text of the most recent message.
	LastPreview string

	// LastActivity is the timestamp of the most recent message, used
	// to order the conversation list.
	LastActivity time.Time
}

// Last returns the most recent message, or nil for an empty conversation.
func (c *Conversation) Last() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}
