package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Direction indicates which way a message travels relative to the
// signed-in account.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Status tracks the delivery lifecycle of a message. Records that came
// back from the server are always Confirmed; the other states only
// apply to locally-originated messages.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
)

// MessageID identifies a message either by its server-assigned record id
// or, while a send is still pending, by a synthetic local id. Exactly one
// of the two is ever set.
type MessageID struct {
	remote int64
	local  string
}

// RemoteID wraps a server-assigned notification record id.
func RemoteID(id int64) MessageID {
	return MessageID{remote: id}
}

// NewLocalID generates a fresh synthetic id for a pending local message.
func NewLocalID() MessageID {
	return MessageID{local: uuid.NewString()}
}

// IsLocal reports whether the id is a synthetic local id.
func (id MessageID) IsLocal() bool { return id.local != "" }

// Remote returns the server record id, or 0 for local ids.
func (id MessageID) Remote() int64 { return id.remote }

// Key returns a stable string form usable as a map key.
func (id MessageID) Key() string {
	if id.local != "" {
		return "local-" + id.local
	}
	return fmt.Sprintf("remote-%d", id.remote)
}

// Message is a single entry in a reconstructed conversation. It is a
// derived view over a notification record (or a pending local send) and
// is rebuilt on every aggregation pass.
type Message struct {
	// ID is the server record id or a synthetic local id.
	ID MessageID

	// PeerID is the counterparty user id this message belongs to.
	PeerID int64

	// Direction is computed relationally from the sender tag and the
	// record's owning account; it is never stored by the backend.
	Direction Direction

	// Status is the delivery lifecycle state.
	Status Status

	// Content is the display text: sender tag stripped, HTML entities
	// decoded.
	Content string

	// Edited marks a local-only, non-durable edit of the content.
	Edited bool

	// Read mirrors the record's read flag. Only meaningful for
	// incoming messages.
	Read bool

	// Legacy marks a record that carried no sender tag.
	Legacy bool

	// CreatedAt is the record's creation time (client clock for
	// pending local messages).
	CreatedAt time.Time

	// DisplayTime is the server-rendered timestamp string, passed
	// through untouched. Empty for pending local messages.
	DisplayTime string

	// Seq is the record's arrival position within the feed, used to
	// break sort-key ties so ordering is stable across passes.
	Seq int
}

// SortKey is the numeric ordering key derived from CreatedAt.
func (m Message) SortKey() int64 {
	return m.CreatedAt.UnixMilli()
}

// Editable reports whether the message can be edited locally. Only
// self-authored (outgoing) messages are editable.
func (m Message) Editable() bool {
	return m.Direction == DirectionOutgoing
}
