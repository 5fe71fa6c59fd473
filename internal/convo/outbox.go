package convo

import (
	"sort"
	"strings"
	gosync "sync"
	"time"

	"github.com/nmarchal/escale/internal/logging"
	"github.com/nmarchal/escale/internal/model"
)

const (
	// reconcileWindow is how far apart a pending message and its
	// authoritative counterpart may be timestamped and still be
	// considered the same logical send. There is no idempotency token
	// tying a submit to its record, so the match is (peer, direction,
	// content, time window) and inherently approximate.
	reconcileWindow = 2 * time.Minute

	// retireGrace is how long a confirmed-but-unmatched pending entry
	// stays visible after the send succeeded, covering the gap until
	// the authoritative feed catches up. Avoids the message flickering
	// out and back in.
	retireGrace = 10 * time.Second

	// localSeqBase offsets pending-message sequence numbers past any
	// plausible feed position, so timestamp ties sort local entries
	// after authoritative ones.
	localSeqBase = 1 << 20
)

// Outbox tracks locally-originated messages from submit until they are
// retired in favor of their authoritative feed record. Entries move
// through sending → sent (or failed); failed entries stay visible until
// the user acts on them and are never retried automatically.
//
// Submit and the Mark transitions are called from send goroutines while
// the polling pass reads pending state, so the outbox carries its own
// lock; everything else in this package is single-threaded.
type Outbox struct {
	mu      gosync.Mutex
	entries []*pendingEntry
	seq     int

	// now is stubbed in tests.
	now func() time.Time
}

type pendingEntry struct {
	msg    model.Message
	sentAt time.Time
}

// NewOutbox creates an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{now: time.Now}
}

// Submit creates a pending message visible immediately, before any
// network confirmation.
func (o *Outbox) Submit(peerID int64, content string) model.Message {
	o.mu.Lock()
	defer o.mu.Unlock()

	msg := model.Message{
		ID:        model.NewLocalID(),
		PeerID:    peerID,
		Direction: model.DirectionOutgoing,
		Status:    model.StatusSending,
		Content:   content,
		Read:      true,
		CreatedAt: o.now(),
		Seq:       localSeqBase + o.seq,
	}
	o.seq++
	o.entries = append(o.entries, &pendingEntry{msg: msg})

	return msg
}

// MarkSent records that the create request for a pending message
// succeeded. The entry stays visible until reconciliation retires it.
func (o *Outbox) MarkSent(id model.MessageID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if e := o.find(id); e != nil && e.msg.Status == model.StatusSending {
		e.msg.Status = model.StatusSent
		e.sentAt = o.now()
	}
}

// MarkFailed records that the create request was rejected. The entry
// remains visible with a failure indicator.
func (o *Outbox) MarkFailed(id model.MessageID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if e := o.find(id); e != nil && e.msg.Status == model.StatusSending {
		e.msg.Status = model.StatusFailed
	}
}

// Remove drops a pending entry, used when the user discards or resends
// a failed message.
func (o *Outbox) Remove(id model.MessageID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, e := range o.entries {
		if e.msg.ID == id {
			o.entries = append(o.entries[:i], o.entries[i+1:]...)
			return
		}
	}
}

// Get returns a copy of the pending message with the given id.
func (o *Outbox) Get(id model.MessageID) (model.Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if e := o.find(id); e != nil {
		return e.msg, true
	}
	return model.Message{}, false
}

// Pending returns copies of the pending messages for one peer, in
// submission order.
func (o *Outbox) Pending(peerID int64) []model.Message {
	o.mu.Lock()
	defer o.mu.Unlock()

	var msgs []model.Message
	for _, e := range o.entries {
		if e.msg.PeerID == peerID {
			msgs = append(msgs, e.msg)
		}
	}
	return msgs
}

// PendingPeers returns the distinct peer ids with pending entries, in
// ascending order.
func (o *Outbox) PendingPeers() []int64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	seen := make(map[int64]bool)
	var peers []int64
	for _, e := range o.entries {
		if !seen[e.msg.PeerID] {
			seen[e.msg.PeerID] = true
			peers = append(peers, e.msg.PeerID)
		}
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i] < peers[j] })
	return peers
}

// Reconcile retires pending entries that are now represented in the
// authoritative feed, so a send never appears twice. confirmed is the
// full set of aggregated messages from the latest pass; only confirmed
// outgoing ones can match. Entries in the sent state also retire after
// the grace period even without a match, trusting that their record is
// in the feed under content that no longer compares equal (an edit
// overlay, entity drift).
func (o *Outbox) Reconcile(confirmed []model.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	// Each confirmed record retires at most one pending entry, so two
	// identical rapid sends are not both swallowed by the first record
	// to land.
	consumed := make(map[int]bool)
	kept := o.entries[:0]
	for _, e := range o.entries {
		if e.msg.Status == model.StatusFailed {
			kept = append(kept, e)
			continue
		}

		if o.matched(e, confirmed, consumed) {
			logging.Logger.Debug().
				Str("local", e.msg.ID.Key()).
				Int64("peer", e.msg.PeerID).
				Msg("retiring pending message matched in feed")
			continue
		}

		if e.msg.Status == model.StatusSent && now.Sub(e.sentAt) > retireGrace {
			logging.Logger.Debug().
				Str("local", e.msg.ID.Key()).
				Int64("peer", e.msg.PeerID).
				Msg("retiring pending message after grace period")
			continue
		}

		kept = append(kept, e)
	}
	o.entries = kept
}

// matched reports whether a pending entry has an authoritative
// counterpart in the confirmed set, marking the counterpart consumed.
func (o *Outbox) matched(e *pendingEntry, confirmed []model.Message, consumed map[int]bool) bool {
	for i, m := range confirmed {
		if consumed[i] {
			continue
		}
		if m.Status != model.StatusConfirmed || m.Direction != model.DirectionOutgoing {
			continue
		}
		if m.PeerID != e.msg.PeerID {
			continue
		}
		if strings.TrimSpace(m.Content) != strings.TrimSpace(e.msg.Content) {
			continue
		}
		delta := m.CreatedAt.Sub(e.msg.CreatedAt)
		if delta < 0 {
			delta = -delta
		}
		if delta <= reconcileWindow {
			consumed[i] = true
			return true
		}
	}
	return false
}

func (o *Outbox) find(id model.MessageID) *pendingEntry {
	for _, e := range o.entries {
		if e.msg.ID == id {
			return e
		}
	}
	return nil
}
