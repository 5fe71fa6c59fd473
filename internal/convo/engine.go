package convo

import (
	"github.com/nmarchal/escale/internal/api"
	"github.com/nmarchal/escale/internal/model"
)

// Engine holds the latest feed snapshot, the pending-send overlay, and
// the local-edit overlay, and recomputes the conversation projection on
// every refresh. It is the single synchronization point of the client:
// asynchronous completions (polls, sends) feed into it through the UI
// event loop, and display order is always re-derived by sorting, never
// by arrival order.
//
// All Engine methods are called from the event loop; the Outbox carries
// its own lock for the send goroutines.
type Engine struct {
	currentUserID int64
	resolver      PeerResolver
	outbox        *Outbox

	records       []api.Notification
	edits         map[model.MessageID]string
	conversations []model.Conversation
}

// NewEngine creates an engine for the signed-in account.
func NewEngine(currentUserID int64, resolver PeerResolver, outbox *Outbox) *Engine {
	return &Engine{
		currentUserID: currentUserID,
		resolver:      resolver,
		outbox:        outbox,
		edits:         make(map[model.MessageID]string),
	}
}

// SetFeed replaces the feed snapshot with the latest poll result and
// recomputes the projection. Pending sends and local edits survive.
func (e *Engine) SetFeed(records []api.Notification) {
	e.records = records
	e.Refresh()
}

// Refresh rebuilds the conversation projection from the current feed
// snapshot: aggregate, reconcile pending sends against the result,
// merge what is still pending, then apply the local-edit overlay.
func (e *Engine) Refresh() {
	convs := Aggregate(e.records, e.currentUserID, e.resolver)

	var confirmed []model.Message
	for _, c := range convs {
		confirmed = append(confirmed, c.Messages...)
	}
	e.outbox.Reconcile(confirmed)
	e.pruneEdits()

	convs = e.mergePending(convs)

	for i := range convs {
		e.applyEdits(&convs[i])
		Finalize(&convs[i])
	}
	SortConversations(convs)

	e.conversations = convs
}

// mergePending inserts still-pending local messages into their peer's
// bucket, creating the bucket when the first message to a peer has not
// been confirmed yet.
func (e *Engine) mergePending(convs []model.Conversation) []model.Conversation {
	index := make(map[int64]int, len(convs))
	for i, c := range convs {
		index[c.Peer.ID] = i
	}

	peerIDs := e.outbox.PendingPeers()
	for _, peerID := range peerIDs {
		pending := e.outbox.Pending(peerID)
		if len(pending) == 0 {
			continue
		}
		i, ok := index[peerID]
		if !ok {
			convs = append(convs, model.Conversation{Peer: e.resolver.Resolve(peerID)})
			i = len(convs) - 1
			index[peerID] = i
		}
		convs[i].Messages = append(convs[i].Messages, pending...)
	}

	return convs
}

// applyEdits overlays non-durable local edits onto the rebuilt messages.
func (e *Engine) applyEdits(c *model.Conversation) {
	if len(e.edits) == 0 {
		return
	}
	for i := range c.Messages {
		if content, ok := e.edits[c.Messages[i].ID]; ok {
			c.Messages[i].Content = content
			c.Messages[i].Edited = true
		}
	}
}

// pruneEdits drops overlay entries for pending messages that have
// retired. A local id never reappears in any projection, so keeping
// the entry would only leak memory over a long session.
func (e *Engine) pruneEdits() {
	if len(e.edits) == 0 {
		return
	}

	live := make(map[model.MessageID]bool)
	for _, peerID := range e.outbox.PendingPeers() {
		for _, m := range e.outbox.Pending(peerID) {
			live[m.ID] = true
		}
	}

	for id := range e.edits {
		if id.IsLocal() && !live[id] {
			delete(e.edits, id)
		}
	}
}

// Conversations returns the latest projection, most recent first.
func (e *Engine) Conversations() []model.Conversation {
	return e.conversations
}

// Conversation returns the projection for one peer.
func (e *Engine) Conversation(peerID int64) (model.Conversation, bool) {
	for _, c := range e.conversations {
		if c.Peer.ID == peerID {
			return c, true
		}
	}
	return model.Conversation{}, false
}

// TotalUnread returns the unread count across all conversations.
func (e *Engine) TotalUnread() int {
	return TotalUnread(e.conversations)
}

// Submit creates a pending outgoing message, immediately visible in the
// projection, and returns it so the caller can drive the actual send.
func (e *Engine) Submit(peerID int64, content string) model.Message {
	msg := e.outbox.Submit(peerID, content)
	e.Refresh()
	return msg
}

// SendConfirmed records a successful create request for a pending
// message.
func (e *Engine) SendConfirmed(id model.MessageID) {
	e.outbox.MarkSent(id)
	e.Refresh()
}

// SendFailed records a rejected create request for a pending message.
func (e *Engine) SendFailed(id model.MessageID) {
	e.outbox.MarkFailed(id)
	e.Refresh()
}

// Resend drops a failed pending message and resubmits its content,
// returning the fresh pending message. Sends are never retried
// automatically; this is the manual path.
func (e *Engine) Resend(id model.MessageID) (model.Message, bool) {
	old, ok := e.outbox.Get(id)
	if !ok || old.Status != model.StatusFailed {
		return model.Message{}, false
	}
	e.outbox.Remove(id)
	delete(e.edits, id)
	return e.Submit(old.PeerID, old.Content), true
}

// Edit overlays new content onto a self-authored message. The edit is
// client-only and non-durable: it never reaches the backend and is lost
// when the application restarts.
func (e *Engine) Edit(id model.MessageID, content string) {
	e.edits[id] = content
	e.Refresh()
}
