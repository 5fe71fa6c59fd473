// Package convo reconstructs private conversations from the community
// backend's flat notification feed. The backend has no conversation or
// message schema; author identity rides inside each record's content
// field as a sender tag, and everything here is a derived, disposable
// projection rebuilt on every polling pass.
package convo

import (
	"sort"

	"github.com/nmarchal/escale/internal/api"
	"github.com/nmarchal/escale/internal/codec"
	"github.com/nmarchal/escale/internal/logging"
	"github.com/nmarchal/escale/internal/model"
)

// LegacyPeerPseudo labels the placeholder conversation that untagged
// historical records are grouped under.
const LegacyPeerPseudo = "Archive"

// PeerResolver resolves the display identity of a counterparty. Sender
// tags describe the author only, so outgoing-only peers need an external
// lookup; incoming peers seed the resolver with their decoded profile.
type PeerResolver interface {
	// Resolve returns the display identity for a user id, falling
	// back to a synthetic placeholder when the user is unknown.
	Resolve(id int64) model.Peer

	// Seed records a profile decoded from an incoming sender tag.
	Seed(profile codec.SenderProfile)
}

// Aggregate partitions the signed-in account's notification feed into
// per-counterparty conversations. It is a pure function of its inputs:
// running it twice on the same feed yields identical buckets.
//
// For each record, direction is determined relationally:
//
//   - sender == peer and owner == current user  ⇒ incoming from sender
//   - sender == current user and owner == peer  ⇒ outgoing to owner
//
// Records matching neither pattern are excluded; self-to-self records
// are discarded; untagged (legacy) records are grouped as incoming
// under the legacy placeholder peer.
func Aggregate(records []api.Notification, currentUserID int64, resolver PeerResolver) []model.Conversation {
	buckets := make(map[int64]*model.Conversation)

	bucket := func(peerID int64) *model.Conversation {
		c, ok := buckets[peerID]
		if !ok {
			c = &model.Conversation{Peer: resolver.Resolve(peerID)}
			if peerID == model.LegacyPeerID {
				c.Peer = model.Peer{ID: model.LegacyPeerID, Pseudo: LegacyPeerPseudo}
			}
			buckets[peerID] = c
		}
		return c
	}

	for i, rec := range records {
		decoded, err := codec.Decode(rec.Content)
		if err != nil {
			logging.Logger.Debug().
				Err(err).
				Int64("record", rec.ID).
				Msg("skipping record with malformed sender tag")
			continue
		}

		if !decoded.Tagged {
			// Legacy format: no author identity. Kept visible as
			// incoming under a fixed placeholder peer.
			msg := recordMessage(rec, decoded.Body, i)
			msg.PeerID = model.LegacyPeerID
			msg.Direction = model.DirectionIncoming
			msg.Legacy = true
			c := bucket(model.LegacyPeerID)
			c.Messages = append(c.Messages, msg)
			continue
		}

		// Self-to-self carries no conversation.
		if decoded.SenderID == currentUserID && rec.UserID == currentUserID {
			continue
		}

		var peerID int64
		var direction model.Direction
		switch {
		case rec.UserID == currentUserID && decoded.SenderID != currentUserID:
			peerID = decoded.SenderID
			direction = model.DirectionIncoming
			resolver.Seed(decoded.Sender)
		case decoded.SenderID == currentUserID && rec.UserID != currentUserID:
			peerID = rec.UserID
			direction = model.DirectionOutgoing
		default:
			// Neither side of the record is the current user.
			continue
		}

		msg := recordMessage(rec, decoded.Body, i)
		msg.PeerID = peerID
		msg.Direction = direction
		c := bucket(peerID)
		c.Messages = append(c.Messages, msg)
	}

	conversations := make([]model.Conversation, 0, len(buckets))
	for _, c := range buckets {
		Finalize(c)
		conversations = append(conversations, *c)
	}
	SortConversations(conversations)

	return conversations
}

// recordMessage maps an authoritative feed record to a message with the
// fields that do not depend on direction.
func recordMessage(rec api.Notification, body string, seq int) model.Message {
	return model.Message{
		ID:          model.RemoteID(rec.ID),
		Status:      model.StatusConfirmed,
		Content:     body,
		Read:        rec.IsRead,
		CreatedAt:   rec.CreatedAt,
		DisplayTime: rec.CreatedAtDisplay,
		Seq:         seq,
	}
}

// Finalize sorts a conversation's messages and recomputes its derived
// fields (unread count, preview, last activity). It is called after
// aggregation and again after pending local messages are merged in.
func Finalize(c *model.Conversation) {
	SortMessages(c.Messages)

	c.Unread = 0
	for _, m := range c.Messages {
		if m.Direction == model.DirectionIncoming && !m.Read {
			c.Unread++
		}
	}

	if last := c.Last(); last != nil {
		c.LastPreview = last.Content
		c.LastActivity = last.CreatedAt
	}
}

// SortMessages orders messages by timestamp, ties broken by feed
// arrival order so repeated passes produce identical output.
func SortMessages(msgs []model.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].SortKey() != msgs[j].SortKey() {
			return msgs[i].SortKey() < msgs[j].SortKey()
		}
		return msgs[i].Seq < msgs[j].Seq
	})
}

// SortConversations orders conversations by most recent activity,
// newest first, ties broken by peer id for determinism.
func SortConversations(convs []model.Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		ai, aj := convs[i].LastActivity, convs[j].LastActivity
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return convs[i].Peer.ID < convs[j].Peer.ID
	})
}
