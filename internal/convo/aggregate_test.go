package convo

import (
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nmarchal/escale/internal/api"
	"github.com/nmarchal/escale/internal/codec"
	"github.com/nmarchal/escale/internal/model"
)

const selfID int64 = 100

// stubResolver resolves every peer to a synthetic identity and records
// what it was seeded with.
type stubResolver struct {
	seeded map[int64]codec.SenderProfile
}

func newStubResolver() *stubResolver {
	return &stubResolver{seeded: make(map[int64]codec.SenderProfile)}
}

func (r *stubResolver) Resolve(id int64) model.Peer {
	return model.Peer{ID: id, Pseudo: fmt.Sprintf("User_%d", id)}
}

func (r *stubResolver) Seed(p codec.SenderProfile) {
	r.seeded[p.ID] = p
}

func tagged(senderID int64, pseudo, body string) string {
	payload := fmt.Sprintf(`{"id":%d,"pseudo":%q}`, senderID, pseudo)
	return fmt.Sprintf("[SENDER:%d][SENDER_DATA:%s]%s",
		senderID, base64.StdEncoding.EncodeToString([]byte(payload)), body)
}

func at(minute int) time.Time {
	return time.Date(2026, 5, 10, 9, minute, 0, 0, time.UTC)
}

func TestAggregateDirections(t *testing.T) {
	records := []api.Notification{
		// Incoming: bob wrote on my record.
		{ID: 1, UserID: selfID, Content: tagged(200, "bob", "hi"), CreatedAt: at(0)},
		// Outgoing: I wrote on bob's record.
		{ID: 2, UserID: 200, Content: tagged(selfID, "me", "hello"), CreatedAt: at(1)},
	}

	convs := Aggregate(records, selfID, newStubResolver())
	require.Len(t, convs, 1)

	c := convs[0]
	require.Equal(t, int64(200), c.Peer.ID)
	require.Len(t, c.Messages, 2)
	require.Equal(t, model.DirectionIncoming, c.Messages[0].Direction)
	require.Equal(t, "hi", c.Messages[0].Content)
	require.Equal(t, model.DirectionOutgoing, c.Messages[1].Direction)
	require.Equal(t, "hello", c.Messages[1].Content)
}

func TestAggregateSeedsIncomingSenders(t *testing.T) {
	resolver := newStubResolver()
	records := []api.Notification{
		{ID: 1, UserID: selfID, Content: tagged(200, "bob", "hi"), CreatedAt: at(0)},
		{ID: 2, UserID: 200, Content: tagged(selfID, "me", "hello"), CreatedAt: at(1)},
	}

	Aggregate(records, selfID, resolver)

	require.Contains(t, resolver.seeded, int64(200))
	require.Equal(t, "bob", resolver.seeded[200].Pseudo)
	// Outgoing records seed nothing; the author is the current user.
	require.NotContains(t, resolver.seeded, selfID)
}

func TestAggregateDiscardsSelfToSelf(t *testing.T) {
	records := []api.Notification{
		{ID: 1, UserID: selfID, Content: tagged(selfID, "me", "note to self"), CreatedAt: at(0)},
	}
	convs := Aggregate(records, selfID, newStubResolver())
	require.Empty(t, convs)
}

func TestAggregateExcludesThirdPartyRecords(t *testing.T) {
	// Neither side of the record is the current user.
	records := []api.Notification{
		{ID: 1, UserID: 300, Content: tagged(200, "bob", "not for me"), CreatedAt: at(0)},
	}
	convs := Aggregate(records, selfID, newStubResolver())
	require.Empty(t, convs)
}

func TestAggregateLegacyRecords(t *testing.T) {
	records := []api.Notification{
		{ID: 1, UserID: selfID, Content: "old system notice", CreatedAt: at(0)},
		{ID: 2, UserID: selfID, Content: tagged(200, "bob", "hi"), CreatedAt: at(1)},
	}

	convs := Aggregate(records, selfID, newStubResolver())
	require.Len(t, convs, 2)

	named := false
	for _, c := range convs {
		if c.Peer.ID == model.LegacyPeerID {
			named = true
			require.Equal(t, LegacyPeerPseudo, c.Peer.Pseudo)
			require.Len(t, c.Messages, 1)
			require.True(t, c.Messages[0].Legacy)
			require.Equal(t, model.DirectionIncoming, c.Messages[0].Direction)
			require.Equal(t, "old system notice", c.Messages[0].Content)
		}
	}
	require.True(t, named)
}

func TestAggregateSkipsMalformedTags(t *testing.T) {
	records := []api.Notification{
		{ID: 1, UserID: selfID, Content: "[SENDER:200][SENDER_DATA:====x]broken", CreatedAt: at(0)},
		{ID: 2, UserID: selfID, Content: tagged(200, "bob", "fine"), CreatedAt: at(1)},
	}

	convs := Aggregate(records, selfID, newStubResolver())
	require.Len(t, convs, 1)
	require.Len(t, convs[0].Messages, 1)
	require.Equal(t, "fine", convs[0].Messages[0].Content)
}

func TestAggregateIsDeterministic(t *testing.T) {
	records := []api.Notification{
		{ID: 1, UserID: selfID, Content: tagged(200, "bob", "a"), CreatedAt: at(0)},
		// Same timestamp: feed order breaks the tie.
		{ID: 2, UserID: selfID, Content: tagged(200, "bob", "b"), CreatedAt: at(0)},
		{ID: 3, UserID: 300, Content: tagged(selfID, "me", "c"), CreatedAt: at(2)},
	}

	first := Aggregate(records, selfID, newStubResolver())
	second := Aggregate(records, selfID, newStubResolver())
	require.Equal(t, first, second)

	require.Equal(t, "a", first[1].Messages[0].Content)
	require.Equal(t, "b", first[1].Messages[1].Content)
}

func TestAggregateUnreadAndPreview(t *testing.T) {
	records := []api.Notification{
		{ID: 1, UserID: selfID, Content: tagged(200, "bob", "first"), IsRead: true, CreatedAt: at(0)},
		{ID: 2, UserID: selfID, Content: tagged(200, "bob", "second"), CreatedAt: at(1)},
		{ID: 3, UserID: 200, Content: tagged(selfID, "me", "mine unread flag ignored"), CreatedAt: at(2)},
	}

	convs := Aggregate(records, selfID, newStubResolver())
	require.Len(t, convs, 1)

	c := convs[0]
	// Only incoming records count toward unread.
	require.Equal(t, 1, c.Unread)
	require.Equal(t, "mine unread flag ignored", c.LastPreview)
	require.True(t, c.LastActivity.Equal(at(2)))
}

func TestSortConversationsByActivity(t *testing.T) {
	records := []api.Notification{
		{ID: 1, UserID: selfID, Content: tagged(200, "bob", "old"), CreatedAt: at(0)},
		{ID: 2, UserID: selfID, Content: tagged(300, "eve", "new"), CreatedAt: at(5)},
	}

	convs := Aggregate(records, selfID, newStubResolver())
	require.Len(t, convs, 2)
	require.Equal(t, int64(300), convs[0].Peer.ID)
	require.Equal(t, int64(200), convs[1].Peer.ID)
}
