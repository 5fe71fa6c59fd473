package convlist

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/nmarchal/escale/internal/keys"
	"github.com/nmarchal/escale/internal/model"
)

func testConvs() []model.Conversation {
	return []model.Conversation{
		{Peer: model.Peer{ID: 300, Pseudo: "eve"}, LastPreview: "newest", LastActivity: time.Now()},
		{Peer: model.Peer{ID: 200, Pseudo: "bob"}, Unread: 2, LastPreview: "older", LastActivity: time.Now().Add(-time.Hour)},
	}
}

func TestSelectEmitsPeerID(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 20)
	m.SetConversations(testConvs())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	msg, ok := cmd().(SelectedMsg)
	require.True(t, ok)
	require.Equal(t, int64(300), msg.PeerID)
}

func TestSelectOnEmptyListIsNoop(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 20)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, cmd)
}

func TestNewConversationKey(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 20)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	require.NotNil(t, cmd)

	_, ok := cmd().(NewConversationMsg)
	require.True(t, ok)
}

func TestRefreshPreservesSelection(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 20)
	m.SetConversations(testConvs())

	// Move the cursor to bob.
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})

	// After a refresh bob has new activity and moves to the top; the
	// cursor follows the peer, not the row index.
	refreshed := []model.Conversation{
		{Peer: model.Peer{ID: 200, Pseudo: "bob"}, LastPreview: "brand new", LastActivity: time.Now()},
		{Peer: model.Peer{ID: 300, Pseudo: "eve"}, LastPreview: "newest", LastActivity: time.Now().Add(-time.Minute)},
	}
	m.SetConversations(refreshed)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg, ok := cmd().(SelectedMsg)
	require.True(t, ok)
	require.Equal(t, int64(200), msg.PeerID)
}

func TestRelativeTime(t *testing.T) {
	require.Equal(t, "", relativeTime(time.Time{}))
	require.Equal(t, "just now", relativeTime(time.Now().Add(-10*time.Second)))
	require.Equal(t, "5m ago", relativeTime(time.Now().Add(-5*time.Minute)))
	require.Equal(t, "1h ago", relativeTime(time.Now().Add(-90*time.Minute)))
	require.Equal(t, "3d ago", relativeTime(time.Now().Add(-3*24*time.Hour)))
	require.Equal(t, "2w ago", relativeTime(time.Now().Add(-15*24*time.Hour)))
}
