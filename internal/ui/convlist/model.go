// Package convlist is the conversation-overview view: one row per
// counterparty, ordered by most recent activity.
package convlist

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nmarchal/escale/internal/convo"
	"github.com/nmarchal/escale/internal/keys"
	"github.com/nmarchal/escale/internal/model"
	"github.com/nmarchal/escale/internal/theme"
)

// SelectedMsg is sent when the user opens a conversation.
type SelectedMsg struct {
	PeerID int64
}

// NewConversationMsg is sent when the user wants to start a new
// conversation.
type NewConversationMsg struct{}

// Model is the conversation list view component.
type Model struct {
	list   list.Model
	keys   *keys.KeyMap
	width  int
	height int
}

// New creates a new conversation list model.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height)
	l.Title = "Conversations"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		keys:   k,
		width:  width,
		height: height,
	}
}

// SetConversations replaces the list content, keeping the cursor on the
// same peer when possible so a refresh never yanks the selection.
func (m *Model) SetConversations(convs []model.Conversation) {
	var selectedPeer int64 = -1
	if item, ok := m.list.SelectedItem().(ConvItem); ok {
		selectedPeer = item.Conv.Peer.ID
	}

	previewLen := convo.PreviewLen(m.width)
	items := make([]list.Item, len(convs))
	cursor := -1
	for i, c := range convs {
		items[i] = ConvItem{Conv: c, previewLen: previewLen}
		if c.Peer.ID == selectedPeer {
			cursor = i
		}
	}
	m.list.SetItems(items)
	if cursor >= 0 {
		m.list.Select(cursor)
	}
}

// SetSize updates the component dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}

// Update handles messages for the conversation list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.keys.Select):
			if item, ok := m.list.SelectedItem().(ConvItem); ok {
				peerID := item.Conv.Peer.ID
				return m, func() tea.Msg {
					return SelectedMsg{PeerID: peerID}
				}
			}
			return m, nil

		case key.Matches(keyMsg, m.keys.NewConversation):
			return m, func() tea.Msg {
				return NewConversationMsg{}
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the conversation list.
func (m Model) View() string {
	return m.list.View()
}
