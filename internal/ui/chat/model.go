// Package chat is the open-conversation view: scrollable message
// history, compose area, and local edit/resend actions on the
// account's own messages.
package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nmarchal/escale/internal/keys"
	"github.com/nmarchal/escale/internal/model"
	"github.com/nmarchal/escale/internal/theme"
)

// SubmitMsg is sent when the user submits a new message.
type SubmitMsg struct {
	PeerID  int64
	Content string
}

// EditMsg is sent when the user finishes a local edit of one of their
// own messages.
type EditMsg struct {
	ID      model.MessageID
	Content string
}

// ResendMsg is sent when the user resends a failed message.
type ResendMsg struct {
	ID model.MessageID
}

// CloseMsg is sent when the user leaves the conversation.
type CloseMsg struct{}

// mode is the input focus state of the chat view.
type mode int

const (
	modeCompose mode = iota
	modeBrowse
	modeEdit
)

// Model is the open-conversation view component.
type Model struct {
	peer     model.Peer
	messages []model.Message

	viewport viewport.Model
	input    textarea.Model
	keys     *keys.KeyMap

	mode    mode
	cursor  int
	editing model.MessageID

	width  int
	height int
}

// New creates a chat view component.
func New(k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, historyHeight(height))

	ta := textarea.New()
	ta.Placeholder = "Write a message…"
	ta.SetWidth(width - 2)
	ta.SetHeight(2)
	ta.ShowLineNumbers = false
	ta.Focus()

	return Model{
		viewport: vp,
		input:    ta,
		keys:     k,
		width:    width,
		height:   height,
	}
}

func historyHeight(total int) int {
	h := total - 4
	if h < 1 {
		h = 1
	}
	return h
}

// Open points the view at a conversation and resets the input state.
func (m *Model) Open(conv model.Conversation) {
	m.peer = conv.Peer
	m.messages = conv.Messages
	m.mode = modeCompose
	m.cursor = len(conv.Messages) - 1
	m.input.Reset()
	m.input.Focus()
	m.renderHistory()
	m.viewport.GotoBottom()
}

// SetConversation refreshes the message history after a polling pass.
// The scroll position is preserved unless the view was already pinned
// to the bottom, in which case it follows new messages.
func (m *Model) SetConversation(conv model.Conversation) {
	if conv.Peer.ID != m.peer.ID {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.peer = conv.Peer
	m.messages = conv.Messages
	if m.cursor >= len(m.messages) {
		m.cursor = len(m.messages) - 1
	}
	m.renderHistory()
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// PeerID returns the open counterparty id, or 0 when closed.
func (m Model) PeerID() int64 {
	return m.peer.ID
}

// SetSize updates the component dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = historyHeight(height)
	m.input.SetWidth(width - 2)
	m.renderHistory()
}

// Update handles messages for the chat view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	switch m.mode {
	case modeCompose:
		return m.updateCompose(keyMsg)
	case modeBrowse:
		return m.updateBrowse(keyMsg)
	default:
		return m.updateEdit(keyMsg)
	}
}

// updateCompose handles input while the compose area is focused.
func (m Model) updateCompose(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		content := strings.TrimSpace(m.input.Value())
		if content == "" {
			return m, nil
		}
		peerID := m.peer.ID
		m.input.Reset()
		return m, func() tea.Msg {
			return SubmitMsg{PeerID: peerID, Content: content}
		}

	case tea.KeyEsc:
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// updateBrowse handles input while navigating the message history.
func (m Model) updateBrowse(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEsc:
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.messages)-1 {
			m.cursor++
			m.renderHistory()
			m.viewport.ScrollDown(1)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.renderHistory()
			m.viewport.ScrollUp(1)
		}
		return m, nil

	case key.Matches(msg, m.keys.Edit):
		if sel := m.selected(); sel != nil && sel.Editable() {
			m.mode = modeEdit
			m.editing = sel.ID
			m.input.SetValue(sel.Content)
			m.input.Focus()
		}
		return m, nil

	case key.Matches(msg, m.keys.Resend):
		if sel := m.selected(); sel != nil && sel.Status == model.StatusFailed {
			id := sel.ID
			return m, func() tea.Msg { return ResendMsg{ID: id} }
		}
		return m, nil

	case msg.String() == "i", msg.Type == tea.KeyTab:
		m.mode = modeCompose
		m.input.Focus()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// updateEdit handles input while editing an existing message.
func (m Model) updateEdit(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		content := strings.TrimSpace(m.input.Value())
		id := m.editing
		m.mode = modeBrowse
		m.editing = model.MessageID{}
		m.input.Reset()
		m.input.Blur()
		if content == "" {
			return m, nil
		}
		return m, func() tea.Msg {
			return EditMsg{ID: id, Content: content}
		}

	case tea.KeyEsc:
		m.mode = modeBrowse
		m.editing = model.MessageID{}
		m.input.Reset()
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// selected returns the message under the cursor, or nil.
func (m *Model) selected() *model.Message {
	if m.cursor < 0 || m.cursor >= len(m.messages) {
		return nil
	}
	return &m.messages[m.cursor]
}

// renderHistory rebuilds the viewport content from the message list.
func (m *Model) renderHistory() {
	var b strings.Builder
	for i, msg := range m.messages {
		b.WriteString(m.renderMessage(msg, m.mode != modeCompose && i == m.cursor))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
}

// renderMessage draws one message line: time, author, body, and any
// status or edit annotations.
func (m *Model) renderMessage(msg model.Message, selected bool) string {
	when := msg.DisplayTime
	if when == "" {
		when = msg.CreatedAt.Format("15:04")
	}

	author := m.peer.Pseudo
	bodyStyle := theme.IncomingStyle
	if msg.Direction == model.DirectionOutgoing {
		author = "you"
		bodyStyle = theme.OutgoingStyle
	}

	var annotations []string
	if msg.Status == model.StatusSending || msg.Status == model.StatusFailed {
		annotations = append(annotations, theme.StatusStyle(string(msg.Status)).Render(string(msg.Status)))
	}
	if msg.Edited {
		annotations = append(annotations, theme.EditedStyle.Render("edited"))
	}

	line := theme.MetaStyle.Render(when) + " " +
		theme.MetaStyle.Render(author+":") + " " +
		bodyStyle.Render(msg.Content)
	if len(annotations) > 0 {
		line += " " + strings.Join(annotations, " ")
	}

	prefix := "  "
	if selected {
		prefix = "▶ "
	}

	return lipgloss.NewStyle().Width(m.width - 2).Render(prefix + line)
}

// View renders the chat view: history above, compose area below.
func (m Model) View() string {
	compose := theme.ComposeStyle.Width(m.width - 2).Render(m.input.View())
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), compose)
}

// Hints returns the status-bar hint line for the current mode.
func (m Model) Hints() string {
	switch m.mode {
	case modeBrowse:
		return "j/k: navigate | e: edit | r: resend | tab: compose | esc: back"
	case modeEdit:
		return "enter: save local edit | esc: cancel"
	default:
		return "enter: send | esc: browse messages"
	}
}
