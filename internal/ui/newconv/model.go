// Package newconv is the start-a-conversation form: pick a community
// member and write the opening message.
package newconv

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nmarchal/escale/internal/model"
)

// StartMsg is sent when the form completes.
type StartMsg struct {
	PeerID  int64
	Content string
}

// AbortedMsg is sent when the user cancels the form.
type AbortedMsg struct{}

// Model is the new-conversation form component.
type Model struct {
	form *huh.Form

	// Form field values (huh binds to these).
	peerID  int64
	content string

	width int
}

// New creates a new-conversation form over the known member identities.
// currentUserID is excluded from the recipient options.
func New(peers []model.Peer, currentUserID int64, width int) Model {
	m := Model{width: width}

	options := make([]huh.Option[int64], 0, len(peers))
	for _, p := range peers {
		if p.ID == currentUserID || p.ID == model.LegacyPeerID {
			continue
		}
		label := p.Pseudo
		if label == "" {
			label = fmt.Sprintf("User_%d", p.ID)
		}
		options = append(options, huh.NewOption(label, p.ID))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int64]().
				Title("Recipient").
				Description("Choose a community member").
				Options(options...).
				Value(&m.peerID),
			huh.NewText().
				Title("Message").
				Description("The opening message").
				Value(&m.content).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("message is required")
					}
					return nil
				}),
		),
	).WithWidth(m.formWidth())

	return m
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w > 72 {
		w = 72
	}
	if w < 20 {
		w = 20
	}
	return w
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages for the new-conversation form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		peerID := m.peerID
		content := strings.TrimSpace(m.content)
		return m, func() tea.Msg {
			return StartMsg{PeerID: peerID, Content: content}
		}
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return AbortedMsg{} }
	}

	return m, cmd
}

// View renders the new-conversation form.
func (m Model) View() string {
	return m.form.View()
}
