// Package setup is the first-run form collecting the backend URL, the
// signed-in account identity, and the API token.
package setup

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nmarchal/escale/internal/model"
)

// DoneMsg is sent when the form completes. Token is stored in the
// keyring by the app, not in the config file.
type DoneMsg struct {
	Server model.ServerConfig
	Token  string
}

// AbortedMsg is sent when the user cancels the form.
type AbortedMsg struct{}

// Model is the setup form component.
type Model struct {
	form *huh.Form

	// Form field values (huh binds to these).
	baseURL string
	userID  string
	pseudo  string
	token   string

	// avatar is not collected by the form; an existing value is
	// carried through unchanged.
	avatar string

	width int
}

// New creates a setup form, prefilled from an existing configuration.
func New(cfg model.ServerConfig, width int) Model {
	m := Model{
		baseURL: cfg.BaseURL,
		pseudo:  cfg.Pseudo,
		avatar:  cfg.Avatar,
		width:   width,
	}
	if cfg.UserID != 0 {
		m.userID = strconv.FormatInt(cfg.UserID, 10)
	}
	m.form = m.buildForm()
	return m
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Server URL").
				Description("Root URL of the community backend").
				Placeholder("https://community.example.com").
				Value(&m.baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Account ID").
				Description("Your numeric account id").
				Value(&m.userID).
				Validate(validateID),
			huh.NewInput().
				Title("Pseudo").
				Description("Your display name on the community").
				Value(&m.pseudo).
				Validate(validateRequired("Pseudo")),
			huh.NewInput().
				Title("API Token").
				Description("Stored in the system keyring").
				EchoMode(huh.EchoModePassword).
				Value(&m.token).
				Validate(validateRequired("Token")),
		),
	).WithWidth(m.formWidth())
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

// Update handles messages for the setup form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		userID, _ := strconv.ParseInt(strings.TrimSpace(m.userID), 10, 64)
		server := model.ServerConfig{
			BaseURL: strings.TrimRight(strings.TrimSpace(m.baseURL), "/"),
			UserID:  userID,
			Pseudo:  strings.TrimSpace(m.pseudo),
			Avatar:  m.avatar,
		}
		token := m.token
		return m, func() tea.Msg {
			return DoneMsg{Server: server, Token: token}
		}
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return AbortedMsg{} }
	}

	return m, cmd
}

// View renders the setup form.
func (m Model) View() string {
	return m.form.View()
}

func validateRequired(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func validateURL(s string) error {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return fmt.Errorf("must start with http:// or https://")
	}
	return nil
}

func validateID(s string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("must be a positive number")
	}
	return nil
}
