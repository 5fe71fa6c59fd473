// Package app is the root Bubble Tea model: view routing, poller
// lifecycle, and the glue between the UI components and the
// conversation engine.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nmarchal/escale/internal/api"
	"github.com/nmarchal/escale/internal/codec"
	"github.com/nmarchal/escale/internal/convo"
	"github.com/nmarchal/escale/internal/credential"
	"github.com/nmarchal/escale/internal/directory"
	"github.com/nmarchal/escale/internal/keys"
	"github.com/nmarchal/escale/internal/logging"
	"github.com/nmarchal/escale/internal/model"
	"github.com/nmarchal/escale/internal/store"
	appsync "github.com/nmarchal/escale/internal/sync"
	"github.com/nmarchal/escale/internal/ui"
	"github.com/nmarchal/escale/internal/ui/chat"
	"github.com/nmarchal/escale/internal/ui/convlist"
	"github.com/nmarchal/escale/internal/ui/newconv"
	"github.com/nmarchal/escale/internal/ui/setup"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewChat
	ViewNewConv
	ViewSetup
	ViewHelp
)

// sendResultMsg reports the outcome of a create-notification request
// for one pending message.
type sendResultMsg struct {
	id  model.MessageID
	err error
}

// readsSweptMsg reports how many read transitions a sweep requested.
type readsSweptMsg struct {
	count int
}

// sendTimeout bounds a single create-notification request.
const sendTimeout = 15 * time.Second

// Model is the root application model.
type Model struct {
	cfg     *model.AppConfig
	cfgPath string

	client *api.Client
	store  store.Store
	dir    *directory.Directory
	engine *convo.Engine
	reads  *convo.ReadSyncer
	poller *appsync.Poller

	keys   *keys.KeyMap
	layout ui.Layout

	currentView ViewState
	convList    convlist.Model
	chatView    chat.Model
	newConv     newconv.Model
	setupView   setup.Model

	ready   bool
	syncErr error
	authErr bool
}

// New creates the root model. If the configuration is incomplete the
// app starts in the setup view and the messaging stack is built once
// setup completes.
func New(cfg *model.AppConfig, cfgPath string, s store.Store) (*Model, error) {
	k := keys.DefaultKeyMap()

	m := &Model{
		cfg:      cfg,
		cfgPath:  cfgPath,
		store:    s,
		keys:     k,
		convList: convlist.New(k, 80, 22),
		chatView: chat.New(k, 80, 22),
	}

	if cfg.Configured() {
		if err := m.bootstrap(); err != nil {
			return nil, err
		}
		m.currentView = ViewList
	} else {
		m.setupView = setup.New(cfg.Server, 80)
		m.currentView = ViewSetup
	}

	return m, nil
}

// bootstrap builds the messaging stack from the current configuration:
// API client, directory, engine, read syncer, and poller. The engine is
// primed from the local feed cache so conversations render before the
// first poll completes.
func (m *Model) bootstrap() error {
	token, err := credential.Token()
	if err != nil {
		logging.Logger.Warn().Err(err).Msg("no API token in keyring")
	}
	m.client = api.NewClient(m.cfg.Server.BaseURL, token)

	m.dir = directory.New(m.client, m.store)
	if err := m.dir.LoadCache(context.Background()); err != nil {
		logging.Logger.Warn().Err(err).Msg("profile cache unavailable")
	}

	m.reads, err = convo.NewReadSyncer(context.Background(), m.client, m.store)
	if err != nil {
		return fmt.Errorf("initializing read syncer: %w", err)
	}

	m.engine = convo.NewEngine(m.cfg.Server.UserID, m.dir, convo.NewOutbox())

	if cached, err := m.store.GetNotifications(context.Background()); err == nil {
		m.engine.SetFeed(cached)
	} else {
		logging.Logger.Warn().Err(err).Msg("feed cache unavailable")
	}

	m.poller = appsync.New(
		m.client,
		m.store,
		m.dir,
		time.Duration(m.cfg.Polling.ActiveIntervalMs)*time.Millisecond,
		time.Duration(m.cfg.Polling.IdleIntervalMs)*time.Millisecond,
		m.cfg.Polling.PageSize,
	)

	return nil
}

// Init starts polling, or the setup form on first run.
func (m *Model) Init() tea.Cmd {
	if m.currentView == ViewSetup {
		return m.setupView.Init()
	}
	m.refreshViews()
	return m.poller.Start()
}

// Update routes messages to the active view and handles the
// application-level lifecycle messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.convList.SetSize(msg.Width, m.layout.ContentHeight())
		m.chatView.SetSize(msg.Width, m.layout.ContentHeight())
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			if m.poller != nil {
				m.poller.Stop()
			}
			return m, tea.Quit
		}

	case appsync.FeedMsg:
		return m.handleFeed(msg)

	case sendResultMsg:
		return m.handleSendResult(msg)

	case readsSweptMsg:
		if msg.count > 0 {
			logging.Logger.Debug().Int("count", msg.count).Msg("read transitions requested")
		}
		return m, nil

	case convlist.SelectedMsg:
		return m.openConversation(msg.PeerID)

	case convlist.NewConversationMsg:
		m.newConv = newconv.New(m.dir.Known(), m.cfg.Server.UserID, m.layout.Width)
		m.currentView = ViewNewConv
		return m, m.newConv.Init()

	case chat.SubmitMsg:
		return m.submit(msg.PeerID, msg.Content)

	case chat.EditMsg:
		m.engine.Edit(msg.ID, msg.Content)
		m.refreshViews()
		return m, nil

	case chat.ResendMsg:
		if pending, ok := m.engine.Resend(msg.ID); ok {
			m.refreshViews()
			return m, m.sendCmd(pending)
		}
		return m, nil

	case chat.CloseMsg:
		m.currentView = ViewList
		m.poller.SetActive(false)
		return m, nil

	case newconv.StartMsg:
		mdl, cmd := m.submit(msg.PeerID, msg.Content)
		m.currentView = ViewChat
		if conv, ok := m.engine.Conversation(msg.PeerID); ok {
			m.chatView.Open(conv)
		}
		m.poller.SetActive(true)
		return mdl, cmd

	case newconv.AbortedMsg:
		m.currentView = ViewList
		return m, nil

	case setup.DoneMsg:
		return m.finishSetup(msg)

	case setup.AbortedMsg:
		if m.cfg.Configured() {
			m.currentView = ViewList
			return m, nil
		}
		return m, tea.Quit
	}

	return m.updateActiveView(msg)
}

// updateActiveView forwards a message to whichever view is showing.
func (m *Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.currentView {
	case ViewList:
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch {
			case key.Matches(keyMsg, m.keys.Help):
				m.currentView = ViewHelp
				return m, nil
			case key.Matches(keyMsg, m.keys.Refresh):
				m.poller.Trigger()
				return m, nil
			}
		}
		m.convList, cmd = m.convList.Update(msg)
	case ViewChat:
		m.chatView, cmd = m.chatView.Update(msg)
	case ViewNewConv:
		m.newConv, cmd = m.newConv.Update(msg)
	case ViewSetup:
		m.setupView, cmd = m.setupView.Update(msg)
	case ViewHelp:
		if _, ok := msg.(tea.KeyMsg); ok {
			m.currentView = ViewList
		}
	}
	return m, cmd
}

// handleFeed folds a polling result into the engine and keeps the
// subscription alive. Fetch errors only flag the header; the next
// cycle retries.
func (m *Model) handleFeed(msg appsync.FeedMsg) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.poller.WaitForNextResult()}

	if msg.Err != nil {
		m.syncErr = msg.Err
		m.authErr = api.IsAuthError(msg.Err)
		return m, tea.Batch(cmds...)
	}

	m.syncErr = nil
	m.authErr = false
	m.engine.SetFeed(msg.Records)
	m.refreshViews()
	cmds = append(cmds, m.sweepCmd())

	return m, tea.Batch(cmds...)
}

// handleSendResult applies a send outcome to the pending message and
// pulls the feed forward so the authoritative record shows up quickly.
func (m *Model) handleSendResult(msg sendResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		logging.Logger.Warn().Err(msg.err).Str("message", msg.id.Key()).Msg("send failed")
		m.engine.SendFailed(msg.id)
	} else {
		m.engine.SendConfirmed(msg.id)
		m.poller.Trigger()
	}
	m.refreshViews()
	return m, nil
}

// openConversation switches to the chat view for a peer and speeds up
// the polling cadence.
func (m *Model) openConversation(peerID int64) (tea.Model, tea.Cmd) {
	conv, ok := m.engine.Conversation(peerID)
	if !ok {
		return m, nil
	}
	m.chatView.Open(conv)
	m.currentView = ViewChat
	m.poller.SetActive(true)
	return m, m.sweepCmd()
}

// submit creates the optimistic pending message and kicks off the
// actual send.
func (m *Model) submit(peerID int64, content string) (tea.Model, tea.Cmd) {
	pending := m.engine.Submit(peerID, content)
	m.refreshViews()
	return m, m.sendCmd(pending)
}

// sendCmd returns a command that encodes and sends one pending message.
func (m *Model) sendCmd(pending model.Message) tea.Cmd {
	client := m.client
	server := m.cfg.Server
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		content, err := codec.Encode(server.UserID, codec.SenderProfile{
			ID:     server.UserID,
			Pseudo: server.Pseudo,
			Avatar: server.Avatar,
		}, pending.Content)
		if err != nil {
			return sendResultMsg{id: pending.ID, err: err}
		}

		if _, err := client.CreateNotification(ctx, pending.PeerID, content); err != nil {
			return sendResultMsg{id: pending.ID, err: err}
		}
		return sendResultMsg{id: pending.ID}
	}
}

// sweepCmd returns a command that requests read transitions for the
// current projection, off the UI goroutine.
func (m *Model) sweepCmd() tea.Cmd {
	reads := m.reads
	convs := m.engine.Conversations()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		return readsSweptMsg{count: reads.Sweep(ctx, convs)}
	}
}

// refreshViews pushes the latest projection into the list and chat
// views.
func (m *Model) refreshViews() {
	convs := m.engine.Conversations()
	m.convList.SetConversations(convs)
	if peerID := m.chatView.PeerID(); peerID != 0 {
		if conv, ok := m.engine.Conversation(peerID); ok {
			m.chatView.SetConversation(conv)
		}
	}
}

// finishSetup persists the configuration and token, builds the
// messaging stack, and starts polling.
func (m *Model) finishSetup(msg setup.DoneMsg) (tea.Model, tea.Cmd) {
	m.cfg.Server = msg.Server
	if err := model.SaveConfig(m.cfgPath, m.cfg); err != nil {
		logging.Logger.Error().Err(err).Msg("saving config failed")
	}
	if err := credential.SetToken(msg.Token); err != nil {
		logging.Logger.Error().Err(err).Msg("storing token failed")
	}

	if err := m.bootstrap(); err != nil {
		logging.Logger.Error().Err(err).Msg("bootstrap failed")
		return m, tea.Quit
	}

	m.currentView = ViewList
	m.refreshViews()
	return m, m.poller.Start()
}

// View renders the active view inside the application frame.
func (m *Model) View() string {
	if !m.ready {
		return "loading…"
	}

	var content, hints string
	title := "escale"

	switch m.currentView {
	case ViewSetup:
		content = m.setupView.View()
		hints = "enter: next | esc: cancel"
	case ViewNewConv:
		content = m.newConv.View()
		hints = "enter: next | esc: cancel"
	case ViewChat:
		content = m.chatView.View()
		hints = m.chatView.Hints()
	case ViewHelp:
		content = m.helpView()
		hints = "any key: back"
	default:
		content = m.convList.View()
		hints = "enter: open | n: new | ctrl+r: refresh | ?: help | ctrl+c: quit"
	}

	return m.layout.RenderWithFrame(
		m.layout.RenderHeader(title, m.headerStatus()),
		content,
		m.layout.RenderStatusBar(hints),
	)
}

// headerStatus summarizes sync state and unread totals for the header.
func (m *Model) headerStatus() string {
	if m.engine == nil {
		return ""
	}
	if m.authErr {
		return "auth expired"
	}
	if m.syncErr != nil {
		return "offline"
	}
	if unread := m.engine.TotalUnread(); unread > 0 {
		return fmt.Sprintf("%d unread", unread)
	}
	return "up to date"
}

// helpView renders the keybinding reference.
func (m *Model) helpView() string {
	return `
  Conversations
    j/↓, k/↑    move
    enter       open conversation
    n           start a new conversation
    ctrl+r      refresh now

  Chat
    enter       send message
    esc         browse history / back
    j/k         move between messages
    e           edit own message (local only)
    r           resend a failed message

  ctrl+c        quit
`
}
