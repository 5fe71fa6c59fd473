// Package sync drives the polling refresh loop. There is no push
// channel on the backend; short-interval re-fetching of the
// notification feed is the only delivery mechanism.
package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nmarchal/escale/internal/api"
	"github.com/nmarchal/escale/internal/directory"
	"github.com/nmarchal/escale/internal/logging"
	"github.com/nmarchal/escale/internal/store"
)

// FeedMsg is a tea.Msg sent when a poll completes. A failed fetch
// carries only Err; the next cycle retries naturally.
type FeedMsg struct {
	Records []api.Notification
	Err     error
}

// fetchTimeout is the maximum time allowed for a single feed fetch.
const fetchTimeout = 10 * time.Second

// directoryRefreshEvery is how many polling passes elapse between
// member-directory refreshes.
const directoryRefreshEvery = 40

// Feed fetches pages of the signed-in account's notification feed.
type Feed interface {
	ListNotifications(ctx context.Context, page, pageSize int) ([]api.Notification, error)
}

// Poller re-fetches the notification feed on a fixed cadence: fast
// while a conversation is open, slower otherwise. It owns nothing of
// the conversation state; results are bridged into the Bubble Tea
// runtime as FeedMsg values and the engine recomputes from there, so a
// poll never clears pending sends or scroll position.
type Poller struct {
	feed      Feed
	cache     store.Store
	directory *directory.Directory

	activeInterval time.Duration
	idleInterval   time.Duration
	pageSize       int

	resultCh  chan FeedMsg
	triggerCh chan struct{}
	stopCh    chan struct{}

	mu      gosync.Mutex
	running bool
	active  bool
}

// New creates a poller. cache and dir may be nil in tests.
func New(feed Feed, cache store.Store, dir *directory.Directory, activeInterval, idleInterval time.Duration, pageSize int) *Poller {
	if activeInterval <= 0 {
		activeInterval = 750 * time.Millisecond
	}
	if idleInterval <= 0 {
		idleInterval = 5 * time.Second
	}
	if pageSize <= 0 {
		pageSize = 200
	}
	return &Poller{
		feed:           feed,
		cache:          cache,
		directory:      dir,
		activeInterval: activeInterval,
		idleInterval:   idleInterval,
		pageSize:       pageSize,
		resultCh:       make(chan FeedMsg, 16),
		triggerCh:      make(chan struct{}, 16),
		stopCh:         make(chan struct{}),
	}
}

// Start launches the polling goroutine and returns a subscription
// command that waits for the first result.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()

	return p.waitForResult()
}

// Stop halts the polling goroutine. Results from fetches still in
// flight are discarded.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	p.running = false
}

// SetActive switches between the fast (conversation open) and idle
// cadences. Activating also triggers an immediate fetch.
func (p *Poller) SetActive(active bool) {
	p.mu.Lock()
	was := p.active
	p.active = active
	p.mu.Unlock()

	if active && !was {
		p.Trigger()
	}
}

// Trigger requests an immediate poll, used right after a local send so
// the authoritative record shows up as soon as the backend has it.
func (p *Poller) Trigger() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// Channel full; a poll is already due.
	}
}

// loop runs the polling cycle until Stop is called.
func (p *Poller) loop() {
	passes := 0

	// Initial fetch immediately.
	p.fetch(passes)

	timer := time.NewTimer(p.interval())
	defer timer.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-timer.C:
		case <-p.triggerCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		passes++
		p.fetch(passes)
		timer.Reset(p.interval())
	}
}

// interval returns the current cadence.
func (p *Poller) interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		return p.activeInterval
	}
	return p.idleInterval
}

// fetch performs one feed pull, refreshes the local cache, and sends
// the result. Fetch errors are reported but never fatal; the next
// cycle self-heals.
func (p *Poller) fetch(pass int) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	if p.directory != nil && pass%directoryRefreshEvery == 0 {
		if err := p.directory.Refresh(ctx); err != nil {
			logging.Logger.Warn().Err(err).Msg("directory refresh failed")
		}
	}

	records, err := p.feed.ListNotifications(ctx, 1, p.pageSize)
	if err != nil {
		logging.Logger.Warn().Err(err).Msg("feed fetch failed")
		p.sendResult(FeedMsg{Err: err})
		return
	}

	if p.cache != nil {
		if err := p.cache.UpsertNotifications(ctx, records); err != nil {
			logging.Logger.Warn().Err(err).Msg("caching feed failed")
		}
	}

	p.sendResult(FeedMsg{Records: records})
}

// sendResult sends a FeedMsg without blocking, dropping it if the
// poller has been stopped or the channel is full.
func (p *Poller) sendResult(msg FeedMsg) {
	select {
	case <-p.stopCh:
	case p.resultCh <- msg:
	default:
		// Channel full; the UI is behind, drop in favor of the
		// fresher result that is coming.
	}
}

// waitForResult returns a tea.Cmd that waits for the next poll result.
func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-p.stopCh:
			return nil
		case result, ok := <-p.resultCh:
			if !ok {
				return nil
			}
			return result
		}
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next poll
// result. Call after processing a FeedMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
