package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nmarchal/escale/internal/api"
)

type stubFeed struct {
	mu      gosync.Mutex
	calls   int
	records []api.Notification
	err     error
}

func (f *stubFeed) ListNotifications(context.Context, int, int) ([]api.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.records, f.err
}

func (f *stubFeed) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func awaitMsg(t *testing.T, p *Poller) FeedMsg {
	t.Helper()
	done := make(chan FeedMsg, 1)
	go func() {
		if msg := p.WaitForNextResult()(); msg != nil {
			done <- msg.(FeedMsg)
		}
	}()
	select {
	case msg := <-done:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for poll result")
		return FeedMsg{}
	}
}

func TestPollerDeliversInitialFetch(t *testing.T) {
	feed := &stubFeed{records: []api.Notification{{ID: 1, Content: "hi"}}}
	p := New(feed, nil, nil, time.Hour, time.Hour, 50)
	p.Start()
	defer p.Stop()

	msg := awaitMsg(t, p)
	require.NoError(t, msg.Err)
	require.Len(t, msg.Records, 1)
	require.Equal(t, int64(1), msg.Records[0].ID)
}

func TestPollerReportsFetchErrors(t *testing.T) {
	feed := &stubFeed{err: errors.New("down")}
	p := New(feed, nil, nil, time.Hour, time.Hour, 50)
	p.Start()
	defer p.Stop()

	msg := awaitMsg(t, p)
	require.Error(t, msg.Err)
	require.Empty(t, msg.Records)
}

func TestPollerTriggerForcesImmediateFetch(t *testing.T) {
	feed := &stubFeed{}
	// Hour-long cadence: any second fetch must come from the trigger.
	p := New(feed, nil, nil, time.Hour, time.Hour, 50)
	p.Start()
	defer p.Stop()

	awaitMsg(t, p)
	require.Equal(t, 1, feed.callCount())

	p.Trigger()
	awaitMsg(t, p)
	require.Equal(t, 2, feed.callCount())
}

func TestPollerSetActiveTriggersFetch(t *testing.T) {
	feed := &stubFeed{}
	p := New(feed, nil, nil, time.Hour, time.Hour, 50)
	p.Start()
	defer p.Stop()

	awaitMsg(t, p)

	p.SetActive(true)
	awaitMsg(t, p)
	require.Equal(t, 2, feed.callCount())

	// Already active: no extra trigger.
	p.SetActive(true)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 2, feed.callCount())
}

func TestPollerIntervalFollowsActivity(t *testing.T) {
	p := New(&stubFeed{}, nil, nil, 750*time.Millisecond, 5*time.Second, 50)
	require.Equal(t, 5*time.Second, p.interval())
	p.active = true
	require.Equal(t, 750*time.Millisecond, p.interval())
}

func TestPollerStopEndsSubscription(t *testing.T) {
	feed := &stubFeed{}
	p := New(feed, nil, nil, time.Hour, time.Hour, 50)
	p.Start()
	awaitMsg(t, p)
	p.Stop()

	// The subscription unblocks with no message after Stop.
	require.Nil(t, p.WaitForNextResult()())
}
