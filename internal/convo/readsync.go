package convo

import (
	"context"
	gosync "sync"

	"github.com/nmarchal/escale/internal/logging"
	"github.com/nmarchal/escale/internal/model"
)

// ReadMarker requests the one-way false→true read transition on a
// notification record.
type ReadMarker interface {
	MarkRead(ctx context.Context, id int64) error
}

// ReadJournal persists which record ids have been successfully marked
// read, so restarts never re-fire a transition the backend already saw.
type ReadJournal interface {
	ReadLog(ctx context.Context) ([]int64, error)
	AppendReadLog(ctx context.Context, id int64) error
}

// ReadSyncer drives incoming unread messages to read, exactly once per
// record id across any number of polling passes. A failed request
// re-arms the id so the next pass retries it; the record's unread state
// is unchanged on the backend, so polling self-heals.
type ReadSyncer struct {
	marker  ReadMarker
	journal ReadJournal

	mu        gosync.Mutex
	requested map[int64]bool
}

// NewReadSyncer creates a syncer and primes its requested set from the
// journal.
func NewReadSyncer(ctx context.Context, marker ReadMarker, journal ReadJournal) (*ReadSyncer, error) {
	s := &ReadSyncer{
		marker:    marker,
		journal:   journal,
		requested: make(map[int64]bool),
	}

	if journal != nil {
		ids, err := journal.ReadLog(ctx)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			s.requested[id] = true
		}
	}

	return s, nil
}

// Sweep requests the read transition for every incoming, unread,
// authoritative message in the given conversations that has not been
// requested before. It returns the number of transitions requested.
// Requests are fire-and-forget from the caller's perspective; failures
// are logged and retried on a later sweep.
func (s *ReadSyncer) Sweep(ctx context.Context, convs []model.Conversation) int {
	var ids []int64
	for _, c := range convs {
		for _, m := range c.Messages {
			if m.Direction != model.DirectionIncoming || m.Read {
				continue
			}
			if m.ID.IsLocal() {
				continue
			}
			if s.claim(m.ID.Remote()) {
				ids = append(ids, m.ID.Remote())
			}
		}
	}

	for _, id := range ids {
		if err := s.marker.MarkRead(ctx, id); err != nil {
			logging.Logger.Warn().
				Err(err).
				Int64("record", id).
				Msg("mark-read failed, will retry next pass")
			s.release(id)
			continue
		}
		if s.journal != nil {
			if err := s.journal.AppendReadLog(ctx, id); err != nil {
				logging.Logger.Warn().
					Err(err).
					Int64("record", id).
					Msg("journaling read transition failed")
			}
		}
	}

	return len(ids)
}

// claim reserves an id for a mark-read request. Returns false if the id
// was already requested.
func (s *ReadSyncer) claim(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.requested[id] {
		return false
	}
	s.requested[id] = true
	return true
}

// release re-arms an id after a failed request.
func (s *ReadSyncer) release(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.requested, id)
}
