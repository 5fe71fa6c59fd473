// Package directory resolves counterparty display identities. Sender
// tags only describe the author of incoming messages; peers we have
// only ever written to need the member listing, and anyone still
// unknown gets a synthetic placeholder rather than failing the
// aggregation pass.
package directory

import (
	"context"
	"fmt"
	"sort"
	gosync "sync"

	"github.com/nmarchal/escale/internal/api"
	"github.com/nmarchal/escale/internal/codec"
	"github.com/nmarchal/escale/internal/logging"
	"github.com/nmarchal/escale/internal/model"
)

// UserLister fetches the community member directory.
type UserLister interface {
	ListUsers(ctx context.Context) ([]api.UserProfile, error)
}

// ProfileCache persists resolved profiles across runs.
type ProfileCache interface {
	UpsertProfiles(ctx context.Context, profiles []api.UserProfile) error
	GetProfiles(ctx context.Context) ([]api.UserProfile, error)
}

// Directory is an in-memory profile index, primed from the local cache,
// refreshed from the member listing, and seeded opportunistically from
// decoded sender tags.
type Directory struct {
	lister UserLister
	cache  ProfileCache

	mu       gosync.Mutex
	profiles map[int64]model.Peer
}

// New creates a directory. Either collaborator may be nil in tests.
func New(lister UserLister, cache ProfileCache) *Directory {
	return &Directory{
		lister:   lister,
		cache:    cache,
		profiles: make(map[int64]model.Peer),
	}
}

// LoadCache primes the directory from the local profile cache.
func (d *Directory) LoadCache(ctx context.Context) error {
	if d.cache == nil {
		return nil
	}
	profiles, err := d.cache.GetProfiles(ctx)
	if err != nil {
		return fmt.Errorf("loading profile cache: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range profiles {
		d.profiles[p.ID] = peerFromProfile(p)
	}
	return nil
}

// Refresh fetches the member listing and merges it into the directory
// and the local cache. Failure is non-fatal: stale or placeholder
// identities remain usable.
func (d *Directory) Refresh(ctx context.Context) error {
	if d.lister == nil {
		return nil
	}
	users, err := d.lister.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("refreshing directory: %w", err)
	}

	d.mu.Lock()
	for _, u := range users {
		d.profiles[u.ID] = peerFromProfile(u)
	}
	d.mu.Unlock()

	if d.cache != nil {
		if err := d.cache.UpsertProfiles(ctx, users); err != nil {
			logging.Logger.Warn().Err(err).Msg("persisting profile cache failed")
		}
	}
	return nil
}

// Resolve returns the display identity for a user id, falling back to
// a User_<id> placeholder for unknown members.
func (d *Directory) Resolve(id int64) model.Peer {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.profiles[id]; ok {
		return p
	}
	return model.Peer{ID: id, Pseudo: fmt.Sprintf("User_%d", id)}
}

// Seed records a profile decoded from an incoming sender tag. Seeded
// identities never overwrite ones from the member listing mid-run, but
// they fill gaps immediately without waiting for a directory refresh.
func (d *Directory) Seed(profile codec.SenderProfile) {
	if profile.ID == 0 || profile.Pseudo == "" {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.profiles[profile.ID]; ok {
		return
	}
	d.profiles[profile.ID] = model.Peer{
		ID:     profile.ID,
		Pseudo: profile.Pseudo,
		Avatar: profile.Avatar,
	}
}

// Known returns every resolved identity, ordered by id. Used to offer
// recipients when starting a conversation.
func (d *Directory) Known() []model.Peer {
	d.mu.Lock()
	defer d.mu.Unlock()

	peers := make([]model.Peer, 0, len(d.profiles))
	for _, p := range d.profiles {
		peers = append(peers, p)
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].ID < peers[j].ID })
	return peers
}

func peerFromProfile(p api.UserProfile) model.Peer {
	return model.Peer{ID: p.ID, Pseudo: p.Pseudo, Avatar: p.Avatar}
}
