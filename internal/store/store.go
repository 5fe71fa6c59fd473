// Package store is the local cache layer: the last-fetched notification
// feed (so conversations render before the first poll completes), the
// mark-read journal, and cached member profiles. The backend remains
// the sole authority; everything here is disposable.
package store

import (
	"context"

	"github.com/nmarchal/escale/internal/api"
)

// Store defines the persistence interface for the feed cache, the
// read journal, and the profile cache.
type Store interface {
	// === Feed cache ===

	UpsertNotifications(ctx context.Context, records []api.Notification) error
	GetNotifications(ctx context.Context) ([]api.Notification, error)

	// === Read journal ===

	ReadLog(ctx context.Context) ([]int64, error)
	AppendReadLog(ctx context.Context, id int64) error

	// === Profile cache ===

	UpsertProfiles(ctx context.Context, profiles []api.UserProfile) error
	GetProfiles(ctx context.Context) ([]api.UserProfile, error)

	Close() error
}
