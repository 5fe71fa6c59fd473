package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nmarchal/escale/internal/api"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("recording migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// notificationRow maps the notifications table.
type notificationRow struct {
	ID               int64     `db:"id"`
	UserID           int64     `db:"user_id"`
	Content          string    `db:"content"`
	IsRead           bool      `db:"is_read"`
	CreatedAt        time.Time `db:"created_at"`
	CreatedAtDisplay string    `db:"created_at_display"`
	FetchedAt        time.Time `db:"fetched_at"`
}

// profileRow maps the profiles table.
type profileRow struct {
	ID        int64     `db:"id"`
	Pseudo    string    `db:"pseudo"`
	FirstName string    `db:"firstname"`
	LastName  string    `db:"lastname"`
	Avatar    string    `db:"avatar"`
	UpdatedAt time.Time `db:"updated_at"`
}

// UpsertNotifications inserts or replaces a batch of feed records.
func (s *SQLiteStore) UpsertNotifications(ctx context.Context, records []api.Notification) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO notifications (
			id, user_id, content, is_read,
			created_at, created_at_display, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, rec := range records {
		_, err = stmt.ExecContext(ctx,
			rec.ID, rec.UserID, rec.Content, rec.IsRead,
			rec.CreatedAt.UTC(), rec.CreatedAtDisplay, now,
		)
		if err != nil {
			return fmt.Errorf("upserting notification %d: %w", rec.ID, err)
		}
	}

	return tx.Commit()
}

// GetNotifications retrieves the cached feed, oldest first.
func (s *SQLiteStore) GetNotifications(ctx context.Context) ([]api.Notification, error) {
	var rows []notificationRow
	err := s.db.SelectContext(
		ctx, &rows,
		"SELECT * FROM notifications ORDER BY created_at ASC, id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}

	records := make([]api.Notification, 0, len(rows))
	for _, r := range rows {
		records = append(records, api.Notification{
			ID:               r.ID,
			UserID:           r.UserID,
			Content:          r.Content,
			IsRead:           r.IsRead,
			CreatedAt:        r.CreatedAt,
			CreatedAtDisplay: r.CreatedAtDisplay,
		})
	}
	return records, nil
}

// ReadLog returns the ids of all records whose read transition has been
// confirmed by the backend.
func (s *SQLiteStore) ReadLog(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(
		ctx, &ids,
		"SELECT notification_id FROM read_log ORDER BY notification_id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("querying read log: %w", err)
	}
	return ids, nil
}

// AppendReadLog records a confirmed read transition. Re-appending an id
// is a no-op.
func (s *SQLiteStore) AppendReadLog(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(
		ctx,
		"INSERT OR IGNORE INTO read_log (notification_id, marked_at) VALUES (?, ?)",
		id, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("appending read log for %d: %w", id, err)
	}
	return nil
}

// UpsertProfiles inserts or replaces a batch of member profiles.
func (s *SQLiteStore) UpsertProfiles(ctx context.Context, profiles []api.UserProfile) error {
	if len(profiles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO profiles (
			id, pseudo, firstname, lastname, avatar, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, p := range profiles {
		_, err = stmt.ExecContext(ctx, p.ID, p.Pseudo, p.FirstName, p.LastName, p.Avatar, now)
		if err != nil {
			return fmt.Errorf("upserting profile %d: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// GetProfiles retrieves all cached member profiles.
func (s *SQLiteStore) GetProfiles(ctx context.Context) ([]api.UserProfile, error) {
	var rows []profileRow
	err := s.db.SelectContext(ctx, &rows, "SELECT * FROM profiles ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("querying profiles: %w", err)
	}

	profiles := make([]api.UserProfile, 0, len(rows))
	for _, r := range rows {
		profiles = append(profiles, api.UserProfile{
			ID:        r.ID,
			Pseudo:    r.Pseudo,
			FirstName: r.FirstName,
			LastName:  r.LastName,
			Avatar:    r.Avatar,
		})
	}
	return profiles, nil
}
