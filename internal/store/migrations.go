package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id                 INTEGER PRIMARY KEY,
	user_id            INTEGER NOT NULL,
	content            TEXT NOT NULL DEFAULT '',
	is_read            INTEGER NOT NULL DEFAULT 0,
	created_at         DATETIME NOT NULL,
	created_at_display TEXT NOT NULL DEFAULT '',
	fetched_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS read_log (
	notification_id INTEGER PRIMARY KEY,
	marked_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS profiles (
	id         INTEGER PRIMARY KEY,
	pseudo     TEXT NOT NULL DEFAULT '',
	firstname  TEXT NOT NULL DEFAULT '',
	lastname   TEXT NOT NULL DEFAULT '',
	avatar     TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id);
CREATE INDEX IF NOT EXISTS idx_notifications_created_at ON notifications(created_at);
`,
	},
}
