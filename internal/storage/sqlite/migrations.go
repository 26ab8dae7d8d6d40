package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Bills are stored as JSON documents with a few extracted columns for
// filtering; the nested participant/item structure round-trips through
// the document instead of a table per level.
const schema = `
CREATE TABLE IF NOT EXISTS bills (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    share_id TEXT,
    share_status TEXT,
    has_image INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL,
    data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS imported_bills (
    id TEXT PRIMARY KEY,
    share_id TEXT NOT NULL,
    updated_at INTEGER NOT NULL,
    data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS recurring_bills (
    id TEXT PRIMARY KEY,
    next_date TEXT NOT NULL,
    data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS device_keys (
    name TEXT PRIMARY KEY,
    material BLOB NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bills_status ON bills(status);
CREATE INDEX IF NOT EXISTS idx_bills_share_id ON bills(share_id);
CREATE INDEX IF NOT EXISTS idx_bills_updated_at ON bills(updated_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_imported_bills_share_id ON imported_bills(share_id);
CREATE INDEX IF NOT EXISTS idx_recurring_bills_next_date ON recurring_bills(next_date);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
