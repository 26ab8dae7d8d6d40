package relay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

var (
	// ErrShareNotFound is returned when no share exists under an ID.
	ErrShareNotFound = errors.New("share not found")
	// ErrShareExists is returned when creating a share whose ID is
	// already taken.
	ErrShareExists = errors.New("share already exists")
)

const shareSchema = `
CREATE TABLE IF NOT EXISTS shares (
    id TEXT PRIMARY KEY,
    data TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_shares_expires_at ON shares(expires_at);
`

// ShareRecord is one stored share: an opaque encrypted blob plus the
// bookkeeping the relay needs to expire it.
type ShareRecord struct {
	ID        string `db:"id"`
	Data      string `db:"data"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
	ExpiresAt int64  `db:"expires_at"`
}

// Expired reports whether the record's TTL has lapsed.
func (r *ShareRecord) Expired() bool {
	return r.ExpiresAt <= time.Now().Unix()
}

// ShareStore persists shares in SQLite.
type ShareStore struct {
	db *sqlx.DB
}

// NewShareStore opens (creating if needed) the share database.
func NewShareStore(dbPath string) (*ShareStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open share database: %w", err)
	}
	if _, err := db.Exec(shareSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run share migrations: %w", err)
	}
	return &ShareStore{db: db}, nil
}

// Close closes the database connection.
func (s *ShareStore) Close() error {
	return s.db.Close()
}

// Create inserts a new share with the given TTL.
func (s *ShareStore) Create(ctx context.Context, id, data string, ttl time.Duration) (*ShareRecord, error) {
	now := time.Now().Unix()
	rec := &ShareRecord{
		ID:        id,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now + int64(ttl.Seconds()),
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO shares (id, data, created_at, updated_at, expires_at)
		 VALUES (:id, :data, :created_at, :updated_at, :expires_at)`,
		rec,
	)
	if err != nil {
		// The only constraint on the table is the primary key.
		if existing, getErr := s.Get(ctx, id); getErr == nil && existing != nil {
			return nil, ErrShareExists
		}
		return nil, fmt.Errorf("failed to insert share: %w", err)
	}
	return rec, nil
}

// Get fetches a share by ID. Expired records are still returned; the
// caller decides how to report them.
func (s *ShareStore) Get(ctx context.Context, id string) (*ShareRecord, error) {
	var rec ShareRecord
	err := s.db.GetContext(ctx, &rec, "SELECT * FROM shares WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShareNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get share: %w", err)
	}
	return &rec, nil
}

// Update replaces a share's payload and pushes its expiry out by ttl.
func (s *ShareStore) Update(ctx context.Context, id, data string, ttl time.Duration) (*ShareRecord, error) {
	now := time.Now().Unix()
	res, err := s.db.ExecContext(ctx,
		"UPDATE shares SET data = ?, updated_at = ?, expires_at = ? WHERE id = ?",
		data, now, now+int64(ttl.Seconds()), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update share: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return nil, ErrShareNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes a share outright.
func (s *ShareStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM shares WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete share: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return ErrShareNotFound
	}
	return nil
}

// DeleteExpired purges shares past their expiry and returns how many
// were removed.
func (s *ShareStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM shares WHERE expires_at <= ?", time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired shares: %w", err)
	}
	return res.RowsAffected()
}

// RunSweeper purges expired shares on a fixed interval until the
// context is cancelled. Run it in its own goroutine.
func (s *ShareStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.DeleteExpired(ctx)
			if err != nil {
				slog.Error("Share sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("Expired shares removed", "count", n)
			}
		}
	}
}
