package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/centerionware/smartbillsplitter-sub003/internal/models"
	"github.com/centerionware/smartbillsplitter-sub003/internal/storage"
)

// signingKeyName is the device_keys row holding the ed25519 seed.
const signingKeyName = "signing-key-seed"

// GetSettings returns the device settings, falling back to defaults
// when nothing has been saved yet.
func (s *SQLiteStore) GetSettings(ctx context.Context) (*models.Settings, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM settings WHERE id = 1").Scan(&data)
	if err == sql.ErrNoRows {
		return &models.Settings{
			DefaultSplitMode:     models.SplitEqually,
			NotificationsEnabled: true,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	settings := &models.Settings{}
	if err := json.Unmarshal([]byte(data), settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	return settings, nil
}

// SaveSettings replaces the device settings.
func (s *SQLiteStore) SaveSettings(ctx context.Context, settings *models.Settings) error {
	settings.UpdatedAt = time.Now().Unix()

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (id, data) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// LoadSigningKeySeed returns the persisted signing key seed.
func (s *SQLiteStore) LoadSigningKeySeed(ctx context.Context) ([]byte, error) {
	var material []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT material FROM device_keys WHERE name = ?", signingKeyName,
	).Scan(&material)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("signing key: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key: %w", err)
	}
	return material, nil
}

// SaveSigningKeySeed persists the signing key seed.
func (s *SQLiteStore) SaveSigningKeySeed(ctx context.Context, seed []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO device_keys (name, material, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET material = excluded.material`,
		signingKeyName, seed, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save signing key: %w", err)
	}
	return nil
}
