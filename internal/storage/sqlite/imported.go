package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/centerionware/smartbillsplitter-sub003/internal/models"
	"github.com/centerionware/smartbillsplitter-sub003/internal/storage"
)

// UpsertImportedBill inserts or replaces an imported bill. The share ID
// is unique: re-importing the same share overwrites the earlier copy.
func (s *SQLiteStore) UpsertImportedBill(ctx context.Context, bill *models.ImportedBill) error {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.ImportedAt == 0 {
		bill.ImportedAt = time.Now().Unix()
	}

	data, err := json.Marshal(bill)
	if err != nil {
		return fmt.Errorf("failed to encode imported bill: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO imported_bills (id, share_id, updated_at, data) VALUES (?, ?, ?, ?)
		 ON CONFLICT(share_id) DO UPDATE SET updated_at = excluded.updated_at, data = excluded.data`,
		bill.ID, bill.ShareID, bill.LastUpdatedAt, string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert imported bill: %w", err)
	}
	return nil
}

// GetImportedBill retrieves an imported bill by its local ID.
func (s *SQLiteStore) GetImportedBill(ctx context.Context, id string) (*models.ImportedBill, error) {
	return s.queryImportedBill(ctx, "SELECT data FROM imported_bills WHERE id = ?", id)
}

// GetImportedBillByShareID retrieves an imported bill by the relay
// share it tracks.
func (s *SQLiteStore) GetImportedBillByShareID(ctx context.Context, shareID string) (*models.ImportedBill, error) {
	return s.queryImportedBill(ctx, "SELECT data FROM imported_bills WHERE share_id = ?", shareID)
}

func (s *SQLiteStore) queryImportedBill(ctx context.Context, query, arg string) (*models.ImportedBill, error) {
	var data string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("imported bill %s: %w", arg, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get imported bill: %w", err)
	}

	bill := &models.ImportedBill{}
	if err := json.Unmarshal([]byte(data), bill); err != nil {
		return nil, fmt.Errorf("failed to decode imported bill: %w", err)
	}
	return bill, nil
}

// ListImportedBills returns all imported bills, most recently updated first.
func (s *SQLiteStore) ListImportedBills(ctx context.Context) ([]models.ImportedBill, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT data FROM imported_bills ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list imported bills: %w", err)
	}
	defer rows.Close()

	var bills []models.ImportedBill
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan imported bill: %w", err)
		}
		var bill models.ImportedBill
		if err := json.Unmarshal([]byte(data), &bill); err != nil {
			return nil, fmt.Errorf("failed to decode imported bill: %w", err)
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate imported bills: %w", err)
	}
	return bills, nil
}

// DeleteImportedBill removes an imported bill.
func (s *SQLiteStore) DeleteImportedBill(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM imported_bills WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete imported bill: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("imported bill %s: %w", id, storage.ErrNotFound)
	}
	return nil
}
