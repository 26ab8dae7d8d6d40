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

// CreateGroup persists a reusable participant group.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if group.CreatedAt == 0 {
		group.CreatedAt = now
	}
	if group.UpdatedAt == 0 {
		group.UpdatedAt = now
	}

	data, err := json.Marshal(group)
	if err != nil {
		return fmt.Errorf("failed to encode group: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO groups (id, name, data) VALUES (?, ?, ?)",
		group.ID, group.Name, string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM groups WHERE id = ?", id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	group := &models.Group{}
	if err := json.Unmarshal([]byte(data), group); err != nil {
		return nil, fmt.Errorf("failed to decode group: %w", err)
	}
	return group, nil
}

// ListGroups returns all groups sorted by name.
func (s *SQLiteStore) ListGroups(ctx context.Context) ([]models.Group, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT data FROM groups ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		var group models.Group
		if err := json.Unmarshal([]byte(data), &group); err != nil {
			return nil, fmt.Errorf("failed to decode group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return groups, nil
}

// UpdateGroup replaces an existing group.
func (s *SQLiteStore) UpdateGroup(ctx context.Context, group *models.Group) error {
	group.UpdatedAt = time.Now().Unix()

	data, err := json.Marshal(group)
	if err != nil {
		return fmt.Errorf("failed to encode group: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE groups SET name = ?, data = ? WHERE id = ?",
		group.Name, string(data), group.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("group %s: %w", group.ID, storage.ErrNotFound)
	}
	return nil
}

// DeleteGroup removes a group.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("group %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// CreateRecurringBill persists a recurring bill template.
func (s *SQLiteStore) CreateRecurringBill(ctx context.Context, rb *models.RecurringBill) error {
	if rb.ID == "" {
		rb.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if rb.CreatedAt == 0 {
		rb.CreatedAt = now
	}
	if rb.UpdatedAt == 0 {
		rb.UpdatedAt = now
	}

	data, err := json.Marshal(rb)
	if err != nil {
		return fmt.Errorf("failed to encode recurring bill: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO recurring_bills (id, next_date, data) VALUES (?, ?, ?)",
		rb.ID, rb.NextDate, string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to insert recurring bill: %w", err)
	}
	return nil
}

// ListRecurringBills returns all recurring templates ordered by next due date.
func (s *SQLiteStore) ListRecurringBills(ctx context.Context) ([]models.RecurringBill, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT data FROM recurring_bills ORDER BY next_date")
	if err != nil {
		return nil, fmt.Errorf("failed to list recurring bills: %w", err)
	}
	defer rows.Close()

	var templates []models.RecurringBill
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan recurring bill: %w", err)
		}
		var rb models.RecurringBill
		if err := json.Unmarshal([]byte(data), &rb); err != nil {
			return nil, fmt.Errorf("failed to decode recurring bill: %w", err)
		}
		templates = append(templates, rb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recurring bills: %w", err)
	}
	return templates, nil
}

// UpdateRecurringBill replaces an existing template.
func (s *SQLiteStore) UpdateRecurringBill(ctx context.Context, rb *models.RecurringBill) error {
	rb.UpdatedAt = time.Now().Unix()

	data, err := json.Marshal(rb)
	if err != nil {
		return fmt.Errorf("failed to encode recurring bill: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE recurring_bills SET next_date = ?, data = ? WHERE id = ?",
		rb.NextDate, string(data), rb.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update recurring bill: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("recurring bill %s: %w", rb.ID, storage.ErrNotFound)
	}
	return nil
}

// DeleteRecurringBill removes a template.
func (s *SQLiteStore) DeleteRecurringBill(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM recurring_bills WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete recurring bill: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("recurring bill %s: %w", id, storage.ErrNotFound)
	}
	return nil
}
