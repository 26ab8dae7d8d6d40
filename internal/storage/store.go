// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/centerionware/smartbillsplitter-sub003/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
// Callers that need to tell "missing" apart from "broken" should check
// for it with errors.Is.
var ErrNotFound = errors.New("record not found")

// BillFilter narrows a ListBills call. Zero value means no filtering.
type BillFilter struct {
	// Status keeps only bills in the given lifecycle state.
	Status models.BillStatus
	// SharedOnly keeps only bills that hold share credentials.
	SharedOnly bool
	// WithImageOnly keeps only bills still carrying a receipt image.
	WithImageOnly bool
}

// Store defines the interface for local persistence.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the layers above it.
type Store interface {
	// CreateBill persists a new bill. Missing ID and timestamps are
	// populated on the passed-in bill.
	CreateBill(ctx context.Context, bill *models.Bill) error

	// GetBill retrieves a bill by its ID. Returns ErrNotFound if the
	// bill does not exist.
	GetBill(ctx context.Context, billID string) (*models.Bill, error)

	// UpdateBill replaces an existing bill and bumps its UpdatedAt.
	// Returns ErrNotFound if the bill does not exist.
	UpdateBill(ctx context.Context, bill *models.Bill) error

	// DeleteBill removes a bill. Returns ErrNotFound if it does not
	// exist.
	DeleteBill(ctx context.Context, billID string) error

	// ListBills returns bills matching the filter, most recently
	// updated first.
	ListBills(ctx context.Context, filter BillFilter) ([]models.Bill, error)

	// UpsertImportedBill inserts or replaces a bill imported from
	// someone else's share.
	UpsertImportedBill(ctx context.Context, bill *models.ImportedBill) error

	// GetImportedBill retrieves an imported bill by its local ID.
	GetImportedBill(ctx context.Context, id string) (*models.ImportedBill, error)

	// GetImportedBillByShareID retrieves an imported bill by the relay
	// share it tracks. Returns ErrNotFound if none matches.
	GetImportedBillByShareID(ctx context.Context, shareID string) (*models.ImportedBill, error)

	// ListImportedBills returns all imported bills, most recently
	// updated first.
	ListImportedBills(ctx context.Context) ([]models.ImportedBill, error)

	// DeleteImportedBill removes an imported bill.
	DeleteImportedBill(ctx context.Context, id string) error

	// CreateGroup persists a reusable participant group.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group by ID. Returns ErrNotFound if absent.
	GetGroup(ctx context.Context, id string) (*models.Group, error)

	// ListGroups returns all groups sorted by name.
	ListGroups(ctx context.Context) ([]models.Group, error)

	// UpdateGroup replaces an existing group.
	UpdateGroup(ctx context.Context, group *models.Group) error

	// DeleteGroup removes a group.
	DeleteGroup(ctx context.Context, id string) error

	// CreateRecurringBill persists a recurring bill template.
	CreateRecurringBill(ctx context.Context, rb *models.RecurringBill) error

	// ListRecurringBills returns all recurring templates ordered by
	// next due date.
	ListRecurringBills(ctx context.Context) ([]models.RecurringBill, error)

	// UpdateRecurringBill replaces an existing template.
	UpdateRecurringBill(ctx context.Context, rb *models.RecurringBill) error

	// DeleteRecurringBill removes a template.
	DeleteRecurringBill(ctx context.Context, id string) error

	// GetSettings returns the device settings. When none were saved
	// yet a usable default is returned, never ErrNotFound.
	GetSettings(ctx context.Context) (*models.Settings, error)

	// SaveSettings replaces the device settings.
	SaveSettings(ctx context.Context, settings *models.Settings) error

	// LoadSigningKeySeed returns the persisted signing key seed, or
	// ErrNotFound when the device has not generated one yet.
	LoadSigningKeySeed(ctx context.Context) ([]byte, error)

	// SaveSigningKeySeed persists the signing key seed.
	SaveSigningKeySeed(ctx context.Context, seed []byte) error

	// Close releases any resources held by the store.
	Close() error
}
