package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/centerionware/smartbillsplitter-sub003/internal/models"
	"github.com/centerionware/smartbillsplitter-sub003/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "billsplitter-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func splitValue(v float64) *float64 { return &v }

func TestSQLiteStoreBills(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateBill generates IDs and timestamps", func(t *testing.T) {
		bill := &models.Bill{
			Description: "Dinner",
			TotalAmount: 100.0,
			Date:        "2025-06-01",
			Participants: []models.Participant{
				{Name: "Myself"},
				{Name: "Bob", SplitValue: splitValue(40.0)},
			},
			Items: []models.ReceiptItem{
				{Name: "Pizza", Price: 60.0},
			},
		}

		if err := store.CreateBill(ctx, bill); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}

		if bill.ID == "" {
			t.Error("Expected bill ID to be generated")
		}
		if bill.CreatedAt == 0 || bill.UpdatedAt == 0 {
			t.Error("Expected timestamps to be set")
		}
		if bill.Status != models.BillActive {
			t.Errorf("Status = %q, want %q", bill.Status, models.BillActive)
		}
		for _, p := range bill.Participants {
			if p.ID == "" {
				t.Error("Expected participant IDs to be generated")
			}
		}
		for _, item := range bill.Items {
			if item.ID == "" {
				t.Error("Expected item IDs to be generated")
			}
		}
	})

	t.Run("GetBill round-trips the full document", func(t *testing.T) {
		original := &models.Bill{
			Description: "Ski trip",
			TotalAmount: 340.5,
			Date:        "2025-01-15",
			Participants: []models.Participant{
				{Name: "Myself", AmountOwed: 170.25, Paid: true},
				{Name: "Cara", AmountOwed: 170.25, SplitValue: splitValue(50.0), Phone: "+15550001111"},
			},
			Items: []models.ReceiptItem{
				{Name: "Lift tickets", Price: 240.5, AssignedTo: []string{"p1", "p2"}},
				{Name: "Lunch", Price: 100.0, AssignedTo: []string{"p1"}},
			},
			ReceiptImage:   "data:image/jpeg;base64,/9j/4AAQ",
			AdditionalInfo: map[string]string{"venue": "Alta"},
			ShareInfo: &models.ShareInfo{
				ShareID:     "share-abc",
				UpdateToken: "token-xyz",
				KeyB64:      "key-material",
			},
			ShareStatus: models.ShareLive,
		}

		if err := store.CreateBill(ctx, original); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}

		retrieved, err := store.GetBill(ctx, original.ID)
		if err != nil {
			t.Fatalf("GetBill failed: %v", err)
		}

		if retrieved.Description != original.Description {
			t.Errorf("Description = %q, want %q", retrieved.Description, original.Description)
		}
		if retrieved.TotalAmount != original.TotalAmount {
			t.Errorf("TotalAmount = %v, want %v", retrieved.TotalAmount, original.TotalAmount)
		}
		if len(retrieved.Participants) != 2 {
			t.Fatalf("Participants = %d, want 2", len(retrieved.Participants))
		}
		cara := retrieved.Participants[1]
		if cara.SplitValue == nil || *cara.SplitValue != 50.0 {
			t.Errorf("Cara SplitValue = %v, want 50.0", cara.SplitValue)
		}
		if cara.Phone != "+15550001111" {
			t.Errorf("Cara Phone = %q, want +15550001111", cara.Phone)
		}
		if len(retrieved.Items) != 2 || len(retrieved.Items[0].AssignedTo) != 2 {
			t.Error("Items did not round-trip")
		}
		if retrieved.ShareInfo == nil || retrieved.ShareInfo.UpdateToken != "token-xyz" {
			t.Error("ShareInfo did not round-trip")
		}
		if retrieved.ShareStatus != models.ShareLive {
			t.Errorf("ShareStatus = %q, want %q", retrieved.ShareStatus, models.ShareLive)
		}
		if retrieved.AdditionalInfo["venue"] != "Alta" {
			t.Error("AdditionalInfo did not round-trip")
		}
	})

	t.Run("GetBill returns ErrNotFound for missing bill", func(t *testing.T) {
		_, err := store.GetBill(ctx, "nonexistent-id")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetBill error = %v, want ErrNotFound", err)
		}
	})

	t.Run("UpdateBill persists changes and bumps UpdatedAt", func(t *testing.T) {
		bill := &models.Bill{
			Description:  "Groceries",
			TotalAmount:  45.0,
			Participants: []models.Participant{{Name: "Myself"}},
		}
		if err := store.CreateBill(ctx, bill); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}
		created := bill.UpdatedAt

		bill.Description = "Groceries (corrected)"
		bill.Participants[0].Paid = true
		if err := store.UpdateBill(ctx, bill); err != nil {
			t.Fatalf("UpdateBill failed: %v", err)
		}
		if bill.UpdatedAt < created {
			t.Errorf("UpdatedAt = %d, want >= %d", bill.UpdatedAt, created)
		}

		retrieved, err := store.GetBill(ctx, bill.ID)
		if err != nil {
			t.Fatalf("GetBill failed: %v", err)
		}
		if retrieved.Description != "Groceries (corrected)" {
			t.Errorf("Description = %q after update", retrieved.Description)
		}
		if !retrieved.Participants[0].Paid {
			t.Error("Paid flag did not persist")
		}
	})

	t.Run("UpdateBill returns ErrNotFound for missing bill", func(t *testing.T) {
		err := store.UpdateBill(ctx, &models.Bill{ID: "ghost"})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("UpdateBill error = %v, want ErrNotFound", err)
		}
	})

	t.Run("DeleteBill removes the bill", func(t *testing.T) {
		bill := &models.Bill{Description: "To delete", Participants: []models.Participant{{Name: "Myself"}}}
		if err := store.CreateBill(ctx, bill); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}
		if err := store.DeleteBill(ctx, bill.ID); err != nil {
			t.Fatalf("DeleteBill failed: %v", err)
		}
		if _, err := store.GetBill(ctx, bill.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetBill after delete error = %v, want ErrNotFound", err)
		}
		if err := store.DeleteBill(ctx, bill.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("second DeleteBill error = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLiteStoreListBills(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seed := []*models.Bill{
		{
			Description:  "active shared with image",
			Status:       models.BillActive,
			Participants: []models.Participant{{Name: "Myself"}},
			ReceiptImage: "data:image/png;base64,AAAA",
			ShareInfo:    &models.ShareInfo{ShareID: "s1", UpdateToken: "t1", KeyB64: "k1"},
			ShareStatus:  models.ShareLive,
		},
		{
			Description:  "active unshared",
			Status:       models.BillActive,
			Participants: []models.Participant{{Name: "Myself"}},
		},
		{
			Description:  "archived shared",
			Status:       models.BillArchived,
			Participants: []models.Participant{{Name: "Myself"}},
			ShareInfo:    &models.ShareInfo{ShareID: "s2", UpdateToken: "t2", KeyB64: "k2"},
			ShareStatus:  models.ShareLive,
		},
	}
	for _, b := range seed {
		if err := store.CreateBill(ctx, b); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}
	}

	t.Run("no filter returns everything", func(t *testing.T) {
		bills, err := store.ListBills(ctx, storage.BillFilter{})
		if err != nil {
			t.Fatalf("ListBills failed: %v", err)
		}
		if len(bills) != 3 {
			t.Errorf("len = %d, want 3", len(bills))
		}
	})

	t.Run("status filter", func(t *testing.T) {
		bills, err := store.ListBills(ctx, storage.BillFilter{Status: models.BillArchived})
		if err != nil {
			t.Fatalf("ListBills failed: %v", err)
		}
		if len(bills) != 1 || bills[0].Description != "archived shared" {
			t.Errorf("got %d bills, want the archived one", len(bills))
		}
	})

	t.Run("shared only", func(t *testing.T) {
		bills, err := store.ListBills(ctx, storage.BillFilter{SharedOnly: true})
		if err != nil {
			t.Fatalf("ListBills failed: %v", err)
		}
		if len(bills) != 2 {
			t.Errorf("len = %d, want 2", len(bills))
		}
	})

	t.Run("active shared with image", func(t *testing.T) {
		bills, err := store.ListBills(ctx, storage.BillFilter{
			Status:        models.BillActive,
			SharedOnly:    true,
			WithImageOnly: true,
		})
		if err != nil {
			t.Fatalf("ListBills failed: %v", err)
		}
		if len(bills) != 1 || bills[0].Description != "active shared with image" {
			t.Errorf("got %d bills, want exactly the shared+image one", len(bills))
		}
	})

	t.Run("image flag follows updates", func(t *testing.T) {
		bills, err := store.ListBills(ctx, storage.BillFilter{WithImageOnly: true})
		if err != nil {
			t.Fatalf("ListBills failed: %v", err)
		}
		if len(bills) != 1 {
			t.Fatalf("len = %d, want 1", len(bills))
		}

		bill := bills[0]
		bill.ReceiptImage = ""
		if err := store.UpdateBill(ctx, &bill); err != nil {
			t.Fatalf("UpdateBill failed: %v", err)
		}

		bills, err = store.ListBills(ctx, storage.BillFilter{WithImageOnly: true})
		if err != nil {
			t.Fatalf("ListBills failed: %v", err)
		}
		if len(bills) != 0 {
			t.Errorf("len = %d after stripping image, want 0", len(bills))
		}
	})
}

func TestSQLiteStoreImportedBills(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	imported := &models.ImportedBill{
		ShareID:          "share-123",
		KeyB64:           "exported-key",
		Bill:             models.Bill{Description: "Their dinner", TotalAmount: 50},
		CreatorName:      "Alice",
		CreatorPublicKey: "pubkey-b64",
		Status:           models.ShareLive,
		LastUpdatedAt:    100,
	}

	t.Run("upsert and fetch by share ID", func(t *testing.T) {
		if err := store.UpsertImportedBill(ctx, imported); err != nil {
			t.Fatalf("UpsertImportedBill failed: %v", err)
		}
		if imported.ID == "" {
			t.Error("Expected ID to be generated")
		}

		got, err := store.GetImportedBillByShareID(ctx, "share-123")
		if err != nil {
			t.Fatalf("GetImportedBillByShareID failed: %v", err)
		}
		if got.CreatorName != "Alice" || got.Bill.Description != "Their dinner" {
			t.Error("imported bill did not round-trip")
		}
	})

	t.Run("re-import replaces the same share", func(t *testing.T) {
		update := &models.ImportedBill{
			ID:               imported.ID,
			ShareID:          "share-123",
			KeyB64:           "exported-key",
			Bill:             models.Bill{Description: "Their dinner v2", TotalAmount: 60},
			CreatorName:      "Alice",
			CreatorPublicKey: "pubkey-b64",
			Status:           models.ShareLive,
			LastUpdatedAt:    200,
		}
		if err := store.UpsertImportedBill(ctx, update); err != nil {
			t.Fatalf("UpsertImportedBill failed: %v", err)
		}

		all, err := store.ListImportedBills(ctx)
		if err != nil {
			t.Fatalf("ListImportedBills failed: %v", err)
		}
		if len(all) != 1 {
			t.Fatalf("len = %d, want 1 (upsert should replace)", len(all))
		}
		if all[0].Bill.Description != "Their dinner v2" {
			t.Errorf("Description = %q, want v2", all[0].Bill.Description)
		}
	})

	t.Run("delete", func(t *testing.T) {
		got, err := store.GetImportedBillByShareID(ctx, "share-123")
		if err != nil {
			t.Fatalf("GetImportedBillByShareID failed: %v", err)
		}
		if err := store.DeleteImportedBill(ctx, got.ID); err != nil {
			t.Fatalf("DeleteImportedBill failed: %v", err)
		}
		if _, err := store.GetImportedBill(ctx, got.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetImportedBill after delete error = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLiteStoreGroupsAndRecurring(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("group CRUD", func(t *testing.T) {
		group := &models.Group{
			Name: "Roommates",
			Participants: []models.Participant{
				{Name: "Myself"}, {Name: "Bob"}, {Name: "Cara"},
			},
		}
		if err := store.CreateGroup(ctx, group); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}

		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if len(got.Participants) != 3 {
			t.Errorf("Participants = %d, want 3", len(got.Participants))
		}

		got.Name = "Old roommates"
		if err := store.UpdateGroup(ctx, got); err != nil {
			t.Fatalf("UpdateGroup failed: %v", err)
		}

		groups, err := store.ListGroups(ctx)
		if err != nil {
			t.Fatalf("ListGroups failed: %v", err)
		}
		if len(groups) != 1 || groups[0].Name != "Old roommates" {
			t.Error("group update did not persist")
		}

		if err := store.DeleteGroup(ctx, group.ID); err != nil {
			t.Fatalf("DeleteGroup failed: %v", err)
		}
		if _, err := store.GetGroup(ctx, group.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetGroup after delete error = %v, want ErrNotFound", err)
		}
	})

	t.Run("recurring bills ordered by next date", func(t *testing.T) {
		later := &models.RecurringBill{
			Template:  models.Bill{Description: "Rent"},
			Frequency: models.RecurMonthly,
			NextDate:  "2025-08-01",
		}
		sooner := &models.RecurringBill{
			Template:  models.Bill{Description: "Internet"},
			Frequency: models.RecurMonthly,
			NextDate:  "2025-07-01",
		}
		if err := store.CreateRecurringBill(ctx, later); err != nil {
			t.Fatalf("CreateRecurringBill failed: %v", err)
		}
		if err := store.CreateRecurringBill(ctx, sooner); err != nil {
			t.Fatalf("CreateRecurringBill failed: %v", err)
		}

		templates, err := store.ListRecurringBills(ctx)
		if err != nil {
			t.Fatalf("ListRecurringBills failed: %v", err)
		}
		if len(templates) != 2 {
			t.Fatalf("len = %d, want 2", len(templates))
		}
		if templates[0].Template.Description != "Internet" {
			t.Errorf("first template = %q, want Internet (due sooner)", templates[0].Template.Description)
		}

		sooner.NextDate = "2025-09-01"
		if err := store.UpdateRecurringBill(ctx, sooner); err != nil {
			t.Fatalf("UpdateRecurringBill failed: %v", err)
		}
		if err := store.DeleteRecurringBill(ctx, later.ID); err != nil {
			t.Fatalf("DeleteRecurringBill failed: %v", err)
		}
	})
}

func TestSQLiteStoreSettingsAndKeys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("settings default before first save", func(t *testing.T) {
		settings, err := store.GetSettings(ctx)
		if err != nil {
			t.Fatalf("GetSettings failed: %v", err)
		}
		if settings.DefaultSplitMode != models.SplitEqually {
			t.Errorf("DefaultSplitMode = %q, want equally", settings.DefaultSplitMode)
		}
		if !settings.NotificationsEnabled {
			t.Error("NotificationsEnabled = false, want true by default")
		}
	})

	t.Run("settings save and reload", func(t *testing.T) {
		settings := &models.Settings{
			MyDisplayName:    "Sam",
			DefaultSplitMode: models.SplitByAmount,
		}
		if err := store.SaveSettings(ctx, settings); err != nil {
			t.Fatalf("SaveSettings failed: %v", err)
		}

		got, err := store.GetSettings(ctx)
		if err != nil {
			t.Fatalf("GetSettings failed: %v", err)
		}
		if got.MyDisplayName != "Sam" || got.DefaultSplitMode != models.SplitByAmount {
			t.Error("settings did not round-trip")
		}

		// Saving again overwrites the singleton row.
		got.MyDisplayName = "Sam R."
		if err := store.SaveSettings(ctx, got); err != nil {
			t.Fatalf("SaveSettings failed: %v", err)
		}
		again, err := store.GetSettings(ctx)
		if err != nil {
			t.Fatalf("GetSettings failed: %v", err)
		}
		if again.MyDisplayName != "Sam R." {
			t.Errorf("MyDisplayName = %q, want Sam R.", again.MyDisplayName)
		}
	})

	t.Run("signing key seed", func(t *testing.T) {
		if _, err := store.LoadSigningKeySeed(ctx); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("LoadSigningKeySeed error = %v, want ErrNotFound before save", err)
		}

		seed := []byte("0123456789abcdef0123456789abcdef")
		if err := store.SaveSigningKeySeed(ctx, seed); err != nil {
			t.Fatalf("SaveSigningKeySeed failed: %v", err)
		}

		got, err := store.LoadSigningKeySeed(ctx)
		if err != nil {
			t.Fatalf("LoadSigningKeySeed failed: %v", err)
		}
		if string(got) != string(seed) {
			t.Error("seed did not round-trip")
		}
	})
}
