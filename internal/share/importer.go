package share

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/centerionware/smartbillsplitter-sub003/internal/crypto"
	"github.com/centerionware/smartbillsplitter-sub003/internal/models"
	"github.com/centerionware/smartbillsplitter-sub003/internal/storage"
)

// Importer turns share links into read-only local copies of other people's
// bills and keeps those copies fresh.
type Importer struct {
	store  storage.Store
	client *Client
}

// NewImporter returns an importer fetching through client.
func NewImporter(store storage.Store, client *Client) *Importer {
	return &Importer{store: store, client: client}
}

// ImportFromURL opens a share link: it fetches the blob, decrypts it with
// the key from the fragment, verifies the signature, and stores the
// snapshot. Opening a link for an already imported share refreshes the
// copy in place; the creator's key is pinned on first import and a
// snapshot signed by anyone else is rejected.
func (im *Importer) ImportFromURL(ctx context.Context, link string) (*models.ImportedBill, error) {
	shareID, exportedKey, err := ParseShareURL(link)
	if err != nil {
		return nil, err
	}
	key, err := crypto.ImportKey(exportedKey)
	if err != nil {
		return nil, err
	}
	session, err := im.client.FetchShare(ctx, shareID)
	if err != nil {
		return nil, err
	}
	payload, err := DecryptPayload(session.EncryptedData, key)
	if err != nil {
		return nil, err
	}

	imported := &models.ImportedBill{
		ShareID:          shareID,
		KeyB64:           exportedKey,
		Bill:             payload.Bill,
		CreatorName:      payload.CreatorName,
		CreatorPublicKey: payload.PublicKey,
		Status:           models.ShareLive,
		CheckedAt:        time.Now().Unix(),
		LastUpdatedAt:    session.LastUpdatedAt,
	}

	existing, err := im.store.GetImportedBillByShareID(ctx, shareID)
	switch {
	case err == nil:
		if existing.CreatorPublicKey != payload.PublicKey {
			return nil, fmt.Errorf("share %s is signed by a different key than on first import", shareID)
		}
		imported.ID = existing.ID
		imported.ImportedAt = existing.ImportedAt
	case errors.Is(err, storage.ErrNotFound):
		imported.ID = uuid.New().String()
		imported.ImportedAt = time.Now().Unix()
	default:
		return nil, err
	}

	if err := im.store.UpsertImportedBill(ctx, imported); err != nil {
		return nil, err
	}
	return imported, nil
}

// RefreshAll re-checks every imported bill against the relay: lapsed
// sessions are marked expired, fresher snapshots are pulled, verified and
// stored. One bad share does not stop the sweep; the first failure is
// returned.
func (im *Importer) RefreshAll(ctx context.Context) error {
	imports, err := im.store.ListImportedBills(ctx)
	if err != nil {
		return fmt.Errorf("failed to list imported bills: %w", err)
	}
	var firstErr error
	for i := range imports {
		if err := im.refreshOne(ctx, &imports[i]); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			slog.Warn("Failed to refresh imported bill", "shareId", imports[i].ShareID, "error", err)
		}
	}
	return firstErr
}

func (im *Importer) refreshOne(ctx context.Context, imported *models.ImportedBill) error {
	session, err := im.client.FetchShare(ctx, imported.ShareID)
	now := time.Now().Unix()
	switch {
	case errors.Is(err, ErrShareNotFound), errors.Is(err, ErrShareExpired):
		imported.Status = models.ShareExpired
		imported.CheckedAt = now
		return im.store.UpsertImportedBill(ctx, imported)
	case err != nil:
		return err
	}

	imported.CheckedAt = now
	// Timestamps have second granularity, so only a strictly older relay
	// copy is safe to skip; an equal timestamp may hide a newer snapshot.
	if session.LastUpdatedAt < imported.LastUpdatedAt && imported.Status == models.ShareLive {
		return im.store.UpsertImportedBill(ctx, imported)
	}

	key, err := crypto.ImportKey(imported.KeyB64)
	if err != nil {
		return err
	}
	payload, err := DecryptPayload(session.EncryptedData, key)
	if err != nil {
		return err
	}
	if payload.PublicKey != imported.CreatorPublicKey {
		return fmt.Errorf("share %s is signed by a different key than on first import", imported.ShareID)
	}

	imported.Bill = payload.Bill
	if payload.CreatorName != "" {
		imported.CreatorName = payload.CreatorName
	}
	imported.Status = models.ShareLive
	imported.LastUpdatedAt = session.LastUpdatedAt
	return im.store.UpsertImportedBill(ctx, imported)
}
