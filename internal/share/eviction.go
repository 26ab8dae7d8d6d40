package share

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/centerionware/smartbillsplitter-sub003/internal/models"
	"github.com/centerionware/smartbillsplitter-sub003/internal/storage"
)

// ImageShareLimit caps how many active shared bills may carry a receipt
// image at once. Images dominate snapshot size and the relay's storage
// budget only covers a handful of image-bearing sessions.
const ImageShareLimit = 5

// makeSpaceForImage enforces the limit before an image-bearing bill is
// shared: while the count of active shared image-bearing bills sits at the
// limit, the least recently updated one has its image stripped. This is
// make-space, not rejection; the new share always proceeds. Stripped bills
// are re-queued so their published snapshots shrink too.
func (s *Syncer) makeSpaceForImage(ctx context.Context, incoming *models.Bill) error {
	if !incoming.HasReceiptImage() {
		return nil
	}
	bills, err := s.store.ListBills(ctx, storage.BillFilter{
		Status:        models.BillActive,
		SharedOnly:    true,
		WithImageOnly: true,
	})
	if err != nil {
		return fmt.Errorf("failed to count shared image bills: %w", err)
	}
	candidates := make([]models.Bill, 0, len(bills))
	for _, b := range bills {
		if b.ID != incoming.ID {
			candidates = append(candidates, b)
		}
	}

	// ListBills orders most recently updated first, so victims come off
	// the tail.
	for len(candidates) >= ImageShareLimit {
		victim := candidates[len(candidates)-1]
		candidates = candidates[:len(candidates)-1]
		victim.ReceiptImage = ""
		if err := s.store.UpdateBill(ctx, &victim); err != nil {
			return fmt.Errorf("failed to strip receipt image from bill %s: %w", victim.ID, err)
		}
		imagesEvicted.Inc()
		slog.Info("Stripped receipt image to stay within share budget", "billId", victim.ID)
		s.notifier.ImageEvicted(&victim)
		if s.queue != nil {
			s.queue.Enqueue(victim.ID)
		}
	}
	return nil
}
