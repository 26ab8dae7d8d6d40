package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/centerionware/smartbillsplitter-sub003/internal/calculator"
	"github.com/centerionware/smartbillsplitter-sub003/internal/models"
	"github.com/centerionware/smartbillsplitter-sub003/internal/storage"
)

const dateLayout = "2006-01-02"

// SyncTrigger queues a bill for background re-publication after a local
// edit. *share.UpdateQueue satisfies it.
type SyncTrigger interface {
	Enqueue(billID string) bool
}

// BillService owns the bill editing flow: every save recomputes
// allocations and refuses to persist a bill that does not reconcile,
// and edits to shared bills are handed to the sync trigger after the
// local write completes so saving never waits on the network.
type BillService struct {
	store   storage.Store
	trigger SyncTrigger
}

// NewBillService creates a new BillService with the given storage
// backend. trigger may be nil when share syncing is not wired up.
func NewBillService(store storage.Store, trigger SyncTrigger) *BillService {
	return &BillService{store: store, trigger: trigger}
}

// CreateBill finalizes and persists a new bill.
func (s *BillService) CreateBill(ctx context.Context, bill *models.Bill, mode models.SplitMode) error {
	if err := s.finalize(bill, mode); err != nil {
		return err
	}
	if err := s.store.CreateBill(ctx, bill); err != nil {
		return err
	}
	slog.Info("Bill created", "billId", bill.ID, "total", bill.TotalAmount, "participants", len(bill.Participants))
	return nil
}

// UpdateBill finalizes and persists an edited bill, then queues a
// share sync when the bill is published.
func (s *BillService) UpdateBill(ctx context.Context, bill *models.Bill, mode models.SplitMode) error {
	if err := s.finalize(bill, mode); err != nil {
		return err
	}
	if err := s.store.UpdateBill(ctx, bill); err != nil {
		return err
	}
	s.signalShared(bill)
	return nil
}

// SetParticipantPaid flips one participant's settled flag. Paid state
// rides along in published snapshots, so shared bills re-sync.
func (s *BillService) SetParticipantPaid(ctx context.Context, billID, participantID string, paid bool) (*models.Bill, error) {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	p := bill.FindParticipant(participantID)
	if p == nil {
		return nil, fmt.Errorf("bill %s has no participant %s", billID, participantID)
	}
	p.Paid = paid
	if err := s.store.UpdateBill(ctx, bill); err != nil {
		return nil, err
	}
	s.signalShared(bill)
	return bill, nil
}

// ArchiveBill moves a bill out of the active list.
func (s *BillService) ArchiveBill(ctx context.Context, billID string) error {
	return s.setStatus(ctx, billID, models.BillArchived)
}

// RestoreBill brings an archived bill back to the active list.
func (s *BillService) RestoreBill(ctx context.Context, billID string) error {
	return s.setStatus(ctx, billID, models.BillActive)
}

func (s *BillService) setStatus(ctx context.Context, billID string, status models.BillStatus) error {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return err
	}
	if bill.Status == status {
		return nil
	}
	bill.Status = status
	if err := s.store.UpdateBill(ctx, bill); err != nil {
		return err
	}
	s.signalShared(bill)
	return nil
}

// DeleteBill removes a bill. Any published share is left to lapse on
// the relay's TTL rather than torn down eagerly.
func (s *BillService) DeleteBill(ctx context.Context, billID string) error {
	return s.store.DeleteBill(ctx, billID)
}

// DraftFromGroup builds an unsaved bill pre-filled with a group's
// members. Names and contact details carry over; amounts, paid flags
// and split values start clean.
func (s *BillService) DraftFromGroup(ctx context.Context, groupID string) (*models.Bill, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	participants := make([]models.Participant, len(group.Participants))
	for i, p := range group.Participants {
		participants[i] = models.Participant{ID: p.ID, Name: p.Name, Phone: p.Phone, Email: p.Email}
	}
	return &models.Bill{
		Date:         time.Now().Format(dateLayout),
		Status:       models.BillActive,
		Participants: participants,
	}, nil
}

// finalize validates a bill for saving: placeholder rows are dropped,
// missing IDs filled, the date defaulted, and allocations recomputed.
// A bill that does not reconcile is rejected so bad amounts never
// reach the store or a published snapshot.
func (s *BillService) finalize(bill *models.Bill, mode models.SplitMode) error {
	if bill.Description == "" {
		return errors.New("bill description is required")
	}
	if bill.Date == "" {
		bill.Date = time.Now().Format(dateLayout)
	}

	kept := make([]models.Participant, 0, len(bill.Participants))
	for _, p := range bill.Participants {
		if p.Name == "" {
			continue
		}
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		kept = append(kept, p)
	}
	bill.Participants = kept

	for i := range bill.Items {
		if bill.Items[i].ID == "" {
			bill.Items[i].ID = uuid.New().String()
		}
	}
	if mode == models.SplitByItem {
		var total float64
		for _, item := range bill.Items {
			total += item.Price
		}
		bill.TotalAmount = total
	}

	res, err := calculator.Compute(bill.TotalAmount, bill.Participants, mode, bill.Items)
	if err != nil {
		return err
	}
	if !res.Valid {
		return &calculator.AllocationError{Reason: calculator.DiscrepancyMessage(mode, res)}
	}
	for i := range bill.Participants {
		p := &bill.Participants[i]
		p.AmountOwed = res.Amounts[p.ID]
		if mode == models.SplitByAmount {
			p.SplitValue = nil
		}
	}
	return nil
}

func (s *BillService) signalShared(bill *models.Bill) {
	if s.trigger == nil || !bill.IsShared() {
		return
	}
	s.trigger.Enqueue(bill.ID)
}
