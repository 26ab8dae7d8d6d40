package share

import (
	"log/slog"

	"github.com/centerionware/smartbillsplitter-sub003/internal/models"
)

// Notifier receives user-facing notices from the sync layer. A UI renders
// them as toasts and status badges; tests capture them.
type Notifier interface {
	// ShareGenerating fires when a publish attempt for the bill starts.
	ShareGenerating(bill *models.Bill)

	// ShareStatusChanged fires when a bill's persisted share status moves.
	// The reason is human-readable and empty for healthy transitions.
	ShareStatusChanged(bill *models.Bill, status models.ShareStatus, reason string)

	// ImageEvicted fires when a receipt image was stripped to stay inside
	// the relay storage budget.
	ImageEvicted(bill *models.Bill)

	// DispatchFailed fires when sending a share link to a participant
	// failed for a reason other than the user backing out.
	DispatchFailed(bill *models.Bill, participant *models.Participant, channel string, err error)
}

// LogNotifier writes notices to the log. It stands in wherever no UI is
// attached.
type LogNotifier struct{}

func (LogNotifier) ShareGenerating(bill *models.Bill) {
	slog.Info("Generating share", "billId", bill.ID)
}

func (LogNotifier) ShareStatusChanged(bill *models.Bill, status models.ShareStatus, reason string) {
	if reason == "" {
		slog.Info("Share status changed", "billId", bill.ID, "status", status)
		return
	}
	slog.Warn("Share status changed", "billId", bill.ID, "status", status, "reason", reason)
}

func (LogNotifier) ImageEvicted(bill *models.Bill) {
	slog.Info("Removed receipt image to stay within share storage budget", "billId", bill.ID)
}

func (LogNotifier) DispatchFailed(bill *models.Bill, participant *models.Participant, channel string, err error) {
	slog.Error("Share dispatch failed", "billId", bill.ID, "participant", participant.Name, "channel", channel, "error", err)
}
