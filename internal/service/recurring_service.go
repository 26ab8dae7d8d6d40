package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/centerionware/smartbillsplitter-sub003/internal/calculator"
	"github.com/centerionware/smartbillsplitter-sub003/internal/models"
	"github.com/centerionware/smartbillsplitter-sub003/internal/storage"
)

// RecurringService manages bill templates and stamps out the bills
// they are due to produce. Template amounts are authoritative: a
// generated bill copies them as-is, it is not recomputed.
type RecurringService struct {
	store storage.Store
}

// NewRecurringService creates a new RecurringService with the given
// storage backend.
func NewRecurringService(store storage.Store) *RecurringService {
	return &RecurringService{store: store}
}

// CreateTemplate validates and persists a recurring bill template.
// The template's participant amounts must already add up to its total,
// since generation copies them without recomputing.
func (s *RecurringService) CreateTemplate(ctx context.Context, rb *models.RecurringBill) error {
	if err := validateTemplate(rb); err != nil {
		return err
	}
	rb.Template.ShareInfo = nil
	rb.Template.ShareStatus = ""
	rb.Template.ShareHistory = nil
	if err := s.store.CreateRecurringBill(ctx, rb); err != nil {
		return err
	}
	slog.Info("Recurring bill created", "recurringBillId", rb.ID, "frequency", rb.Frequency, "nextDate", rb.NextDate)
	return nil
}

// UpdateTemplate validates and replaces an existing template.
func (s *RecurringService) UpdateTemplate(ctx context.Context, rb *models.RecurringBill) error {
	if err := validateTemplate(rb); err != nil {
		return err
	}
	rb.Template.ShareInfo = nil
	rb.Template.ShareStatus = ""
	rb.Template.ShareHistory = nil
	return s.store.UpdateRecurringBill(ctx, rb)
}

// DeleteTemplate removes a template. Bills already generated from it
// are untouched.
func (s *RecurringService) DeleteTemplate(ctx context.Context, id string) error {
	return s.store.DeleteRecurringBill(ctx, id)
}

// GenerateDueBills stamps out a bill for every template whose next due
// date is on or before asOf, catching up on any periods that were
// missed, and advances each template past asOf. It returns the bills
// it created.
func (s *RecurringService) GenerateDueBills(ctx context.Context, asOf time.Time) ([]models.Bill, error) {
	templates, err := s.store.ListRecurringBills(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := asOf.Format(dateLayout)
	var created []models.Bill
	for i := range templates {
		rb := &templates[i]
		next, err := time.Parse(dateLayout, rb.NextDate)
		if err != nil {
			slog.Warn("Skipping recurring bill with a malformed next date", "recurringBillId", rb.ID, "nextDate", rb.NextDate)
			continue
		}
		if !validFrequency(rb.Frequency) {
			slog.Warn("Skipping recurring bill with an unknown frequency", "recurringBillId", rb.ID, "frequency", rb.Frequency)
			continue
		}

		stamped := 0
		for rb.NextDate <= cutoff {
			bill := stampBill(rb)
			if err := s.store.CreateBill(ctx, bill); err != nil {
				return created, fmt.Errorf("failed to create bill from template %s: %w", rb.ID, err)
			}
			created = append(created, *bill)
			next = advance(next, rb.Frequency)
			rb.NextDate = next.Format(dateLayout)
			stamped++
		}
		if stamped > 0 {
			if err := s.store.UpdateRecurringBill(ctx, rb); err != nil {
				return created, fmt.Errorf("failed to advance template %s: %w", rb.ID, err)
			}
			slog.Info("Generated bills from recurring template", "recurringBillId", rb.ID, "count", stamped, "nextDate", rb.NextDate)
		}
	}
	return created, nil
}

// stampBill turns a template into a fresh, unshared, unpaid bill dated
// on the template's current due date.
func stampBill(rb *models.RecurringBill) *models.Bill {
	bill := rb.Template.Clone()
	bill.ID = ""
	bill.Date = rb.NextDate
	bill.Status = models.BillActive
	bill.ShareInfo = nil
	bill.ShareStatus = ""
	bill.ShareHistory = nil
	bill.CreatedAt = 0
	bill.UpdatedAt = 0
	for i := range bill.Participants {
		bill.Participants[i].Paid = false
	}
	return bill
}

func validateTemplate(rb *models.RecurringBill) error {
	if rb.Template.Description == "" {
		return errors.New("recurring bill needs a description")
	}
	if !validFrequency(rb.Frequency) {
		return fmt.Errorf("unknown recurrence frequency %q", rb.Frequency)
	}
	if _, err := time.Parse(dateLayout, rb.NextDate); err != nil {
		return fmt.Errorf("next date must be YYYY-MM-DD: %w", err)
	}
	var sum float64
	for _, p := range rb.Template.Participants {
		sum += p.AmountOwed
	}
	if math.Abs(sum-rb.Template.TotalAmount) >= calculator.Epsilon {
		return fmt.Errorf("template amounts add up to %.2f, not %.2f", sum, rb.Template.TotalAmount)
	}
	return nil
}

func validFrequency(freq models.RecurrenceFrequency) bool {
	switch freq {
	case models.RecurWeekly, models.RecurMonthly, models.RecurYearly:
		return true
	}
	return false
}

func advance(t time.Time, freq models.RecurrenceFrequency) time.Time {
	switch freq {
	case models.RecurWeekly:
		return t.AddDate(0, 0, 7)
	case models.RecurMonthly:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(1, 0, 0)
	}
}
