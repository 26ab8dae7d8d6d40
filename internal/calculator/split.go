package calculator

import (
	"fmt"
	"math"

	"github.com/centerionware/smartbillsplitter-sub003/internal/models"
)

// Epsilon is the tolerance used when reconciling currency sums. Two
// amounts closer than this are considered equal, which absorbs the
// drift inherent in float arithmetic on cent values.
const Epsilon = 0.01

// Result holds the outcome of an allocation pass. Amounts always
// carries an entry for every participant that was passed in, including
// inactive ones (mapped to zero), so callers can render a complete
// roster without re-deriving membership.
type Result struct {
	// Amounts maps participant ID to the amount allocated to them.
	Amounts map[string]float64
	// Total is the sum of all allocated amounts.
	Total float64
	// Remainder is the bill total minus Total. It is signed: positive
	// means the allocations fall short, negative means they overshoot.
	Remainder float64
	// Valid reports whether the allocation reconciles under the rules
	// of the requested split mode.
	Valid bool
	// PercentSum is the sum of entered percentages. Only populated for
	// percentage splits, where validity is judged against 100 rather
	// than against the currency remainder.
	PercentSum float64
	// UnassignedItems counts receipt items that no participant claimed.
	// Only populated for item splits.
	UnassignedItems int
}

// AllocationError reports an input state the engine cannot allocate
// from, as opposed to one that merely fails to reconcile.
type AllocationError struct {
	Reason string
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocation failed: %s", e.Reason)
}

// Compute allocates totalAmount across participants according to mode.
// Participants with a blank name are treated as placeholder rows still
// being edited: they never receive a share and their split values are
// ignored. A positive total with no active participants is an error;
// any other input produces a Result, valid or not, so the caller can
// surface the discrepancy instead of losing the user's edits.
func Compute(totalAmount float64, participants []models.Participant, mode models.SplitMode, items []models.ReceiptItem) (*Result, error) {
	amounts := make(map[string]float64, len(participants))
	for _, p := range participants {
		amounts[p.ID] = 0
	}

	active := activeIDs(participants)
	if len(active) == 0 && totalAmount > 0 {
		return nil, &AllocationError{Reason: "no participants to split between"}
	}

	res := &Result{Amounts: amounts}

	switch mode {
	case models.SplitEqually:
		if len(active) > 0 {
			share := totalAmount / float64(len(active))
			for _, id := range active {
				amounts[id] = share
			}
		}
	case models.SplitByAmount:
		for _, p := range participants {
			if p.Name == "" || p.SplitValue == nil {
				continue
			}
			amounts[p.ID] = *p.SplitValue
		}
	case models.SplitByPercentage:
		for _, p := range participants {
			if p.Name == "" || p.SplitValue == nil {
				continue
			}
			amounts[p.ID] = totalAmount * (*p.SplitValue / 100)
			res.PercentSum += *p.SplitValue
		}
	case models.SplitByItem:
		res.UnassignedItems = allocateItems(amounts, items)
	default:
		return nil, &AllocationError{Reason: fmt.Sprintf("unknown split mode %q", mode)}
	}

	for _, v := range amounts {
		res.Total += v
	}
	res.Remainder = totalAmount - res.Total
	// Percentage splits are judged on the percentages themselves, so a
	// wrong sum is caught even while the total is still zero.
	if mode == models.SplitByPercentage {
		res.Valid = math.Abs(res.PercentSum-100) < Epsilon
	} else {
		res.Valid = math.Abs(res.Remainder) < Epsilon && res.UnassignedItems == 0
	}

	return res, nil
}

// allocateItems divides each item's price evenly between its assignees
// and accumulates the shares into amounts. Assignee IDs that do not
// correspond to a known participant are skipped. Returns the number of
// items nobody claimed.
func allocateItems(amounts map[string]float64, items []models.ReceiptItem) int {
	unassigned := 0
	for _, item := range items {
		if len(item.AssignedTo) == 0 {
			unassigned++
			continue
		}
		share := item.Price / float64(len(item.AssignedTo))
		for _, id := range item.AssignedTo {
			if _, ok := amounts[id]; !ok {
				continue
			}
			amounts[id] += share
		}
	}
	return unassigned
}

// DiscrepancyMessage renders a human-readable explanation of why a
// result failed to reconcile, phrased for the mode the user was editing
// in. Returns the empty string for a valid result.
func DiscrepancyMessage(mode models.SplitMode, r *Result) string {
	if r == nil || r.Valid {
		return ""
	}
	switch mode {
	case models.SplitByPercentage:
		return fmt.Sprintf("percentages add up to %.2f%%, not 100%%", r.PercentSum)
	case models.SplitByItem:
		if r.UnassignedItems == 1 {
			return "1 item is not assigned to anyone"
		}
		if r.UnassignedItems > 1 {
			return fmt.Sprintf("%d items are not assigned to anyone", r.UnassignedItems)
		}
	}
	return fmt.Sprintf("amounts are off by $%.2f", math.Abs(r.Remainder))
}

func activeIDs(participants []models.Participant) []string {
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		if p.Name == "" {
			continue
		}
		ids = append(ids, p.ID)
	}
	return ids
}
