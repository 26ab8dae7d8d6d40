package calculator

import (
	"sort"

	"github.com/centerionware/smartbillsplitter-sub003/internal/models"
)

// MemberOutstanding aggregates what a single person owes across bills.
// People are keyed by display name, so "Bob" on two different bills
// rolls up into one row.
type MemberOutstanding struct {
	Name string
	// TotalOwed is the sum of the person's shares across all bills,
	// paid or not.
	TotalOwed float64
	// TotalUnpaid is the portion of TotalOwed not yet marked paid.
	TotalUnpaid float64
	// UnpaidBills counts bills on which the person still owes money.
	UnpaidBills int
}

// SummarizeOutstanding rolls up per-person debt across the given bills.
// The bill owner fronts the full amount, so the owner's own share is
// not a debt and rows for the owner are omitted. Archived bills are
// skipped. Results are sorted by name.
func SummarizeOutstanding(bills []models.Bill) []MemberOutstanding {
	byName := make(map[string]*MemberOutstanding)
	for _, bill := range bills {
		if bill.Status == models.BillArchived {
			continue
		}
		for _, p := range bill.Participants {
			if p.Name == "" || p.Name == models.MyselfName {
				continue
			}
			m, ok := byName[p.Name]
			if !ok {
				m = &MemberOutstanding{Name: p.Name}
				byName[p.Name] = m
			}
			m.TotalOwed += p.AmountOwed
			if !p.Paid && p.AmountOwed > Epsilon {
				m.TotalUnpaid += p.AmountOwed
				m.UnpaidBills++
			}
		}
	}

	out := make([]MemberOutstanding, 0, len(byName))
	for _, m := range byName {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TotalOutstanding sums the unpaid amounts across all members.
func TotalOutstanding(members []MemberOutstanding) float64 {
	var total float64
	for _, m := range members {
		total += m.TotalUnpaid
	}
	return total
}
