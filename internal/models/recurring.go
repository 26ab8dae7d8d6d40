package models

// RecurrenceFrequency is how often a recurring bill template produces a bill.
type RecurrenceFrequency string

const (
	RecurWeekly  RecurrenceFrequency = "weekly"
	RecurMonthly RecurrenceFrequency = "monthly"
	RecurYearly  RecurrenceFrequency = "yearly"
)

// RecurringBill is a template from which concrete bills are generated on a
// schedule. The template's share state is always empty; each generated bill
// is shared (or not) on its own.
type RecurringBill struct {
	// ID is the unique identifier for the template (UUID format).
	ID string `json:"id"`

	// Template holds the description, participants, split mode inputs and
	// items to stamp onto each generated bill.
	Template Bill `json:"template"`

	Frequency RecurrenceFrequency `json:"frequency"`

	// NextDate is the date (YYYY-MM-DD) the next bill is due.
	NextDate string `json:"nextDate"`

	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}
