package models

// Group is a reusable participant list for quickly composing bills with the
// same people (e.g. "Flatmates", "Tuesday lunch").
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	// Name is the display name of the group.
	Name string `json:"name"`

	// Participants are copied into new bills; amounts and paid flags reset.
	Participants []Participant `json:"participants"`

	// CreatedAt and UpdatedAt are unix timestamps.
	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}
