package models

// SplitMode selects the algorithm used to allocate a bill's total across
// participants.
type SplitMode string

const (
	// SplitEqually divides the total evenly among active participants.
	SplitEqually SplitMode = "equally"
	// SplitByAmount uses each participant's entered amount verbatim.
	SplitByAmount SplitMode = "amount"
	// SplitByPercentage allocates total × (splitValue / 100) per participant.
	SplitByPercentage SplitMode = "percentage"
	// SplitByItem derives each share from the receipt items assigned to the
	// participant.
	SplitByItem SplitMode = "item"
)

// BillStatus is the local lifecycle state of a bill.
type BillStatus string

const (
	BillActive   BillStatus = "active"
	BillArchived BillStatus = "archived"
)

// ShareStatus tracks the relay-side state of a shared bill. The empty value
// means the bill has never been shared. A transient "generating" phase exists
// while a publish is in flight but is never persisted.
type ShareStatus string

const (
	ShareLive    ShareStatus = "live"
	ShareExpired ShareStatus = "expired"
	ShareError   ShareStatus = "error"
)

// MyselfName is the placeholder under which the local user appears in their
// own bills. Snapshots published to the relay substitute it with the display
// name from Settings so imported copies don't show "Myself".
const MyselfName = "Myself"

// Participant is one person's line in a bill.
type Participant struct {
	// ID is the unique identifier for the participant (UUID format).
	ID string `json:"id"`

	// Name is the display name. Blank names mark placeholder rows that are
	// still being edited; those rows are ignored by the allocation engine.
	Name string `json:"name"`

	// AmountOwed is this person's allocated share of the bill total. It is
	// recomputed by the allocation engine on every edit and is always >= 0.
	AmountOwed float64 `json:"amountOwed"`

	// Paid records whether this person has settled their share.
	Paid bool `json:"paid"`

	// SplitValue is the raw user-entered value for the amount and percentage
	// split modes. It only matters while editing; equal and itemized splits
	// leave it nil.
	SplitValue *float64 `json:"splitValue,omitempty"`

	// Optional contact details used by the share dispatch channels.
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// ReceiptItem is a single itemized line on a bill. Its price is split evenly
// among the assigned participants.
type ReceiptItem struct {
	// ID is the unique identifier for the item (UUID format).
	ID string `json:"id"`

	// Name describes the item (e.g. "Pad Thai").
	Name string `json:"name"`

	// Price is the item's cost.
	Price float64 `json:"price"`

	// AssignedTo lists participant IDs sharing this item. It may be empty
	// while the bill is being edited but must be non-empty to finalize an
	// itemized bill.
	AssignedTo []string `json:"assignedTo"`
}

// ShareInfo is the credential record for a bill's share session. It is
// created when the bill is first shared and its UpdateToken is refreshed on
// reactivation; content updates reuse the same ShareID and key.
type ShareInfo struct {
	// ShareID is the relay-assigned identifier embedded in share links.
	ShareID string `json:"shareId"`

	// UpdateToken authorizes re-publication of the same ShareID.
	UpdateToken string `json:"updateToken"`

	// KeyB64 is the session's symmetric encryption key, base64-encoded. The
	// relay only ever sees ciphertext; the key travels in the link fragment.
	KeyB64 string `json:"keyB64"`
}

// ShareHistory records which share channels have been used per participant
// and when, keyed participantID → channel → unix seconds. It exists purely
// for "already sent" feedback and never gates re-sending.
type ShareHistory map[string]map[string]int64

// Record stores a dispatch timestamp for a participant/channel pair.
func (h ShareHistory) Record(participantID, channel string, at int64) {
	if h[participantID] == nil {
		h[participantID] = make(map[string]int64)
	}
	h[participantID][channel] = at
}

// SentAt reports when the given channel was last used for the participant.
func (h ShareHistory) SentAt(participantID, channel string) (int64, bool) {
	ts, ok := h[participantID][channel]
	return ts, ok
}

// Bill is a bill split among participants. The invariant maintained by the
// allocation engine is that the participants' AmountOwed values sum to
// TotalAmount within 0.01, except for itemized bills whose item prices have
// not been assigned yet.
type Bill struct {
	// ID is the unique identifier for the bill (UUID format).
	ID string `json:"id"`

	// Description is the human-readable name for the bill.
	Description string `json:"description"`

	// TotalAmount is the full amount being split. For itemized bills it
	// normally equals the sum of item prices.
	TotalAmount float64 `json:"totalAmount"`

	// Date is the bill date in YYYY-MM-DD form, as entered.
	Date string `json:"date"`

	Status BillStatus `json:"status"`

	// Participants is ordered; order is significant for deterministic
	// leftover-cent assignment.
	Participants []Participant `json:"participants"`

	// Items is present only for itemized bills.
	Items []ReceiptItem `json:"items,omitempty"`

	// ReceiptImage is an optional data-URL image of the receipt. It is the
	// heavyweight part of a shared bill and the target of quota eviction.
	ReceiptImage string `json:"receiptImage,omitempty"`

	// AdditionalInfo holds free-form labeled values shown with the bill.
	AdditionalInfo map[string]string `json:"additionalInfo,omitempty"`

	// ShareInfo, ShareStatus and ShareHistory are owner-side share state.
	// They are stripped from snapshots before signing and encryption.
	ShareInfo    *ShareInfo   `json:"shareInfo,omitempty"`
	ShareStatus  ShareStatus  `json:"shareStatus,omitempty"`
	ShareHistory ShareHistory `json:"shareHistory,omitempty"`

	// CreatedAt and UpdatedAt are unix timestamps. UpdatedAt orders bills
	// for least-recently-updated image eviction.
	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

// Clone returns a deep copy of the bill.
func (b *Bill) Clone() *Bill {
	if b == nil {
		return nil
	}
	c := *b
	if b.Participants != nil {
		c.Participants = make([]Participant, len(b.Participants))
		for i, p := range b.Participants {
			cp := p
			if p.SplitValue != nil {
				v := *p.SplitValue
				cp.SplitValue = &v
			}
			c.Participants[i] = cp
		}
	}
	if b.Items != nil {
		c.Items = make([]ReceiptItem, len(b.Items))
		for i, it := range b.Items {
			ci := it
			ci.AssignedTo = append([]string(nil), it.AssignedTo...)
			c.Items[i] = ci
		}
	}
	if b.AdditionalInfo != nil {
		c.AdditionalInfo = make(map[string]string, len(b.AdditionalInfo))
		for k, v := range b.AdditionalInfo {
			c.AdditionalInfo[k] = v
		}
	}
	if b.ShareInfo != nil {
		si := *b.ShareInfo
		c.ShareInfo = &si
	}
	if b.ShareHistory != nil {
		c.ShareHistory = make(ShareHistory, len(b.ShareHistory))
		for pid, chans := range b.ShareHistory {
			m := make(map[string]int64, len(chans))
			for ch, ts := range chans {
				m[ch] = ts
			}
			c.ShareHistory[pid] = m
		}
	}
	return &c
}

// IsShared reports whether the bill has an active share session record.
func (b *Bill) IsShared() bool {
	return b.ShareInfo != nil && b.ShareInfo.ShareID != ""
}

// HasReceiptImage reports whether a receipt image is attached.
func (b *Bill) HasReceiptImage() bool {
	return b.ReceiptImage != ""
}

// ActiveParticipants returns the participants with non-blank names, in order.
func (b *Bill) ActiveParticipants() []Participant {
	active := make([]Participant, 0, len(b.Participants))
	for _, p := range b.Participants {
		if p.Name != "" {
			active = append(active, p)
		}
	}
	return active
}

// FindParticipant returns the participant with the given ID, or nil.
func (b *Bill) FindParticipant(id string) *Participant {
	for i := range b.Participants {
		if b.Participants[i].ID == id {
			return &b.Participants[i]
		}
	}
	return nil
}
