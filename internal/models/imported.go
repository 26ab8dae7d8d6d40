package models

// ImportedBill is a read-only copy of a bill shared by someone else. It is
// an independently stored snapshot linked to the owner's bill only by the
// share id; the local installation can refresh it from the relay but never
// writes back.
type ImportedBill struct {
	// ID is the local identifier for the imported copy (UUID format).
	ID string `json:"id"`

	// ShareID and KeyB64 are taken from the share link and allow refreshing
	// the snapshot from the relay.
	ShareID string `json:"shareId"`
	KeyB64  string `json:"keyB64"`

	// Bill is the decrypted, signature-verified snapshot.
	Bill Bill `json:"bill"`

	// CreatorName and CreatorPublicKey identify the sharer. The public key is
	// pinned on first import; a snapshot signed by a different key is
	// rejected on refresh.
	CreatorName      string `json:"creatorName,omitempty"`
	CreatorPublicKey string `json:"creatorPublicKey"`

	// Status is ShareLive while the relay still serves the session and
	// ShareExpired once it reports the session gone.
	Status ShareStatus `json:"status"`

	// ImportedAt is when the link was first opened; CheckedAt is the last
	// refresh probe; LastUpdatedAt is the relay's timestamp for the snapshot
	// currently held.
	ImportedAt    int64 `json:"importedAt"`
	CheckedAt     int64 `json:"checkedAt,omitempty"`
	LastUpdatedAt int64 `json:"lastUpdatedAt,omitempty"`
}
