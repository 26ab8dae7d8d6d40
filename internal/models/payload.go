package models

// Payload schema versions. The version tag lets the import side dispatch on
// shape instead of probing optional fields.
const (
	// PayloadV1 carries the bill, the creator's public key and the signature.
	PayloadV1 = 1
	// PayloadV2 adds the creator's display name.
	PayloadV2 = 2
)

// SharedBillPayload is the plaintext structure that gets signed and then
// encrypted before publication to the relay. The signature covers the JSON
// encoding of the Bill snapshot; the snapshot itself has all owner-side share
// state (ShareInfo, ShareStatus, ShareHistory) stripped.
type SharedBillPayload struct {
	Version int  `json:"version"`
	Bill    Bill `json:"bill"`

	// CreatorName is present from PayloadV2 on.
	CreatorName string `json:"creatorName,omitempty"`

	// PublicKey is the creator's base64-encoded verification key.
	PublicKey string `json:"publicKey"`

	// Signature is the base64-encoded signature over the Bill snapshot JSON.
	Signature string `json:"signature"`
}
