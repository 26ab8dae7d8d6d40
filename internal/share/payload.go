package share

import (
	"encoding/json"
	"fmt"

	"github.com/centerionware/smartbillsplitter-sub003/internal/crypto"
	"github.com/centerionware/smartbillsplitter-sub003/internal/models"
)

// BuildSnapshot derives the publishable copy of a bill: owner-side share
// state is stripped and the MyselfName placeholder is replaced with the
// creator's display name so recipients see who the bill belongs to.
func BuildSnapshot(bill *models.Bill, creatorName string) *models.Bill {
	snapshot := bill.Clone()
	snapshot.ShareInfo = nil
	snapshot.ShareStatus = ""
	snapshot.ShareHistory = nil
	if creatorName != "" && creatorName != models.MyselfName {
		for i := range snapshot.Participants {
			if snapshot.Participants[i].Name == models.MyselfName {
				snapshot.Participants[i].Name = creatorName
			}
		}
	}
	return snapshot
}

// BuildPayload signs the snapshot and wraps it in the current payload
// schema version.
func BuildPayload(snapshot *models.Bill, creatorName string, key *crypto.SigningKey) (*models.SharedBillPayload, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bill snapshot: %w", err)
	}
	return &models.SharedBillPayload{
		Version:     models.PayloadV2,
		Bill:        *snapshot,
		CreatorName: creatorName,
		PublicKey:   key.PublicKeyB64(),
		Signature:   key.Sign(data),
	}, nil
}

// EncryptPayload serializes and encrypts a payload with the share session
// key, producing the blob published to the relay.
func EncryptPayload(payload *models.SharedBillPayload, key *crypto.SessionKey) (string, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode share payload: %w", err)
	}
	return key.Encrypt(plaintext)
}

// DecryptPayload decrypts a relay blob and verifies the creator's
// signature over the contained bill snapshot. Payload versions newer than
// this build understands are rejected rather than half-parsed.
func DecryptPayload(encryptedData string, key *crypto.SessionKey) (*models.SharedBillPayload, error) {
	plaintext, err := key.Decrypt(encryptedData)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt share payload: %w", err)
	}
	var payload models.SharedBillPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode share payload: %w", err)
	}
	switch payload.Version {
	case models.PayloadV1, models.PayloadV2:
	default:
		return nil, fmt.Errorf("unsupported share payload version %d", payload.Version)
	}
	data, err := json.Marshal(payload.Bill)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode bill snapshot: %w", err)
	}
	if err := crypto.Verify(payload.PublicKey, data, payload.Signature); err != nil {
		return nil, fmt.Errorf("share payload signature rejected: %w", err)
	}
	return &payload, nil
}
