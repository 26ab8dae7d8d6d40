package share

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centerionware/smartbillsplitter-sub003/internal/crypto"
	"github.com/centerionware/smartbillsplitter-sub003/internal/models"
)

func payloadBill() *models.Bill {
	return &models.Bill{
		ID:          "bill-1",
		Description: "Ski weekend",
		TotalAmount: 412.80,
		Date:        "2025-01-18",
		Status:      models.BillActive,
		Participants: []models.Participant{
			{ID: "p1", Name: models.MyselfName, AmountOwed: 206.40, Paid: true},
			{ID: "p2", Name: "Dana", AmountOwed: 206.40},
		},
		AdditionalInfo: map[string]string{"cabin": "A4"},
		CreatedAt:      1700000000,
		UpdatedAt:      1700000000,
	}
}

func TestBuildSnapshotStripsShareState(t *testing.T) {
	bill := payloadBill()
	bill.ShareInfo = &models.ShareInfo{ShareID: "s1", UpdateToken: "t1", KeyB64: "k1"}
	bill.ShareStatus = models.ShareLive
	bill.ShareHistory = models.ShareHistory{"p2": {ChannelSMS: 1}}

	snapshot := BuildSnapshot(bill, "Alice Example")
	assert.Nil(t, snapshot.ShareInfo)
	assert.Empty(t, snapshot.ShareStatus)
	assert.Nil(t, snapshot.ShareHistory)
	assert.Equal(t, "Alice Example", snapshot.Participants[0].Name)
	assert.Equal(t, "Dana", snapshot.Participants[1].Name)

	// The source bill keeps its share state and placeholder name.
	assert.NotNil(t, bill.ShareInfo)
	assert.Equal(t, models.ShareLive, bill.ShareStatus)
	assert.Equal(t, models.MyselfName, bill.Participants[0].Name)

	// Without a usable display name the placeholder stays.
	keep := BuildSnapshot(bill, models.MyselfName)
	assert.Equal(t, models.MyselfName, keep.Participants[0].Name)
}

func TestPayloadRoundTrip(t *testing.T) {
	signing, err := crypto.GenerateSigningKey()
	require.NoError(t, err)
	session, err := crypto.NewSessionKey()
	require.NoError(t, err)

	snapshot := BuildSnapshot(payloadBill(), "Alice Example")
	payload, err := BuildPayload(snapshot, "Alice Example", signing)
	require.NoError(t, err)
	assert.Equal(t, models.PayloadV2, payload.Version)

	blob, err := EncryptPayload(payload, session)
	require.NoError(t, err)
	assert.NotContains(t, blob, "Ski weekend")
	assert.NotContains(t, blob, "412.8")

	decoded, err := DecryptPayload(blob, session)
	require.NoError(t, err)
	assert.Equal(t, "Ski weekend", decoded.Bill.Description)
	assert.Equal(t, 412.80, decoded.Bill.TotalAmount)
	assert.Equal(t, "A4", decoded.Bill.AdditionalInfo["cabin"])
	assert.Equal(t, "Alice Example", decoded.CreatorName)
	assert.Equal(t, signing.PublicKeyB64(), decoded.PublicKey)
}

func TestDecryptPayloadRejectsTampering(t *testing.T) {
	signing, err := crypto.GenerateSigningKey()
	require.NoError(t, err)
	session, err := crypto.NewSessionKey()
	require.NoError(t, err)

	snapshot := BuildSnapshot(payloadBill(), "Alice Example")
	payload, err := BuildPayload(snapshot, "Alice Example", signing)
	require.NoError(t, err)

	// Rewrite the amount after signing, the way a malicious relay would.
	payload.Bill.TotalAmount = 1.00
	blob, err := EncryptPayload(payload, session)
	require.NoError(t, err)

	_, err = DecryptPayload(blob, session)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature rejected")
}

func TestDecryptPayloadVersionDispatch(t *testing.T) {
	signing, err := crypto.GenerateSigningKey()
	require.NoError(t, err)
	session, err := crypto.NewSessionKey()
	require.NoError(t, err)
	snapshot := BuildSnapshot(payloadBill(), "Alice Example")

	t.Run("v1 without creator name", func(t *testing.T) {
		data, err := json.Marshal(snapshot)
		require.NoError(t, err)
		payload := &models.SharedBillPayload{
			Version:   models.PayloadV1,
			Bill:      *snapshot,
			PublicKey: signing.PublicKeyB64(),
			Signature: signing.Sign(data),
		}
		blob, err := EncryptPayload(payload, session)
		require.NoError(t, err)

		decoded, err := DecryptPayload(blob, session)
		require.NoError(t, err)
		assert.Empty(t, decoded.CreatorName)
		assert.Equal(t, "Ski weekend", decoded.Bill.Description)
	})

	t.Run("unknown version", func(t *testing.T) {
		payload, err := BuildPayload(snapshot, "Alice Example", signing)
		require.NoError(t, err)
		payload.Version = 9
		blob, err := EncryptPayload(payload, session)
		require.NoError(t, err)

		_, err = DecryptPayload(blob, session)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported share payload version")
	})

	t.Run("wrong key", func(t *testing.T) {
		payload, err := BuildPayload(snapshot, "Alice Example", signing)
		require.NoError(t, err)
		blob, err := EncryptPayload(payload, session)
		require.NoError(t, err)

		other, err := crypto.NewSessionKey()
		require.NoError(t, err)
		_, err = DecryptPayload(blob, other)
		require.Error(t, err)
	})
}
