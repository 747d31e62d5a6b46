package attest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trovapay/trova/internal/domain"
)

func testPayload() Payload {
	return Payload{
		Items: []domain.TradeItem{
			{
				ItemID:        "item-1",
				ItemName:      "leather jacket",
				SharePct:      decimal.NewFromFloat(0.5),
				Value:         decimal.NewFromFloat(40),
				PreviousOwner: "user-1",
				NewOwner:      "merchant-1",
			},
		},
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).UnixMilli(),
	}
}

func TestSignDeterministic(t *testing.T) {
	svc := NewService()
	payload := testPayload()

	first, err := svc.Sign(payload, "1234")
	require.NoError(t, err)
	second, err := svc.Sign(payload, "1234")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64) // hex-encoded sha256
}

func TestSignPayloadChangesOutput(t *testing.T) {
	svc := NewService()
	base, err := svc.Sign(testPayload(), "1234")
	require.NoError(t, err)

	tampered := testPayload()
	tampered.Items[0].Value = decimal.NewFromFloat(41)
	sig, err := svc.Sign(tampered, "1234")
	require.NoError(t, err)
	assert.NotEqual(t, base, sig)

	shifted := testPayload()
	shifted.Timestamp++
	sig, err = svc.Sign(shifted, "1234")
	require.NoError(t, err)
	assert.NotEqual(t, base, sig)
}

func TestSignSecretChangesOutput(t *testing.T) {
	svc := NewService()
	payload := testPayload()

	pinSig, err := svc.Sign(payload, "1234")
	require.NoError(t, err)
	bioSig, err := svc.Sign(payload, SecretBiometric)
	require.NoError(t, err)
	assert.NotEqual(t, pinSig, bioSig)
}

func TestSignEmptySecret(t *testing.T) {
	svc := NewService()
	_, err := svc.Sign(testPayload(), "")
	assert.Error(t, err)
}

func TestPinHashing(t *testing.T) {
	hash, err := HashPIN("4321")
	require.NoError(t, err)
	assert.NoError(t, VerifyPIN(hash, "4321"))
	assert.Error(t, VerifyPIN(hash, "9999"))

	_, err = HashPIN("12")
	assert.Error(t, err)
}
