package codec

import (
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/account"
	"main/pkg/exception"
)

func TestEventRoundTrip(t *testing.T) {
	created := account.AccountCreated{Account: account.Account{
		ID:       "acc-1",
		Owner:    "alice",
		Currency: "USD",
		Balance:  decimal.RequireFromString("100.0"),
	}}
	changed := account.BalanceChanged{Delta: decimal.RequireFromString("-30.0")}

	buf, err := EncodeEvent(nil, created)
	require.NoError(t, err)
	decoded, err := DecodeEvent(buf)
	require.NoError(t, err)
	got, ok := decoded.(account.AccountCreated)
	require.True(t, ok)
	assert.Equal(t, "acc-1", got.Account.ID)
	assert.Equal(t, "alice", got.Account.Owner)
	assert.True(t, got.Account.Balance.Equal(created.Account.Balance))

	buf, err = EncodeEvent(nil, changed)
	require.NoError(t, err)
	decoded, err = DecodeEvent(buf)
	require.NoError(t, err)
	gotChanged, ok := decoded.(account.BalanceChanged)
	require.True(t, ok)
	assert.True(t, gotChanged.Delta.Equal(changed.Delta))
}

func TestEncodeEventRejectsOversizedField(t *testing.T) {
	oversized := account.AccountCreated{Account: account.Account{
		ID:       "acc-1",
		Owner:    strings.Repeat("x", math.MaxUint16+1),
		Currency: "USD",
		Balance:  decimal.RequireFromString("100.0"),
	}}
	_, err := EncodeEvent(nil, oversized)
	assert.ErrorIs(t, err, exception.ErrCodecFieldTooLarge)

	// A field at exactly the prefix limit still round-trips.
	boundary := account.AccountCreated{Account: account.Account{
		ID:       "acc-1",
		Owner:    strings.Repeat("x", math.MaxUint16),
		Currency: "USD",
		Balance:  decimal.RequireFromString("100.0"),
	}}
	buf, err := EncodeEvent(nil, boundary)
	require.NoError(t, err)
	decoded, err := DecodeEvent(buf)
	require.NoError(t, err)
	got, ok := decoded.(account.AccountCreated)
	require.True(t, ok)
	assert.Equal(t, boundary.Account.Owner, got.Account.Owner)
}

func TestDecodeEventErrors(t *testing.T) {
	_, err := DecodeEvent(nil)
	assert.ErrorIs(t, err, exception.ErrCodecShortBuffer)

	_, err = DecodeEvent([]byte{0xFF})
	assert.ErrorIs(t, err, exception.ErrCodecUnknownEvent)

	// Truncated payload after a valid type byte.
	buf, err := EncodeEvent(nil, account.BalanceChanged{Delta: decimal.RequireFromString("5")})
	require.NoError(t, err)
	_, err = DecodeEvent(buf[:len(buf)-1])
	assert.ErrorIs(t, err, exception.ErrCodecShortBuffer)
}
