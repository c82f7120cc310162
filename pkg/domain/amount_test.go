package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "skimvault/pkg/domain-errors"
)

const maxUint256 = "115792089237316195423570985008687907853269984665640564039457584007913129639935"

func TestAmountArithmetic(t *testing.T) {
	t.Run("add and sub", func(t *testing.T) {
		sum, err := NewAmount(60).Add(NewAmount(40))
		require.NoError(t, err)
		assert.Equal(t, "100", sum.String())

		diff, err := sum.Sub(NewAmount(100))
		require.NoError(t, err)
		assert.True(t, diff.IsZero())
	})

	t.Run("sub rejects underflow", func(t *testing.T) {
		_, err := NewAmount(1).Sub(NewAmount(2))
		assert.ErrorIs(t, err, ErrAmountUnderflow)
	})

	t.Run("add rejects overflow", func(t *testing.T) {
		_, err := MustAmount(maxUint256).Add(NewAmount(1))
		assert.ErrorIs(t, err, ErrAmountOverflow)
	})

	t.Run("muldiv floors", func(t *testing.T) {
		out, err := NewAmount(150_000_000).MulDiv(NewAmount(1_000_000), NewAmount(45_000_000_000))
		require.NoError(t, err)
		assert.Equal(t, "3333", out.String())
	})

	t.Run("muldiv survives intermediate overflow", func(t *testing.T) {
		big := MustAmount(maxUint256)
		out, err := big.MulDiv(NewAmount(3), NewAmount(3))
		require.NoError(t, err)
		assert.Equal(t, maxUint256, out.String())
	})

	t.Run("muldiv rejects zero divisor", func(t *testing.T) {
		_, err := NewAmount(1).MulDiv(NewAmount(1), Zero)
		assert.ErrorIs(t, err, ErrDivisionByZero)
	})

	t.Run("sum", func(t *testing.T) {
		total, err := Sum(NewAmount(1), NewAmount(2), NewAmount(3))
		require.NoError(t, err)
		assert.Equal(t, NewAmount(6), total)
	})
}

func TestParseAmount(t *testing.T) {
	t.Run("rejects negative", func(t *testing.T) {
		_, err := ParseAmount("-5")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParseAmount("  ")
		require.Error(t, err)
	})

	t.Run("accepts max value", func(t *testing.T) {
		a, err := ParseAmount(maxUint256)
		require.NoError(t, err)
		assert.Equal(t, maxUint256, a.String())
	})
}

func TestAmountJSON(t *testing.T) {
	type payload struct {
		Amount Amount `json:"amount"`
	}

	t.Run("encodes as decimal string", func(t *testing.T) {
		out, err := json.Marshal(payload{Amount: NewAmount(150_000_000)})
		require.NoError(t, err)
		assert.JSONEq(t, `{"amount":"150000000"}`, string(out))
	})

	t.Run("decodes bare integers", func(t *testing.T) {
		var p payload
		require.NoError(t, json.Unmarshal([]byte(`{"amount":42}`), &p))
		assert.Equal(t, NewAmount(42), p.Amount)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		var p payload
		assert.Error(t, json.Unmarshal([]byte(`{"amount":"ten"}`), &p))
	})
}
