package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		input    string
		expected Quantity
		wantErr  bool
	}{
		{input: "0", expected: 0},
		{input: "1", expected: 10_000},
		{input: "1.5", expected: 15_000},
		{input: "0.0001", expected: 1},
		{input: "-2.25", expected: -22_500},
		{input: "+3", expected: 30_000},
		{input: "10.12345", expected: 101_234}, // extra digits truncated
		{input: ".5", expected: 5_000},
		{input: "1e2", expected: 1_000_000},
		{input: "", wantErr: true},
		{input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			q, err := ParseQuantity(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, q)
		})
	}
}

func TestQuantityString(t *testing.T) {
	tests := []struct {
		q        Quantity
		expected string
	}{
		{NewQuantityFromInt(0), "0.0000"},
		{NewQuantityFromInt(5), "5.0000"},
		{NewQuantityFromFloat64(2.5), "2.5000"},
		{Quantity(1), "0.0001"},
		{NewQuantityFromInt(-3), "-3.0000"},
		{Quantity(-1), "-0.0001"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.q.String())
	}
}

func TestQuantityStringParseRoundTrip(t *testing.T) {
	for _, q := range []Quantity{0, 1, -1, 15_000, -22_500, NewQuantityFromInt(1_000_000)} {
		parsed, err := ParseQuantity(q.String())
		require.NoError(t, err)
		assert.Equal(t, q, parsed)
	}
}

func TestQuantityJSON(t *testing.T) {
	q := NewQuantityFromFloat64(12.5)

	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Equal(t, "12.5000", string(data))

	var fromNumber Quantity
	require.NoError(t, json.Unmarshal([]byte("12.5"), &fromNumber))
	assert.Equal(t, q, fromNumber)

	var fromString Quantity
	require.NoError(t, json.Unmarshal([]byte(`"12.5"`), &fromString))
	assert.Equal(t, q, fromString)

	var fromNull Quantity
	require.NoError(t, json.Unmarshal([]byte("null"), &fromNull))
	assert.True(t, fromNull.IsZero())
}

func TestQuantityArithmeticStaysExact(t *testing.T) {
	// 0.1 + 0.2 must be exactly 0.3 in fixed point.
	sum := NewQuantityFromFloat64(0.1) + NewQuantityFromFloat64(0.2)
	assert.Equal(t, NewQuantityFromFloat64(0.3), sum)

	assert.Equal(t, 0.3, sum.Float64())
}

func TestQuantityDecimal(t *testing.T) {
	q := NewQuantityFromFloat64(2.5)
	cost := MustMoney("10.00")

	total := cost.Mul(q.Decimal())
	assert.True(t, total.Equal(MustMoney("25.00")))
}

func TestQuantityPredicates(t *testing.T) {
	assert.True(t, Quantity(0).IsZero())
	assert.True(t, Quantity(1).IsPositive())
	assert.True(t, Quantity(-1).IsNegative())
	assert.Equal(t, Quantity(5), Quantity(-5).Abs())
	assert.Equal(t, Quantity(-5), Quantity(5).Neg())
}
