package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
	}{
		{"10.00", 1000},
		{"10", 1000},
		{"10.5", 1050},
		{"0.05", 5},
		{"-3.25", -325},
		{" 25.00 ", 2500},
	}
	for _, c := range cases {
		m, err := ParseMoney(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.cents, m.Cents(), c.in)
	}

	for _, bad := range []string{"", "abc", "1.234", "1,00"} {
		_, err := ParseMoney(bad)
		assert.Error(t, err, bad)
	}
}

func TestMoneyString(t *testing.T) {
	assert.Equal(t, "25.00", Money(2500).String())
	assert.Equal(t, "0.05", Money(5).String())
	assert.Equal(t, "-3.25", Money(-325).String())
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	b, err := json.Marshal(Money(1550))
	require.NoError(t, err)
	assert.Equal(t, `"15.50"`, string(b))

	var m Money
	require.NoError(t, json.Unmarshal([]byte(`"10.00"`), &m))
	assert.Equal(t, Money(1000), m)

	// Bare number literals are accepted as decimal amounts.
	require.NoError(t, json.Unmarshal([]byte(`12.5`), &m))
	assert.Equal(t, Money(1250), m)
}

func TestMoneySumIsPlainAddition(t *testing.T) {
	base := Money(1000)
	vip := Money(500)
	total := base + base + vip
	assert.Equal(t, "25.00", total.String())
}
