package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignedCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"-12.50", -1250, true},
		{"12.5", 1250, true},
		{"-0,99", -99, true},
		{"0.004", 0, false},
		{"0", 0, false},
		{"", 0, false},
		{"twelve", 0, false},
		{"-184467440737095517.16", 0, false},
		{"92233720368547758.08", 0, false},
		{"-92233720368547758.08", -9223372036854775808, true},
	}
	for _, tc := range cases {
		got, err := ParseSignedCents(tc.in)
		if tc.ok {
			require.NoError(t, err, tc.in)
			assert.Equal(t, tc.out, got, tc.in)
		} else {
			assert.Error(t, err, tc.in)
		}
	}
}

func TestCentsDecimal(t *testing.T) {
	assert.Equal(t, "-12.5", CentsDecimal(-1250))
	assert.Equal(t, "12", CentsDecimal(1200))
	assert.Equal(t, "0.01", CentsDecimal(1))
	assert.Equal(t, "0", CentsDecimal(0))
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Money `json:"a"`
	}{Money{Cents: 1250}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":12.5}`, string(b))

	var in struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":19.999,"b":"3.10"}`), &in))
	assert.Equal(t, int64(2000), in.A.Cents)
	assert.Equal(t, int64(310), in.B.Cents)

	assert.Error(t, json.Unmarshal([]byte(`{"a":"x"}`), &in))
}

func TestMoneyJSON_OutOfRange(t *testing.T) {
	var m Money
	err := json.Unmarshal([]byte(`184467440737095517.16`), &m)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Zero(t, m.Cents)

	require.NoError(t, json.Unmarshal([]byte(`92233720368547758.07`), &m))
	assert.Equal(t, int64(9223372036854775807), m.Cents)
}
