package pixapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		amount string
		cents  int64
		ok     bool
	}{
		{"150.00", 15000, true},
		{"150", 15000, true},
		{"0.5", 50, true},
		{"0.05", 5, true},
		{"0", 0, true},
		{"10.999", 0, false},
		{"-5.00", 0, false},
		{"10,50", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{".50", 0, false},
	}

	for _, tc := range cases {
		cents, ok := parseAmount(tc.amount)
		assert.Equal(t, tc.ok, ok, "amount %q", tc.amount)
		if tc.ok {
			assert.Equal(t, tc.cents, cents, "amount %q", tc.amount)
		}
	}
}
