package cardnum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateLuhn(t *testing.T) {
	cases := map[string]bool{
		"4111111111111111": true,
		"5555555555554444": true,
		"4111111111111112": false,
		"4111 1111":        false,
		"":                 false,
		"abc":              false,
	}
	for number, want := range cases {
		assert.Equal(t, want, ValidateLuhn(number), number)
	}
}

func TestStripCardNumber(t *testing.T) {
	assert.Equal(t, "4111111111111111", StripCardNumber(" 4111 1111-1111 1111 "))
	assert.True(t, IsDigits(StripCardNumber("5555 5555 5555 4444")))
	assert.False(t, IsDigits(""))
}
