package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayNameRoundTrip(t *testing.T) {
	cases := []struct {
		code string
		name string
	}{
		{"1234567", "Acme Corp"},
		{"1234567890", "Internal"},
		{"7654321", "Name - with separator"},
		{"9999999", ""},
	}
	for _, tc := range cases {
		display := DisplayName(tc.code, tc.name)
		code, name, err := ParseDisplayName(display)
		require.NoError(t, err, display)
		assert.Equal(t, tc.code, code)
		assert.Equal(t, tc.name, name)
	}
}

func TestParseDisplayNameRejectsForeignNames(t *testing.T) {
	foreign := []string{
		"no separator here",
		"ABC1234 - letters in code",
		"123456 - too short",
		"12345678901 - too long",
		" - empty code",
		"1234567-no spaced separator",
	}
	for _, display := range foreign {
		_, _, err := ParseDisplayName(display)
		assert.ErrorIs(t, err, ErrNamingConvention, display)
	}
}

func TestValidCode(t *testing.T) {
	assert.True(t, ValidCode("1234567"))
	assert.True(t, ValidCode("1234567890"))
	assert.False(t, ValidCode("123456"))
	assert.False(t, ValidCode("12345678901"))
	assert.False(t, ValidCode("12345A7"))
	assert.False(t, ValidCode(""))
}
