package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ids := []string{
		"3f2b9c1e-8a4d-4c6e-9f1b-2d7a5e8c3b10",
		"12345",
		"legacy-patient-7",
	}
	for _, id := range ids {
		tok := Encode(id)
		got, err := Decode(tok)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestDecodeTrimsWhitespace(t *testing.T) {
	got, err := Decode("  3f2b9c1e-8a4d-4c6e-9f1b-2d7a5e8c3b10\n")
	require.NoError(t, err)
	assert.Equal(t, "3f2b9c1e-8a4d-4c6e-9f1b-2d7a5e8c3b10", got)
}

func TestDecodeRejectsMalformedTokens(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"abc def",
		"abc_def",
		"abc!",
		"café",
		strings.Repeat("a", 65),
	}
	for _, tok := range cases {
		_, err := Decode(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", tok)
	}
}

func TestDecodeAcceptsMaxLength(t *testing.T) {
	tok := strings.Repeat("a", 64)
	got, err := Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, tok, got)
}
