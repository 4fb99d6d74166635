package slug

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"Jean-François", "jean-francois"},
		{"Müller", "muller"},
		{"Zoë Weiß", "zoe-weiss"},
		{"  spaced  out  ", "--spaced--out--"},
		{"O'Brien", "obrien"},
		{"Ñandú señor", "nandu-senor"},
		{"already-clean", "already-clean"},
		{"", ""},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.want, Normalize(tc.in), "input %q", tc.in)
	}
}

func TestNormalizeCharset(t *testing.T) {
	out := Normalize("Ä!@#$%^&*() bête 42_x")
	for _, r := range out {
		ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_'
		require.True(t, ok, "unexpected rune %q in %q", r, out)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	once := Normalize("Jean-François Briefer")
	require.Equal(t, once, Normalize(once))
}

func TestForName(t *testing.T) {
	require.Equal(t, "jean-francois-briefer", ForName("Jean-François", "Briefer"))
	require.Equal(t, "anna-muller", ForName("  Anna ", " Müller "))
}
