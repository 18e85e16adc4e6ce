// SPDX-License-Identifier: MIT

package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ID
	}{
		{name: "hyphenated product code", raw: "NPEB-01234", want: "01234"},
		{name: "product code with letters after hyphen", raw: "ABCD-EFGH01234", want: "EFGH01234"},
		{name: "disc suffix 00", raw: "ABCDE_00", want: "ABCDE"},
		{name: "disc suffix 12", raw: "ABCDE_12", want: "ABCDE"},
		{name: "long numeric suffix", raw: "XYZ_0123", want: "XYZ"},
		{name: "bare id unchanged", raw: "NPWR01234", want: "NPWR01234"},
		{name: "non numeric suffix kept", raw: "XYZ_AB", want: "XYZ_AB"},
		{name: "underscore without digits kept", raw: "XYZ_", want: "XYZ_"},
		{name: "embedded product code", raw: "EP0001-NPEB01234_00-GAME", want: "NPEB01234"},
		{name: "first match wins", raw: "AA-BB CC-DD", want: "BB"},
		{name: "hyphen rule takes precedence over suffix", raw: "ABCD-EFG_01", want: "EFG"},
		{name: "lowercase code", raw: "npeb-01234", want: "01234"},
		{name: "trailing hyphen only", raw: "ABCD-", want: "ABCD-"},
		{name: "surrounding text ignored", raw: " NPEB-01234\n", want: "01234"},
		{name: "empty", raw: "", want: ""},
		{name: "whitespace is not trimmed", raw: " XYZ_01", want: " XYZ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_PlainIDsUnchanged(t *testing.T) {
	for _, raw := range []string{"NPWR00111", "BLUS30443", "abc", "X_Y", "GAME_v2"} {
		assert.Equal(t, ID(raw), Normalize(raw), raw)
	}
}

func TestNormalize_CaseSensitive(t *testing.T) {
	assert.NotEqual(t, Normalize("npwr00111"), Normalize("NPWR00111"))
}

func TestBlank(t *testing.T) {
	assert.True(t, Blank(""))
	assert.True(t, Blank("   "))
	assert.True(t, Blank("\u200B"))
	assert.False(t, Blank("NPWR00111"))
}

func FuzzNormalize(f *testing.F) {
	for _, seed := range []string{"NPEB-01234", "ABCDE_00", "XYZ", "AA-BB-CC", "A-B_01", ""} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, raw string) {
		got := Normalize(raw)
		if productCode.MatchString(raw) {
			// The hyphen branch returns the alnum run after the first hyphen,
			// so its output can never contain another product code.
			if strings.Contains(string(got), "-") {
				t.Fatalf("Normalize(%q) = %q still contains a hyphen", raw, got)
			}
			if Normalize(string(got)) != got {
				t.Fatalf("hyphen output %q is not a fixed point", got)
			}
		}
	})
}
