// SPDX-License-Identifier: MIT

// Package normalize canonicalizes raw feed and catalog identifiers into
// comparison keys.
//
// The stats feed reports two identifier shapes for the same logical title:
// a hyphenated regional product code (NPEB-01234) and a bare identifier with
// a numeric disc/variant suffix (NPWR01234_00). Both collapse to a single
// key so catalog entries and feed entries can be joined by equality.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

// ID is a normalized identifier. Two raw identifiers are equivalent iff their
// IDs are equal (case-sensitive).
type ID string

// Empty reports whether the ID carries no usable key.
func (id ID) Empty() bool { return id == "" }

func (id ID) String() string { return string(id) }

var (
	productCode   = regexp.MustCompile(`[A-Za-z0-9]+-[A-Za-z0-9]+`)
	variantSuffix = regexp.MustCompile(`_[0-9]+$`)
)

// Normalize maps a raw identifier to its comparison key:
//   - if raw contains "alnum+ - alnum+", the key is the part of the first
//     such match after its hyphen (ABCD-EFGH01234 -> EFGH01234);
//   - otherwise a trailing _<digits> suffix is removed (XYZ_01 -> XYZ).
//
// Normalize does not trim; callers skip blank slots with Blank first.
func Normalize(raw string) ID {
	if m := productCode.FindString(raw); m != "" {
		return ID(m[strings.IndexByte(m, '-')+1:])
	}
	return ID(variantSuffix.ReplaceAllString(raw, ""))
}

// Token trims Unicode whitespace and invisible edge characters that
// hand-edited catalogs tend to pick up. catalog.Parse applies it to every
// configured identifier before matching. Case is preserved.
func Token(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) ||
			r == '\u200B' || // Zero Width Space
			r == '\u200C' || // Zero Width Non-Joiner
			r == '\u200D' || // Zero Width Joiner
			r == '\uFEFF' // BOM
	})
}

// Blank reports whether raw is empty once edge whitespace is removed.
// Blank catalog slots are skipped rather than compared.
func Blank(raw string) bool {
	return Token(raw) == ""
}
