// SPDX-License-Identifier: MIT

// Package catalog loads the static game catalog: a mapping from display title
// to the title IDs and communication IDs that identify it in the stats feed.
//
// A Catalog value is an immutable snapshot. Provider keeps the last good
// snapshot in memory and swaps it atomically when the file changes on disk.
package catalog

import (
	"errors"
	"sort"
)

var (
	// ErrCatalogUnavailable reports that the catalog source could not be read.
	ErrCatalogUnavailable = errors.New("catalog: unavailable")
	// ErrCatalogMalformed reports that the catalog source could not be parsed.
	ErrCatalogMalformed = errors.New("catalog: malformed")
)

// IdentifierSet lists the feed identifiers configured for one title.
// Entries may be blank; blank entries are never compared against the feed.
type IdentifierSet struct {
	TitleIDs []string `json:"title_ids" yaml:"title_ids"`
	CommIDs  []string `json:"comm_ids" yaml:"comm_ids"`
}

// Catalog maps a game title (display string, unique) to its identifiers.
type Catalog map[string]IdentifierSet

// Titles returns the catalog titles in byte order.
func (c Catalog) Titles() []string {
	out := make([]string, 0, len(c))
	for title := range c {
		out = append(out, title)
	}
	sort.Strings(out)
	return out
}
