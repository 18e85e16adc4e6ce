// SPDX-License-Identifier: MIT

// Package audit records feed identifiers that match nothing in the catalog.
//
// Each pass classifies every raw key of both feed families against the whole
// catalog and upserts the unmatched ones into a de-duplicated Log. The Log is
// persisted through a Store, which serializes the read-merge-write cycle.
package audit

import (
	"sort"
	"time"

	"github.com/ManuGH/playercount/internal/catalog"
	"github.com/ManuGH/playercount/internal/feed"
	"github.com/ManuGH/playercount/internal/normalize"
)

// Families are audited in this order.
var Families = []feed.Family{feed.FamilyPSN, feed.FamilyTicket}

// Known is the set of normalized catalog identifiers for one family.
type Known map[normalize.ID]struct{}

// KnownIDs collects the normalized identifiers the catalog configures for
// family, across every title. Blank entries are skipped.
func KnownIDs(cat catalog.Catalog, family feed.Family) Known {
	known := make(Known)
	for _, ids := range cat {
		list := ids.TitleIDs
		if family == feed.FamilyPSN {
			list = ids.CommIDs
		}
		for _, raw := range list {
			if normalize.Blank(raw) {
				continue
			}
			known[normalize.Normalize(raw)] = struct{}{}
		}
	}
	return known
}

// Has reports whether raw matches a catalog identifier.
func (k Known) Has(raw string) bool {
	_, ok := k[normalize.Normalize(raw)]
	return ok
}

// Classification splits the raw feed keys of each family into matched and
// unmatched, both sorted. Every raw key lands in exactly one of the two.
type Classification struct {
	Matched   map[feed.Family][]string `json:"matched"`
	Unmatched map[feed.Family][]string `json:"unmatched"`
}

// Classify compares every raw feed key with the catalog identifiers of its
// family.
func Classify(cat catalog.Catalog, snap *feed.Snapshot) Classification {
	c := Classification{
		Matched:   make(map[feed.Family][]string, len(Families)),
		Unmatched: make(map[feed.Family][]string, len(Families)),
	}
	for _, family := range Families {
		known := KnownIDs(cat, family)
		matched, unmatched := []string{}, []string{}
		for raw := range snap.Counts(family) {
			if known.Has(raw) {
				matched = append(matched, raw)
			} else {
				unmatched = append(unmatched, raw)
			}
		}
		sort.Strings(matched)
		sort.Strings(unmatched)
		c.Matched[family] = matched
		c.Unmatched[family] = unmatched
	}
	return c
}

// Report describes one audit pass.
type Report struct {
	Classification
	// Appended lists raw IDs that got a new log entry, in log order.
	Appended []string `json:"appended"`
	// Incremented lists raw IDs whose existing entry was bumped.
	Incremented []string `json:"incremented"`
}

// UnmatchedTotal counts unmatched raw keys over both families.
func (r Report) UnmatchedTotal() int {
	n := 0
	for _, ids := range r.Unmatched {
		n += len(ids)
	}
	return n
}

// MatchedTotal counts matched raw keys over both families.
func (r Report) MatchedTotal() int {
	n := 0
	for _, ids := range r.Matched {
		n += len(ids)
	}
	return n
}

// Audit upserts every unmatched feed key into log and returns it. A raw ID
// that is unmatched in both families is recorded once. A zero now leaves
// timestamps off. A nil log starts empty.
func Audit(cat catalog.Catalog, snap *feed.Snapshot, log *Log, now time.Time) (*Log, Report) {
	if log == nil {
		log = NewLog()
	}
	report := Report{Classification: Classify(cat, snap)}

	seen := make(map[string]struct{})
	for _, family := range Families {
		for _, raw := range report.Unmatched[family] {
			if _, dup := seen[raw]; dup {
				continue
			}
			seen[raw] = struct{}{}
			if log.Upsert(raw, now) {
				report.Appended = append(report.Appended, raw)
			} else {
				report.Incremented = append(report.Incremented, raw)
			}
		}
	}
	return log, report
}
