// SPDX-License-Identifier: MIT

package aggregate

import (
	"github.com/ManuGH/playercount/internal/feed"
	"github.com/ManuGH/playercount/internal/normalize"
)

// Index folds one feed family into normalized ID -> summed count, so each
// configured catalog ID resolves with one lookup instead of a feed scan.
type Index map[normalize.ID]int64

// BuildIndex normalizes every raw key in counts. Raw keys that normalize to
// the same ID have their counts summed.
func BuildIndex(counts map[string]int64) Index {
	idx := make(Index, len(counts))
	for raw, n := range counts {
		if n < 0 {
			n = 0
		}
		idx[normalize.Normalize(raw)] += n
	}
	return idx
}

// Lookup returns the summed count for the normalized form of a configured
// ID. Blank IDs never match.
func (idx Index) Lookup(configured string) int64 {
	if normalize.Blank(configured) {
		return 0
	}
	return idx[normalize.Normalize(configured)]
}

// Sum looks up every configured ID and adds the results. A feed entry that
// several configured IDs normalize to is counted once per configured ID.
func (idx Index) Sum(configured []string) int64 {
	var total int64
	for _, id := range configured {
		total += idx.Lookup(id)
	}
	return total
}

// FeedIndex holds one Index per feed family.
type FeedIndex struct {
	Ticket Index
	PSN    Index
}

// IndexSnapshot builds both family indexes for snap. A nil snapshot yields
// empty indexes.
func IndexSnapshot(snap *feed.Snapshot) FeedIndex {
	return FeedIndex{
		Ticket: BuildIndex(snap.Counts(feed.FamilyTicket)),
		PSN:    BuildIndex(snap.Counts(feed.FamilyPSN)),
	}
}
