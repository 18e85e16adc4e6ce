// SPDX-License-Identifier: MIT

// Package aggregate merges live feed counts into per-title player counts and
// orders them for presentation.
package aggregate

import (
	"fmt"
	"strings"

	"github.com/ManuGH/playercount/internal/catalog"
	"github.com/ManuGH/playercount/internal/feed"
)

// Mode selects how the two identifier families combine for a title.
type Mode string

const (
	// ModeCommPriority uses communication-ID counts when positive and falls
	// back to title-ID counts otherwise.
	ModeCommPriority Mode = "comm_priority"
	// ModeMerge adds both families together.
	ModeMerge Mode = "merge"
)

// ParseMode validates a configured mode name. Empty selects ModeCommPriority.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeCommPriority:
		return ModeCommPriority, nil
	case ModeMerge:
		return ModeMerge, nil
	default:
		return "", fmt.Errorf("unknown aggregate mode %q (want %q or %q)", s, ModeCommPriority, ModeMerge)
	}
}

// Result maps every catalog title to its aggregated player count (>= 0).
// Titles with no matches are present with count 0.
type Result map[string]int64

// Aggregate computes per-title counts with the communication-ID priority
// rule: for each title, a positive sum of matching psn_games counts is the
// result and title IDs are not consulted; otherwise the sum of matching
// ticket_games counts is the result.
func Aggregate(cat catalog.Catalog, snap *feed.Snapshot) Result {
	return AggregateWith(cat, snap, ModeCommPriority)
}

// Merge computes per-title counts as the sum of both families.
func Merge(cat catalog.Catalog, snap *feed.Snapshot) Result {
	return AggregateWith(cat, snap, ModeMerge)
}

// AggregateWith computes per-title counts under mode.
func AggregateWith(cat catalog.Catalog, snap *feed.Snapshot, mode Mode) Result {
	idx := IndexSnapshot(snap)
	out := make(Result, len(cat))
	for title, ids := range cat {
		out[title] = idx.Count(ids, mode)
	}
	return out
}

// Count resolves one title's identifiers against the indexes.
func (fi FeedIndex) Count(ids catalog.IdentifierSet, mode Mode) int64 {
	commCount := fi.PSN.Sum(ids.CommIDs)
	if mode == ModeMerge {
		return commCount + fi.Ticket.Sum(ids.TitleIDs)
	}
	if commCount > 0 {
		return commCount
	}
	return fi.Ticket.Sum(ids.TitleIDs)
}
