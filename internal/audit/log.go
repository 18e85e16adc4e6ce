// SPDX-License-Identifier: MIT

package audit

import (
	"time"
)

// Entry is one audit log line: a raw feed identifier that matched nothing in
// the catalog, how many passes have observed it, and optionally when it was
// last observed.
type Entry struct {
	RawID    string    `json:"raw_id"`
	Count    int       `json:"count"`
	LastSeen time.Time `json:"last_seen,omitempty"`
}

// Log is the ordered, de-duplicated set of unmatched identifiers. Entries
// are appended or updated, never removed. A Log is not safe for concurrent
// use; Store.Update serializes access to the persisted copy.
type Log struct {
	entries []Entry
	index   map[string]int
}

// NewLog builds a log from entries in order. Repeated raw IDs (for example
// from a hand-edited file) are folded into their first occurrence with
// their counts summed.
func NewLog(entries ...Entry) *Log {
	l := &Log{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		if e.Count < 1 {
			e.Count = 1
		}
		if i, ok := l.index[e.RawID]; ok {
			l.entries[i].Count += e.Count
			if e.LastSeen.After(l.entries[i].LastSeen) {
				l.entries[i].LastSeen = e.LastSeen
			}
			continue
		}
		l.index[e.RawID] = len(l.entries)
		l.entries = append(l.entries, e)
	}
	return l
}

// Len returns the number of distinct identifiers in the log.
func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// Entries returns a copy of the entries in log order.
func (l *Log) Entries() []Entry {
	if l == nil {
		return nil
	}
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Find returns the entry whose line begins with rawID followed by a field
// boundary. Matching is on the raw string, never on its normalized form, so
// two raw IDs that normalize equal keep separate lines.
func (l *Log) Find(rawID string) (Entry, bool) {
	if l == nil {
		return Entry{}, false
	}
	i, ok := l.index[rawID]
	if !ok {
		return Entry{}, false
	}
	return l.entries[i], true
}

// Upsert records one observation of rawID. An existing entry has its count
// incremented (the first repeat yields 2) and, when now is non-zero, its
// timestamp refreshed. Otherwise a new entry with count 1 is appended.
// It reports whether a new entry was created.
func (l *Log) Upsert(rawID string, now time.Time) bool {
	if l.index == nil {
		l.index = make(map[string]int)
	}
	if i, ok := l.index[rawID]; ok {
		l.entries[i].Count++
		if !now.IsZero() {
			l.entries[i].LastSeen = now
		}
		return false
	}
	l.index[rawID] = len(l.entries)
	l.entries = append(l.entries, Entry{RawID: rawID, Count: 1, LastSeen: now})
	return true
}
