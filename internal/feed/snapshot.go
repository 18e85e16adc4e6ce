// SPDX-License-Identifier: MIT

// Package feed fetches and decodes the live player-count statistics feed.
package feed

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Family names one of the two identifier namespaces the feed reports.
type Family string

const (
	// FamilyTicket covers ticket_games, keyed by title ID.
	FamilyTicket Family = "ticket"
	// FamilyPSN covers psn_games, keyed by communication ID.
	FamilyPSN Family = "psn"
)

// Snapshot is one decoded feed response. Absent maps decode as empty.
type Snapshot struct {
	TotalUsers  int64            `json:"num_users"`
	TicketGames map[string]int64 `json:"ticket_games"`
	PSNGames    map[string]int64 `json:"psn_games"`
}

// Counts returns the raw-ID -> count map for a family (never nil).
func (s *Snapshot) Counts(f Family) map[string]int64 {
	if s == nil {
		return map[string]int64{}
	}
	var m map[string]int64
	switch f {
	case FamilyTicket:
		m = s.TicketGames
	case FamilyPSN:
		m = s.PSNGames
	}
	if m == nil {
		return map[string]int64{}
	}
	return m
}

// Decode parses a feed payload. Negative counts are clamped to zero and
// missing maps become empty maps.
func Decode(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	// "null" decodes without error but carries nothing usable.
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, errors.New("empty document")
	}
	snap.sanitize()
	return &snap, nil
}

func (s *Snapshot) sanitize() {
	if s.TotalUsers < 0 {
		s.TotalUsers = 0
	}
	if s.TicketGames == nil {
		s.TicketGames = map[string]int64{}
	}
	if s.PSNGames == nil {
		s.PSNGames = map[string]int64{}
	}
	for _, m := range []map[string]int64{s.TicketGames, s.PSNGames} {
		for k, v := range m {
			if v < 0 {
				m[k] = 0
			}
		}
	}
}
