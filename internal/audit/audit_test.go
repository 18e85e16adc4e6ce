// SPDX-License-Identifier: MIT

package audit

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/playercount/internal/catalog"
	"github.com/ManuGH/playercount/internal/feed"
)

func testCatalog() catalog.Catalog {
	return catalog.Catalog{
		"Game A": {TitleIDs: []string{"ABCD-111"}, CommIDs: []string{"NPXX00111", ""}},
		"Game B": {TitleIDs: []string{"BLUS30443"}, CommIDs: []string{"NPWR00222_00"}},
	}
}

func TestAudit_UnmatchedTicketAppended(t *testing.T) {
	snap := &feed.Snapshot{TicketGames: map[string]int64{"ZZZZ-999": 1}}

	l, report := Audit(testCatalog(), snap, nil, time.Time{})

	require.Equal(t, 1, l.Len())
	e, ok := l.Find("ZZZZ-999")
	require.True(t, ok)
	assert.Equal(t, 1, e.Count)
	assert.True(t, e.LastSeen.IsZero())
	assert.Equal(t, []string{"ZZZZ-999"}, report.Appended)
	assert.Empty(t, report.Incremented)
}

func TestAudit_TwiceYieldsOneEntryCountTwo(t *testing.T) {
	snap := &feed.Snapshot{PSNGames: map[string]int64{"NPWR99999_00": 4}}

	l, _ := Audit(testCatalog(), snap, nil, time.Time{})
	l, report := Audit(testCatalog(), snap, l, time.Time{})

	want := []Entry{{RawID: "NPWR99999_00", Count: 2}}
	if diff := cmp.Diff(want, l.Entries()); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, report.Appended)
	assert.Equal(t, []string{"NPWR99999_00"}, report.Incremented)
}

func TestAudit_MatchedAcrossWholeCatalog(t *testing.T) {
	snap := &feed.Snapshot{
		TicketGames: map[string]int64{"XXXX-111": 1, "BLUS30443": 2},
		PSNGames:    map[string]int64{"NPXX00111_01": 3, "NPWR00222": 1},
	}

	l, report := Audit(testCatalog(), snap, nil, time.Time{})

	assert.Equal(t, 0, l.Len())
	assert.Equal(t, []string{"BLUS30443", "XXXX-111"}, report.Matched[feed.FamilyTicket])
	assert.Equal(t, []string{"NPWR00222", "NPXX00111_01"}, report.Matched[feed.FamilyPSN])
	assert.Equal(t, 0, report.UnmatchedTotal())
	assert.Equal(t, 4, report.MatchedTotal())
}

func TestAudit_FamiliesAreSeparate(t *testing.T) {
	// A comm ID appearing under ticket_games is compared against title IDs only.
	snap := &feed.Snapshot{TicketGames: map[string]int64{"NPXX00111": 1}}

	_, report := Audit(testCatalog(), snap, nil, time.Time{})

	assert.Equal(t, []string{"NPXX00111"}, report.Unmatched[feed.FamilyTicket])
}

func TestAudit_SameRawIDInBothFamiliesUpsertedOnce(t *testing.T) {
	snap := &feed.Snapshot{
		TicketGames: map[string]int64{"QQQQ0001": 1},
		PSNGames:    map[string]int64{"QQQQ0001": 1},
	}

	l, report := Audit(testCatalog(), snap, nil, time.Time{})

	require.Equal(t, 1, l.Len())
	e, _ := l.Find("QQQQ0001")
	assert.Equal(t, 1, e.Count)
	assert.Equal(t, 2, report.UnmatchedTotal())
	assert.Equal(t, []string{"QQQQ0001"}, report.Appended)
}

func TestAudit_BlankCommIDsNeverMatch(t *testing.T) {
	cat := catalog.Catalog{"Blank": {CommIDs: []string{"", "  "}}}
	snap := &feed.Snapshot{PSNGames: map[string]int64{"": 1}}

	_, report := Audit(cat, snap, nil, time.Time{})

	assert.Equal(t, []string{""}, report.Unmatched[feed.FamilyPSN])
}

func TestAudit_RawIDsNotCollapsedByNormalization(t *testing.T) {
	snap := &feed.Snapshot{TicketGames: map[string]int64{"ZZZZ-999": 1, "YYYY-999": 1}}

	l, _ := Audit(testCatalog(), snap, nil, time.Time{})

	assert.Equal(t, 2, l.Len())
}

func TestAudit_TimestampsRefreshed(t *testing.T) {
	t1 := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	snap := &feed.Snapshot{TicketGames: map[string]int64{"ZZZZ-999": 1}}

	l, _ := Audit(testCatalog(), snap, nil, t1)
	l, _ = Audit(testCatalog(), snap, l, t2)

	e, _ := l.Find("ZZZZ-999")
	assert.Equal(t, 2, e.Count)
	assert.Equal(t, t2, e.LastSeen)
}

func TestAudit_NilSnapshot(t *testing.T) {
	l, report := Audit(testCatalog(), nil, nil, time.Time{})
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 0, report.UnmatchedTotal())
}

func TestAudit_AppendOrderIsDeterministic(t *testing.T) {
	snap := &feed.Snapshot{
		TicketGames: map[string]int64{"T-3": 1, "T-1": 1},
		PSNGames:    map[string]int64{"P2": 1, "P1": 1},
	}

	l, _ := Audit(catalog.Catalog{}, snap, nil, time.Time{})

	var got []string
	for _, e := range l.Entries() {
		got = append(got, e.RawID)
	}
	assert.Equal(t, []string{"P1", "P2", "T-1", "T-3"}, got)
}

func TestNewLog_FoldsDuplicates(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLog(
		Entry{RawID: "A", Count: 2},
		Entry{RawID: "B"},
		Entry{RawID: "A", Count: 1, LastSeen: t1},
	)

	want := []Entry{{RawID: "A", Count: 3, LastSeen: t1}, {RawID: "B", Count: 1}}
	if diff := cmp.Diff(want, l.Entries()); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}
