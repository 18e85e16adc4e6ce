// SPDX-License-Identifier: MIT

package aggregate

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Ranked is one presentation row.
type Ranked struct {
	Title string `json:"title"`
	Count int64  `json:"count"`
}

// Rank orders titles by count descending and drops titles whose count is
// not positive. Equal counts are ordered by title (English collation, then
// byte order) so the output does not depend on map iteration order.
func Rank(result Result) []Ranked {
	out := make([]Ranked, 0, len(result))
	for title, count := range result {
		if count <= 0 {
			continue
		}
		out = append(out, Ranked{Title: title, Count: count})
	}

	col := collate.New(language.English)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if c := col.CompareString(out[i].Title, out[j].Title); c != 0 {
			return c < 0
		}
		return out[i].Title < out[j].Title
	})
	return out
}

// Total sums the counts of a ranked slice.
func Total(rows []Ranked) int64 {
	var n int64
	for _, r := range rows {
		n += r.Count
	}
	return n
}
