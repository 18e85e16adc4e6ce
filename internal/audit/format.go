// SPDX-License-Identifier: MIT

package audit

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Line format, one entry per line:
//
//	<raw>
//	<raw> (seen N times)
//	<raw> [2026-10-19T12:00:00Z]
//	<raw> [2026-10-19T12:00:00Z] (seen N times)
//
// The count suffix is only written for N >= 2. A raw ID that is empty,
// contains whitespace or starts with a double quote is written Go-quoted.

var (
	seenSuffix  = regexp.MustCompile(`\(seen (\d+) times\)`)
	stampSuffix = regexp.MustCompile(`\[([^\]]+)\]`)
)

// FormatEntry renders one entry as a log line (without newline).
func FormatEntry(e Entry) string {
	var b strings.Builder
	b.WriteString(formatRaw(e.RawID))
	if !e.LastSeen.IsZero() {
		b.WriteString(" [")
		b.WriteString(e.LastSeen.UTC().Format(time.RFC3339))
		b.WriteByte(']')
	}
	if e.Count >= 2 {
		fmt.Fprintf(&b, " (seen %d times)", e.Count)
	}
	return b.String()
}

// ParseLine decodes one log line. Blank lines report ok=false.
func ParseLine(line string) (Entry, bool, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return Entry{}, false, nil
	}

	raw, rest, err := splitRaw(line)
	if err != nil {
		return Entry{}, false, err
	}

	e := Entry{RawID: raw, Count: 1}
	if m := seenSuffix.FindStringSubmatch(rest); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			return Entry{}, false, fmt.Errorf("invalid count in %q", line)
		}
		e.Count = n
	}
	if m := stampSuffix.FindStringSubmatch(rest); m != nil {
		ts, err := time.Parse(time.RFC3339, m[1])
		if err != nil {
			return Entry{}, false, fmt.Errorf("invalid timestamp in %q: %w", line, err)
		}
		e.LastSeen = ts
	}
	return e, true, nil
}

// Encode writes the whole log in line format.
func Encode(w io.Writer, l *Log) error {
	bw := bufio.NewWriter(w)
	for _, e := range l.Entries() {
		if _, err := bw.WriteString(FormatEntry(e)); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Decode reads a log in line format.
func Decode(data []byte) (*Log, error) {
	var entries []Entry
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		e, ok, err := ParseLine(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if ok {
			entries = append(entries, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return NewLog(entries...), nil
}

func formatRaw(raw string) string {
	if raw == "" || strings.HasPrefix(raw, `"`) || strings.IndexFunc(raw, unicode.IsSpace) >= 0 {
		return strconv.Quote(raw)
	}
	return raw
}

// splitRaw separates the raw identifier (the line prefix up to the first
// whitespace, or a quoted string) from the metadata that follows.
func splitRaw(line string) (string, string, error) {
	if strings.HasPrefix(line, `"`) {
		quoted, err := strconv.QuotedPrefix(line)
		if err != nil {
			return "", "", fmt.Errorf("invalid quoted id in %q: %w", line, err)
		}
		raw, err := strconv.Unquote(quoted)
		if err != nil {
			return "", "", fmt.Errorf("invalid quoted id in %q: %w", line, err)
		}
		return raw, line[len(quoted):], nil
	}
	if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
		return line[:i], line[i:], nil
	}
	return line, "", nil
}
