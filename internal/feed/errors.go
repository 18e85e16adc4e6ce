// SPDX-License-Identifier: MIT

package feed

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrFeedUnreachable = errors.New("feed: unreachable")
	ErrFeedMalformed   = errors.New("feed: malformed response")
)

// Error wraps a feed sentinel with request context.
type Error struct {
	Sentinel error
	Op       string
	Status   int
	Err      error // lower-level cause (net.Error, json.SyntaxError, ...)
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}

// Kind returns a short label for metrics: "unreachable", "malformed" or
// "unknown".
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrFeedUnreachable):
		return "unreachable"
	case errors.Is(err, ErrFeedMalformed):
		return "malformed"
	default:
		return "unknown"
	}
}
