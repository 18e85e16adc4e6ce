// SPDX-License-Identifier: MIT

package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	xglog "github.com/ManuGH/playercount/internal/log"
	"github.com/ManuGH/playercount/internal/platform/httpx"
)

const maxBodyBytes = 16 << 20

// Fetcher returns the current feed snapshot.
type Fetcher interface {
	Fetch(ctx context.Context) (*Snapshot, error)
}

// Client fetches the stats feed over HTTP.
type Client struct {
	url  string
	http *http.Client
}

// New returns a client for the feed at url using the hardened httpx client.
func New(url string, timeout time.Duration) *Client {
	return NewWithHTTPClient(url, httpx.NewInstrumentedClient(timeout))
}

// NewWithHTTPClient returns a client that uses hc for requests.
func NewWithHTTPClient(url string, hc *http.Client) *Client {
	return &Client{url: strings.TrimSpace(url), http: hc}
}

// URL returns the configured feed endpoint.
func (c *Client) URL() string { return c.url }

// Fetch performs one GET against the feed and decodes the body.
func (c *Client) Fetch(ctx context.Context) (*Snapshot, error) {
	const op = "feed.fetch"
	logger := xglog.WithComponentFromContext(ctx, "feed")
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &Error{Sentinel: ErrFeedUnreachable, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Sentinel: ErrFeedUnreachable, Op: op, Err: err}
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		return nil, &Error{Sentinel: ErrFeedUnreachable, Op: op, Status: res.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes+1))
	if err != nil {
		return nil, &Error{Sentinel: ErrFeedUnreachable, Op: op, Status: res.StatusCode, Err: err}
	}
	if len(body) > maxBodyBytes {
		return nil, &Error{Sentinel: ErrFeedMalformed, Op: op, Status: res.StatusCode,
			Err: fmt.Errorf("body exceeds %d bytes", maxBodyBytes)}
	}

	snap, err := Decode(body)
	if err != nil {
		return nil, &Error{Sentinel: ErrFeedMalformed, Op: op, Status: res.StatusCode, Err: err}
	}

	logger.Debug().
		Str(xglog.FieldEvent, "feed.fetched").
		Int64(xglog.FieldTotalUsers, snap.TotalUsers).
		Int("ticket_games", len(snap.TicketGames)).
		Int("psn_games", len(snap.PSNGames)).
		Dur("duration", time.Since(start)).
		Msg("feed snapshot fetched")

	return snap, nil
}
