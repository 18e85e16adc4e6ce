// SPDX-License-Identifier: MIT

package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Fetch(t *testing.T) {
	srv := serve(t, http.StatusOK, `{
		"num_users": 42,
		"psn_games": {"NPXX00111": 3},
		"ticket_games": {"ABCD-111": 10}
	}`)

	snap, err := New(srv.URL, time.Second).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), snap.TotalUsers)
	assert.Equal(t, map[string]int64{"NPXX00111": 3}, snap.PSNGames)
	assert.Equal(t, map[string]int64{"ABCD-111": 10}, snap.TicketGames)
}

func TestClient_Fetch_MissingMapsAreEmpty(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"num_users": 7}`)

	snap, err := New(srv.URL, time.Second).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), snap.TotalUsers)
	assert.NotNil(t, snap.PSNGames)
	assert.NotNil(t, snap.TicketGames)
	assert.Empty(t, snap.Counts(FamilyPSN))
	assert.Empty(t, snap.Counts(FamilyTicket))
}

func TestClient_Fetch_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		kind     string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "oops", sentinel: ErrFeedUnreachable, kind: "unreachable"},
		{name: "not found", status: http.StatusNotFound, body: "", sentinel: ErrFeedUnreachable, kind: "unreachable"},
		{name: "invalid json", status: http.StatusOK, body: "<html>", sentinel: ErrFeedMalformed, kind: "malformed"},
		{name: "null document", status: http.StatusOK, body: " null ", sentinel: ErrFeedMalformed, kind: "malformed"},
		{name: "wrong count type", status: http.StatusOK, body: `{"psn_games": {"A": "many"}}`, sentinel: ErrFeedMalformed, kind: "malformed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, tt.status, tt.body)
			_, err := New(srv.URL, time.Second).Fetch(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.kind, Kind(err))

			var fe *Error
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.status, fe.Status)
		})
	}
}

func TestClient_Fetch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, 500*time.Millisecond).Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFeedUnreachable)
	assert.Contains(t, err.Error(), "feed.fetch")
}

func TestClient_Fetch_ContextCancelled(t *testing.T) {
	srv := serve(t, http.StatusOK, `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(srv.URL, time.Second).Fetch(ctx)
	assert.ErrorIs(t, err, ErrFeedUnreachable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecode_ClampsNegativeCounts(t *testing.T) {
	snap, err := Decode([]byte(`{"num_users": -1, "psn_games": {"A": -5, "B": 2}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.TotalUsers)
	assert.Equal(t, int64(0), snap.PSNGames["A"])
	assert.Equal(t, int64(2), snap.PSNGames["B"])
}

func TestSnapshot_CountsNil(t *testing.T) {
	var snap *Snapshot
	assert.Empty(t, snap.Counts(FamilyPSN))
	assert.Empty(t, (&Snapshot{}).Counts(Family("other")))
}

func TestError_Message(t *testing.T) {
	err := &Error{Sentinel: ErrFeedUnreachable, Op: "feed.fetch", Status: 503}
	assert.True(t, strings.HasPrefix(err.Error(), "feed.fetch: feed: unreachable (HTTP 503)"))
	assert.Equal(t, "unknown", Kind(errors.New("other")))
}
