// SPDX-License-Identifier: MIT

package audit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/playercount/internal/feed"
)

func newStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	sqliteStore, err := OpenSQLiteStore(context.Background(), filepath.Join(dir, "audit.db"))
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	redisStore := NewRedisStore(client, "test:audit", time.Second)

	stores := map[string]Store{
		"file":   NewFileStore(filepath.Join(dir, "missing_ids.txt")),
		"sqlite": sqliteStore,
		"redis":  redisStore,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStores_AuditTwice(t *testing.T) {
	ctx := context.Background()
	snap := &feed.Snapshot{TicketGames: map[string]int64{"ZZZZ-999": 1}}

	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 2; i++ {
				err := s.Update(ctx, func(l *Log) error {
					Audit(testCatalog(), snap, l, time.Time{})
					return nil
				})
				require.NoError(t, err)
			}

			l, err := s.Load(ctx)
			require.NoError(t, err)
			want := []Entry{{RawID: "ZZZZ-999", Count: 2}}
			if diff := cmp.Diff(want, l.Entries()); diff != "" {
				t.Errorf("entries mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStores_PreserveOrderAndTimestamps(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Update(ctx, func(l *Log) error {
				l.Upsert("B", time.Time{})
				l.Upsert("A", ts)
				return nil
			}))
			require.NoError(t, s.Update(ctx, func(l *Log) error {
				l.Upsert("C", time.Time{})
				l.Upsert("B", ts)
				return nil
			}))

			l, err := s.Load(ctx)
			require.NoError(t, err)
			want := []Entry{
				{RawID: "B", Count: 2, LastSeen: ts},
				{RawID: "A", Count: 1, LastSeen: ts},
				{RawID: "C", Count: 1},
			}
			if diff := cmp.Diff(want, l.Entries()); diff != "" {
				t.Errorf("entries mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStores_ConcurrentUpdatesLoseNothing(t *testing.T) {
	ctx := context.Background()
	const workers = 8
	const rounds = 5

	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			errs := make(chan error, workers*rounds)
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for r := 0; r < rounds; r++ {
						errs <- s.Update(ctx, func(l *Log) error {
							l.Upsert("SHARED", time.Time{})
							l.Upsert(fmt.Sprintf("W%d", w), time.Time{})
							return nil
						})
					}
				}(w)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			l, err := s.Load(ctx)
			require.NoError(t, err)
			shared, ok := l.Find("SHARED")
			require.True(t, ok)
			assert.Equal(t, workers*rounds, shared.Count)
			assert.Equal(t, workers+1, l.Len())
			for w := 0; w < workers; w++ {
				e, ok := l.Find(fmt.Sprintf("W%d", w))
				require.True(t, ok)
				assert.Equal(t, rounds, e.Count)
			}
		})
	}
}

func TestStores_CallbackErrorWritesNothing(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Update(ctx, func(l *Log) error {
				l.Upsert("X", time.Time{})
				return boom
			})
			require.ErrorIs(t, err, boom)

			l, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, l.Len())
		})
	}
}

func TestFileStore_WritesLineFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "missing_ids.txt")
	s := NewFileStore(path)
	defer s.Close()

	snap := &feed.Snapshot{PSNGames: map[string]int64{"NPWR99999": 1}}
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Update(context.Background(), func(l *Log) error {
			Audit(testCatalog(), snap, l, time.Time{})
			return nil
		}))
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "NPWR99999 (seen 3 times)\n", string(data))
}

func TestFileStore_ReadsHandEditedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing_ids.txt")
	require.NoError(t, os.WriteFile(path, []byte("ZZZZ-999\nZZZZ-999 (seen 2 times)\n\n"), 0o600))

	l, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	e, ok := l.Find("ZZZZ-999")
	require.True(t, ok)
	assert.Equal(t, 3, e.Count)
	assert.Equal(t, 1, l.Len())
}

func TestFileStore_CorruptFileIsReadError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing_ids.txt")
	require.NoError(t, os.WriteFile(path, []byte("X [garbage]\n"), 0o600))

	s := NewFileStore(path)
	defer s.Close()
	err := s.Update(context.Background(), func(*Log) error { return nil })
	require.ErrorIs(t, err, ErrLogRead)
}

func TestFileStore_UnwritableDirIsWriteError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	s := NewFileStore(filepath.Join(blocker, "missing_ids.txt"))
	defer s.Close()
	err := s.Update(context.Background(), func(*Log) error { return nil })
	require.ErrorIs(t, err, ErrLogWrite)
}

func TestRedisStore_LockTimeout(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client, "test:audit", time.Minute)
	defer s.Close()

	require.NoError(t, mr.Set("test:audit:lock", "someone-else"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := s.Update(ctx, func(*Log) error { return nil })
	require.ErrorIs(t, err, ErrLogWrite)
	require.ErrorIs(t, err, ErrLockTimeout)

	// A foreign lock is never released by us.
	got, err := mr.Get("test:audit:lock")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisStore_ReleasesLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client, "", 0)
	defer s.Close()

	require.NoError(t, s.Update(context.Background(), func(l *Log) error {
		l.Upsert("A", time.Time{})
		return nil
	}))
	assert.False(t, mr.Exists("playercount:audit:lock"))
	assert.Equal(t, []string{"A"}, mustList(t, mr, "playercount:audit:order"))
}

func TestOpen_Backends(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(context.Background(), StoreConfig{Backend: BackendFile, Path: filepath.Join(dir, "m.txt")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
	require.NoError(t, s.Close())

	s, err = Open(context.Background(), StoreConfig{Backend: BackendSQLite, SQLitePath: filepath.Join(dir, "db", "a.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(context.Background(), StoreConfig{Backend: BackendRedis})
	require.Error(t, err)

	_, err = Open(context.Background(), StoreConfig{Backend: "etcd"})
	require.Error(t, err)
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend("")
	require.NoError(t, err)
	assert.Equal(t, BackendFile, b)

	b, err = ParseBackend(" SQLite ")
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, b)

	_, err = ParseBackend("etcd")
	assert.Error(t, err)
}

func mustList(t *testing.T, mr *miniredis.Miniredis, key string) []string {
	t.Helper()
	list, err := mr.List(key)
	require.NoError(t, err)
	return list
}
