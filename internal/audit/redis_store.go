// SPDX-License-Identifier: MIT

package audit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "playercount:audit"
	defaultLockTTL     = 10 * time.Second
)

// releaseLock deletes the lock key only if it still holds our token.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	LockTTL  time.Duration
}

// RedisStore keeps the audit log under a key prefix:
//
//	<prefix>:order  list of raw IDs in log order
//	<prefix>:count  hash raw ID -> seen count
//	<prefix>:seen   hash raw ID -> RFC3339 timestamp
//	<prefix>:lock   SET NX PX lock token
type RedisStore struct {
	client  *redis.Client
	prefix  string
	lockTTL time.Duration
	mu      sync.Mutex
}

// OpenRedisStore connects and pings the server.
func OpenRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, errors.New("audit: redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("audit: redis connection failed: %w", err)
	}
	return NewRedisStore(client, opts.Prefix, opts.LockTTL), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, prefix string, lockTTL time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &RedisStore{client: client, prefix: prefix, lockTTL: lockTTL}
}

// Client exposes the connection for health checks.
func (s *RedisStore) Client() *redis.Client { return s.client }

func (s *RedisStore) key(name string) string { return s.prefix + ":" + name }

// Load reads the whole log.
func (s *RedisStore) Load(ctx context.Context) (*Log, error) {
	order, err := s.client.LRange(ctx, s.key("order"), 0, -1).Result()
	if err != nil {
		return nil, readErr("lrange", err)
	}
	counts, err := s.client.HGetAll(ctx, s.key("count")).Result()
	if err != nil {
		return nil, readErr("hgetall count", err)
	}
	seen, err := s.client.HGetAll(ctx, s.key("seen")).Result()
	if err != nil {
		return nil, readErr("hgetall seen", err)
	}

	entries := make([]Entry, 0, len(order))
	for _, raw := range order {
		e := Entry{RawID: raw, Count: 1}
		if c, ok := counts[raw]; ok {
			n, err := strconv.Atoi(c)
			if err != nil {
				return nil, readErr("parse count "+raw, err)
			}
			e.Count = n
		}
		if ts, ok := seen[raw]; ok && ts != "" {
			t, err := time.Parse(time.RFC3339, ts)
			if err != nil {
				return nil, readErr("parse seen "+raw, err)
			}
			e.LastSeen = t
		}
		entries = append(entries, e)
	}
	return NewLog(entries...), nil
}

// Update acquires the distributed lock, runs fn and writes back the
// appended and changed entries in one MULTI/EXEC.
func (s *RedisStore) Update(ctx context.Context, fn func(*Log) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.acquire(ctx)
	if err != nil {
		return writeErr("lock", err)
	}
	defer s.release(token)

	before, err := s.Load(ctx)
	if err != nil {
		return err
	}
	after := NewLog(before.Entries()...)
	if err := fn(after); err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range after.Entries() {
			prev, existed := before.Find(e.RawID)
			if existed && prev.Count == e.Count && prev.LastSeen.Equal(e.LastSeen) {
				continue
			}
			if !existed {
				pipe.RPush(ctx, s.key("order"), e.RawID)
			}
			pipe.HSet(ctx, s.key("count"), e.RawID, e.Count)
			if !e.LastSeen.IsZero() {
				pipe.HSet(ctx, s.key("seen"), e.RawID, e.LastSeen.UTC().Format(time.RFC3339))
			}
		}
		return nil
	})
	if err != nil {
		return writeErr("exec", err)
	}
	return nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) acquire(ctx context.Context) (string, error) {
	token := uuid.NewString()
	ticker := time.NewTicker(lockRetryDelay)
	defer ticker.Stop()
	for {
		ok, err := s.client.SetNX(ctx, s.key("lock"), token, s.lockTTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return "", errors.Join(ErrLockTimeout, ctx.Err())
			}
			return "", err
		}
		if ok {
			return token, nil
		}
		select {
		case <-ctx.Done():
			return "", errors.Join(ErrLockTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (s *RedisStore) release(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = releaseLock.Run(ctx, s.client, []string{s.key("lock")}, token).Err()
}
