// SPDX-License-Identifier: MIT

package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLogWrite reports that the audit log could not be persisted.
	ErrLogWrite = errors.New("audit: log write failed")
	// ErrLogRead reports that the persisted audit log could not be read.
	ErrLogRead = errors.New("audit: log read failed")
	// ErrLockTimeout reports that the exclusive log lock was not acquired
	// before the context expired. It is always joined with ErrLogWrite.
	ErrLockTimeout = errors.New("audit: lock not acquired")
)

// Store persists the audit log.
//
// Update runs fn against the current log while holding an exclusive lock on
// the log resource for the whole read-merge-write cycle, then persists the
// result. When fn returns an error nothing is written.
type Store interface {
	Update(ctx context.Context, fn func(*Log) error) error
	Load(ctx context.Context) (*Log, error)
	Close() error
}

// Backend names a Store implementation.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
	BackendRedis  Backend = "redis"
)

// ParseBackend validates a configured backend name. Empty selects
// BackendFile.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return BackendFile, nil
	case BackendFile, BackendSQLite, BackendRedis:
		return b, nil
	default:
		return "", fmt.Errorf("unknown audit backend %q", s)
	}
}

// StoreConfig selects and configures a backend.
type StoreConfig struct {
	Backend     Backend
	Path        string
	SQLitePath  string
	RedisAddr   string
	RedisPrefix string
}

// Open constructs the Store selected by cfg.Backend.
func Open(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch cfg.Backend {
	case BackendFile, "":
		return NewFileStore(cfg.Path), nil
	case BackendSQLite:
		return OpenSQLiteStore(ctx, cfg.SQLitePath)
	case BackendRedis:
		return OpenRedisStore(ctx, RedisOptions{Addr: cfg.RedisAddr, Prefix: cfg.RedisPrefix})
	default:
		return nil, fmt.Errorf("unknown audit backend %q", cfg.Backend)
	}
}

func writeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrLogWrite, op, err)
}

func readErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrLogRead, op, err)
}
