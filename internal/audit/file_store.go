// SPDX-License-Identifier: MIT

package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
)

const lockRetryDelay = 25 * time.Millisecond

// FileStore keeps the audit log as a line-oriented text file. Every Update
// rewrites the whole file atomically. A sibling "<path>.lock" file
// serializes writers across processes; the mutex serializes goroutines,
// which flock does not.
type FileStore struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

// NewFileStore returns a store for the log at path. The file and its
// directory are created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the log file location.
func (s *FileStore) Path() string { return s.path }

// Load reads the log without taking the lock. A missing file is an empty
// log.
func (s *FileStore) Load(_ context.Context) (*Log, error) {
	return s.read()
}

// Update runs a locked read-merge-write cycle.
func (s *FileStore) Update(ctx context.Context, fn func(*Log) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return writeErr("create dir", err)
	}

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return writeErr("lock", errors.Join(ErrLockTimeout, err))
	}
	if !locked {
		return writeErr("lock", ErrLockTimeout)
	}
	defer func() { _ = s.lock.Unlock() }()

	l, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(l); err != nil {
		return err
	}
	return s.write(l)
}

// Close releases the lock file handle.
func (s *FileStore) Close() error {
	return s.lock.Close()
}

func (s *FileStore) read() (*Log, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewLog(), nil
	}
	if err != nil {
		return nil, readErr("read file", err)
	}
	l, err := Decode(data)
	if err != nil {
		return nil, readErr(fmt.Sprintf("parse %s", s.path), err)
	}
	return l, nil
}

func (s *FileStore) write(l *Log) error {
	var buf bytes.Buffer
	if err := Encode(&buf, l); err != nil {
		return writeErr("encode", err)
	}

	pf, err := renameio.NewPendingFile(s.path, renameio.WithPermissions(0o640))
	if err != nil {
		return writeErr("create temp file", err)
	}
	defer func() { _ = pf.Cleanup() }()

	if _, err := pf.Write(buf.Bytes()); err != nil {
		return writeErr("write temp file", err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return writeErr("replace", err)
	}
	return nil
}
