// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.astrophena.name/feedbot/internal/atomicio"
	"go.astrophena.name/feedbot/internal/filelock"
	"go.astrophena.name/feedbot/internal/store"
)

// Backend persists the list of posted identifiers.
type Backend interface {
	// Load returns the persisted list. It returns an error wrapping
	// fs.ErrNotExist if nothing was saved yet.
	Load(ctx context.Context) ([]string, error)
	// Save replaces the persisted list with ids.
	Save(ctx context.Context, ids []string) error
	// Close releases resources held by the backend.
	Close() error
}

// OpenBackend opens the backend described by dsn. Store DSNs (see
// [store.IsDSN]) open a [KV] backend, anything else is treated as a path to
// a JSON file.
func OpenBackend(ctx context.Context, dsn string) (Backend, error) {
	if store.IsDSN(dsn) {
		s, err := store.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return NewKV(s), nil
	}
	return NewFile(dsn)
}

// OpenBackendReadOnly is like [OpenBackend], but a file backend is opened
// without taking the lock, so the list can be read while another process
// holds it. Saving to it fails.
func OpenBackendReadOnly(ctx context.Context, dsn string) (Backend, error) {
	if store.IsDSN(dsn) {
		return OpenBackend(ctx, dsn)
	}
	return &File{path: dsn}, nil
}

func marshal(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	return json.MarshalIndent(ids, "", "  ")
}

func unmarshal(b []byte) ([]string, error) {
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// File keeps the list as a JSON array of strings in a single file, rewritten
// atomically on every save. While open, it holds a lock on "<path>.lock" so
// that two processes never share one file.
type File struct {
	path string
	lock *filelock.Lock
}

// NewFile opens a file backend at path. The file itself doesn't have to
// exist yet.
func NewFile(path string) (*File, error) {
	lock, err := filelock.Acquire(path + ".lock")
	if err != nil {
		return nil, fmt.Errorf("locking state file: %w", err)
	}
	return &File{path: path, lock: lock}, nil
}

// Path returns the path of the state file.
func (f *File) Path() string { return f.path }

// Load implements [Backend].
func (f *File) Load(ctx context.Context) ([]string, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	ids, err := unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.path, err)
	}
	return ids, nil
}

// Save implements [Backend].
func (f *File) Save(ctx context.Context, ids []string) error {
	if f.lock == nil {
		return errReadOnly
	}
	b, err := marshal(ids)
	if err != nil {
		return err
	}
	return atomicio.WriteFile(f.path, b, 0o644)
}

var errReadOnly = errors.New("state file opened read-only")

// Close implements [Backend].
func (f *File) Close() error {
	if f.lock == nil {
		return nil
	}
	return f.lock.Release()
}

// Key is the key a [KV] backend keeps the list under.
const Key = "posted"

// KV keeps the list as a JSON array under [Key] in a [store.Store].
type KV struct {
	s store.Store
}

// NewKV returns a backend on top of s. Closing the backend closes s.
func NewKV(s store.Store) *KV { return &KV{s: s} }

// Load implements [Backend].
func (kv *KV) Load(ctx context.Context) ([]string, error) {
	b, err := kv.s.Get(ctx, Key)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%q: %w", Key, fs.ErrNotExist)
	}
	ids, err := unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", Key, err)
	}
	return ids, nil
}

// Save implements [Backend].
func (kv *KV) Save(ctx context.Context, ids []string) error {
	b, err := marshal(ids)
	if err != nil {
		return err
	}
	return kv.s.Set(ctx, Key, b)
}

// Close implements [Backend].
func (kv *KV) Close() error { return kv.s.Close() }

var (
	_ Backend = (*File)(nil)
	_ Backend = (*KV)(nil)
)

// IsNotExist reports whether err means that nothing was saved yet.
func IsNotExist(err error) bool { return errors.Is(err, fs.ErrNotExist) }
