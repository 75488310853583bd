// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package store implements a small key-value store kept in memory, in SQLite
// or in PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store is a generic interface for a key-value store.
type Store interface {
	// Get retrieves a value for a given key.
	// It must return (nil, nil) if the key is not found.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores a value for a given key.
	Set(ctx context.Context, key string, value []byte) error
	// Close closes the store and releases any resources.
	Close() error
}

// ErrUnknownDSN is returned by [Open] for DSNs it doesn't recognize.
var ErrUnknownDSN = errors.New("unknown store DSN")

// IsDSN reports whether s looks like a DSN accepted by [Open].
func IsDSN(s string) bool {
	for _, prefix := range []string{"mem:", "sqlite:", "postgres://", "postgresql://"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// Open opens a store described by dsn:
//
//   - "mem:" keeps values in memory.
//   - "sqlite:<path>" keeps values in a SQLite database at path.
//   - "postgres://..." or "postgresql://..." connects to PostgreSQL.
func Open(ctx context.Context, dsn string) (Store, error) {
	switch {
	case dsn == "mem:":
		return NewMemStore(), nil
	case strings.HasPrefix(dsn, "sqlite:"):
		path := strings.TrimPrefix(dsn, "sqlite:")
		if path == "" {
			return nil, fmt.Errorf("%w: %q has no database path", ErrUnknownDSN, dsn)
		}
		return NewSQLiteStore(ctx, path)
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return NewPostgresStore(ctx, dsn)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDSN, dsn)
}
