// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package dedup remembers which feed items were already posted.
//
// The list is ordered oldest first and bounded: once it holds the maximum
// number of identifiers, recording a new one evicts the oldest. Every change
// is persisted through a [Backend] before [Store.Record] returns.
package dedup

import (
	"context"
	"log/slog"
	"slices"
)

// DefaultMax is the default capacity of a [Store].
const DefaultMax = 500

// Store is a bounded, persisted list of posted identifiers. It is not safe
// for concurrent use.
type Store struct {
	backend Backend
	max     int
	logger  *slog.Logger
	ids     []string
}

// New returns an empty Store that persists to backend and holds at most max
// identifiers. A non-positive max means [DefaultMax].
func New(backend Backend, max int, logger *slog.Logger) *Store {
	if max <= 0 {
		max = DefaultMax
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, max: max, logger: logger}
}

// Load replaces the in-memory list with the persisted one. A missing list
// leaves the store empty. A list that can't be read is logged and also
// leaves the store empty; it will be overwritten on the next save.
func (s *Store) Load(ctx context.Context) {
	ids, err := s.backend.Load(ctx)
	switch {
	case IsNotExist(err):
		s.ids = nil
		return
	case err != nil:
		s.logger.Warn("failed to load posted items, starting empty", slog.Any("err", err))
		s.ids = nil
		return
	}
	s.ids = keepLast(ids, s.max)
	s.logger.Debug("loaded posted items", slog.Int("count", len(s.ids)))
}

// Contains reports whether id was recorded.
func (s *Store) Contains(id string) bool { return slices.Contains(s.ids, id) }

// Record appends id, evicts the oldest identifiers beyond capacity and
// persists the list. If persisting fails, the in-memory list stays updated
// and the error is returned.
func (s *Store) Record(ctx context.Context, id string) error {
	s.ids = keepLast(append(s.ids, id), s.max)
	return s.backend.Save(ctx, s.ids)
}

// IDs returns a copy of the recorded identifiers, oldest first.
func (s *Store) IDs() []string { return slices.Clone(s.ids) }

// Len returns the number of recorded identifiers.
func (s *Store) Len() int { return len(s.ids) }

// Close closes the backend.
func (s *Store) Close() error { return s.backend.Close() }

func keepLast(ids []string, n int) []string {
	if len(ids) <= n {
		return ids
	}
	return slices.Clone(ids[len(ids)-n:])
}
