// Package ledger records which distributions have been fully sent, so a distribution is never paid twice.
//
// The ledger assumes a single writer: concurrent runs against the same storage are not guarded.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"
)

// Sentinel errors for ledger operations
var (
	ErrLoadFailed = errors.New("ledger load failed")
	ErrSaveFailed = errors.New("ledger save failed")
)

// Entries maps a distribution id to the unix time its sending completed
type Entries map[int64]int64

// Storage persists the whole mapping
type Storage interface {
	Load(ctx context.Context) (Entries, error)
	Save(ctx context.Context, entries Entries) error
}

// Ledger is an in-memory view of Storage that writes through on every change
type Ledger struct {
	mu      sync.RWMutex
	storage Storage
	entries Entries
}

// Open loads the complete mapping from storage
func Open(ctx context.Context, storage Storage) (*Ledger, error) {
	entries, err := storage.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	if entries == nil {
		entries = Entries{}
	}
	return &Ledger{storage: storage, entries: entries}, nil
}

// HasCompleted reports whether distribution id was already sent
func (l *Ledger) HasCompleted(id int64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[id]
	return ok
}

// CompletedAt returns when distribution id was sent
func (l *Ledger) CompletedAt(id int64) (time.Time, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ts, ok := l.entries[id]
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(ts, 0).UTC(), true
}

// MarkCompleted records distribution id as sent at the given time and persists the full mapping.
// The entry is only kept in memory once storage accepted it.
func (l *Ledger) MarkCompleted(ctx context.Context, id int64, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := maps.Clone(l.entries)
	next[id] = at.Unix()

	if err := l.storage.Save(ctx, next); err != nil {
		return fmt.Errorf("%w: distribution %d: %w", ErrSaveFailed, id, err)
	}
	l.entries = next
	return nil
}

// Entries returns a copy of the mapping
func (l *Ledger) Entries() Entries {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return maps.Clone(l.entries)
}
