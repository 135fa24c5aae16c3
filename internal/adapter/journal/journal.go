// Package journal persists a record of trigger fires. The scheduler itself
// is storage-free; the journal observes fires through a Recorder wrapped
// around trigger actions and writes them to a pluggable Store.
package journal

import (
	"context"
	"time"
)

// Entry is one recorded trigger fire.
type Entry struct {
	ID      int64
	Trigger string
	Elapsed uint64
	FiredAt time.Time
}

// Store persists fire entries. Implementations: SQLiteStore, PGStore and
// NoopStore for running without persistence.
type Store interface {
	// Record appends a fire entry. FiredAt is set by the caller.
	Record(ctx context.Context, entry Entry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
	// Prune deletes entries older than the retention window and returns how
	// many were removed.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
	// Close releases the underlying storage.
	Close() error
}

// NoopStore discards everything. Used when journaling is disabled.
type NoopStore struct{}

func (NoopStore) Record(context.Context, Entry) error { return nil }

func (NoopStore) Recent(context.Context, int) ([]Entry, error) { return nil, nil }

func (NoopStore) Prune(context.Context, time.Duration) (int64, error) { return 0, nil }

func (NoopStore) Close() error { return nil }
