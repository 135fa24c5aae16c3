package journal

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kingwingfly/cradle-system/internal/shared"
)

// PGStore persists fire entries in PostgreSQL through a pgx pool.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wraps an existing pool. The fire_log schema must already be
// migrated.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Record(ctx context.Context, entry Entry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO fire_log (trigger_name, elapsed, fired_at) VALUES ($1, $2, $3)`,
		entry.Trigger, int64(entry.Elapsed), entry.FiredAt.UTC(),
	)
	if err != nil {
		return shared.Wrap(err, "record fire entry")
	}
	return nil
}

func (s *PGStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, trigger_name, elapsed, fired_at FROM fire_log ORDER BY id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, shared.Wrap(err, "query recent fire entries")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var elapsed int64
		if err := rows.Scan(&e.ID, &e.Trigger, &elapsed, &e.FiredAt); err != nil {
			return nil, shared.Wrap(err, "scan fire entry")
		}
		e.Elapsed = uint64(elapsed)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Wrap(err, "iterate fire entries")
	}
	return entries, nil
}

func (s *PGStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	tag, err := s.pool.Exec(ctx, `DELETE FROM fire_log WHERE fired_at < $1`, cutoff)
	if err != nil {
		return 0, shared.Wrap(err, "prune fire entries")
	}
	return tag.RowsAffected(), nil
}

func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}
