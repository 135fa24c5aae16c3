package journal

import (
	"context"
	"database/sql"
	"time"

	"github.com/kingwingfly/cradle-system/internal/platform/sqlite"
	"github.com/kingwingfly/cradle-system/internal/shared"
)

// SQLiteStore persists fire entries in a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	runner *sqlite.TxRunner
}

// NewSQLiteStore wraps an opened database. The fire_log schema must already
// be migrated.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, runner: sqlite.NewTxRunner(db)}
}

func (s *SQLiteStore) Record(ctx context.Context, entry Entry) error {
	err := s.runner.WithinTx(ctx, func(ctx context.Context) error {
		q := s.runner.GetQuerier(ctx)
		_, err := q.ExecContext(ctx,
			`INSERT INTO fire_log (trigger_name, elapsed, fired_at) VALUES (?, ?, ?)`,
			entry.Trigger, entry.Elapsed, entry.FiredAt.UTC().Format(time.RFC3339Nano),
		)
		return err
	})
	if err != nil {
		return shared.Wrap(err, "record fire entry")
	}
	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trigger_name, elapsed, fired_at FROM fire_log ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, shared.Wrap(err, "query recent fire entries")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var firedAt string
		if err := rows.Scan(&e.ID, &e.Trigger, &e.Elapsed, &firedAt); err != nil {
			return nil, shared.Wrap(err, "scan fire entry")
		}
		e.FiredAt, err = time.Parse(time.RFC3339Nano, firedAt)
		if err != nil {
			return nil, shared.Wrap(err, "parse fired_at")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Wrap(err, "iterate fire entries")
	}
	return entries, nil
}

func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339Nano)

	var pruned int64
	err := s.runner.WithinTx(ctx, func(ctx context.Context) error {
		q := s.runner.GetQuerier(ctx)
		res, err := q.ExecContext(ctx, `DELETE FROM fire_log WHERE fired_at < ?`, cutoff)
		if err != nil {
			return err
		}
		pruned, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, shared.Wrap(err, "prune fire entries")
	}
	return pruned, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
