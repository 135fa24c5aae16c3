package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInMemoryDB(t *testing.T) {
	ctx := context.Background()
	db, err := NewInMemoryDB(ctx)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ExecContext(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, "INSERT INTO t (v) VALUES (?)", "hello")
	require.NoError(t, err)

	var v string
	require.NoError(t, db.QueryRowContext(ctx, "SELECT v FROM t WHERE id = 1").Scan(&v))
	assert.Equal(t, "hello", v)
}

func TestNewDB_CreatesParentDirectory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")

	db, err := NewDB(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, path)
}

func TestTxRunner_CommitAndRollback(t *testing.T) {
	ctx := context.Background()
	db, err := NewInMemoryDB(ctx)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ExecContext(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)")
	require.NoError(t, err)

	runner := NewTxRunner(db)

	err = runner.WithinTx(ctx, func(ctx context.Context) error {
		q := runner.GetQuerier(ctx)
		_, err := q.ExecContext(ctx, "INSERT INTO t (v) VALUES (?)", "committed")
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = runner.WithinTx(ctx, func(ctx context.Context) error {
		q := runner.GetQuerier(ctx)
		if _, err := q.ExecContext(ctx, "INSERT INTO t (v) VALUES (?)", "rolled back"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&count))
	assert.Equal(t, 1, count, "rolled back insert must not be visible")
}

func TestGetQuerier_OutsideTx(t *testing.T) {
	ctx := context.Background()
	db, err := NewInMemoryDB(ctx)
	require.NoError(t, err)
	defer db.Close()

	runner := NewTxRunner(db)
	assert.Equal(t, Querier(db), runner.GetQuerier(ctx))
}

func TestBuildMigrateURL(t *testing.T) {
	url, err := BuildMigrateURL("some/relative.db")
	require.NoError(t, err)
	assert.Contains(t, url, "sqlite://")
	assert.Contains(t, url, "relative.db")
}

func TestIsBusyError(t *testing.T) {
	assert.True(t, isBusyError(errors.New("database is locked")))
	assert.True(t, isBusyError(errors.New("SQLITE_BUSY: cannot start transaction")))
	assert.False(t, isBusyError(errors.New("syntax error")))
	assert.False(t, isBusyError(nil))
}
