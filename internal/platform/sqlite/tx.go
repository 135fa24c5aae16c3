package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// txKey keys the active transaction inside a context.Context.
type txKey struct{}

// Querier unifies query execution over a DB and a transaction, so
// repositories work with one interface either way.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// RetryConfig controls retries on SQLITE_BUSY.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// TxRunner runs callbacks inside transactions with guaranteed commit or
// rollback, retrying on SQLITE_BUSY.
type TxRunner struct {
	DB          *sql.DB
	RetryConfig RetryConfig
}

// NewTxRunner creates a TxRunner with default retry settings.
func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{
		DB: db,
		RetryConfig: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 10 * time.Millisecond,
			MaxDelay:     500 * time.Millisecond,
			Multiplier:   2.0,
		},
	}
}

// WithinTx executes fn inside a transaction. On error the transaction rolls
// back, otherwise it commits. The transaction is available inside fn through
// GetQuerier(ctx).
func (r *TxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	delay := r.RetryConfig.InitialDelay

	var err error
	for attempt := 1; attempt <= r.RetryConfig.MaxAttempts; attempt++ {
		err = r.executeTx(ctx, fn)
		if err == nil || attempt == r.RetryConfig.MaxAttempts || !isBusyError(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay = time.Duration(float64(delay) * r.RetryConfig.Multiplier)
			if delay > r.RetryConfig.MaxDelay {
				delay = r.RetryConfig.MaxDelay
			}
		}
	}
	return err
}

// GetQuerier returns the active transaction from ctx, or the DB when no
// transaction is in flight.
func (r *TxRunner) GetQuerier(ctx context.Context) Querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return r.DB
}

func (r *TxRunner) executeTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	ctx = context.WithValue(ctx, txKey{}, tx)
	if err := fn(ctx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database table is locked")
}
