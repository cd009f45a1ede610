package pgutils

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/multierr"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxFunc runs fn inside a transaction. Services depend on it instead of
// *sql.DB so tests can substitute an in-memory runner.
type TxFunc func(ctx context.Context, fn func(*sql.Tx) error) error

// Runner binds WithTx to db.
func Runner(db *sql.DB) TxFunc {
	return func(ctx context.Context, fn func(*sql.Tx) error) error {
		return WithTx(ctx, db, fn)
	}
}

// WithTx runs fn inside a transaction.
// It commits if fn returns nil, otherwise it rolls back. A panic in fn rolls
// back and is re-raised.
func WithTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil) // default isolation level
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		r := recover()
		if r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	err = fn(tx)
	if err != nil {
		rbErr := tx.Rollback()
		if rbErr != nil {
			return multierr.Append(err, fmt.Errorf("rollback: %w", rbErr))
		}

		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}
