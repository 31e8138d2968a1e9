package db

import (
	"context"
	"database/sql"
	"fmt"
)

// TxFn is a unit of work that must commit or roll back as a whole.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// Querier is satisfied by *sql.Conn and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func inTx(ctx context.Context, conn *sql.Conn, fn TxFn) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		// A failed COMMIT can leave SQLite inside the transaction; clear it
		// so the session's connection is usable on the next attempt.
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK;")
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
