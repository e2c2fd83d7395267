package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// txAttempts bounds how often a snapshot conflict is retried.
const txAttempts = 3

// WithTx runs fn in a repeatable-read transaction. A reconciliation reads its
// collections and writes the recomputed snapshot inside one fn, so fn may run
// again when Postgres aborts the snapshot with a serialization failure.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= txAttempts; attempt++ {
		err = pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead}, fn)
		if !SerializationFailure(err) {
			break
		}
	}
	if SerializationFailure(err) {
		return fmt.Errorf("platform/db: snapshot conflict after %d attempts: %w", txAttempts, err)
	}
	return err
}

// SerializationFailure reports SQLSTATE 40001, which a repeatable-read
// transaction raises when a concurrent commit touched the rows it read.
func SerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}
