package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"concedii/internal/platform/querier"
)

// Runner executes a function within one database transaction. Callbacks
// receive a querier bound to the transaction, so store methods written
// against querier.Querier work unchanged inside and outside a transaction.
type Runner struct {
	Pool *pgxpool.Pool
}

func NewRunner(pool *pgxpool.Pool) *Runner {
	return &Runner{Pool: pool}
}

func (r *Runner) InTx(ctx context.Context, fn func(q querier.Querier) error) (err error) {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()

	err = fn(tx)
	return err
}
