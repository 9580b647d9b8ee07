package transactor

import (
	"context"

	"github.com/jackc/pgtype/pgxtype"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

type pgxTxKey struct{}

func withPgxTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, pgxTxKey{}, tx)
}

func pgxTxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(pgxTxKey{}).(pgx.Tx)
	return tx, ok
}

type pgxTransactor struct {
	pool *pgxpool.Pool
}

// NewPgxTransactor builds transactor running functions inside pgx transaction, nested calls join the outer transaction
func NewPgxTransactor(p *pgxpool.Pool) Transactor {
	return &pgxTransactor{pool: p}
}

func (t *pgxTransactor) WithinTransaction(ctx context.Context, txFunc func(context.Context) error) (err error) {
	if _, ok := pgxTxFromContext(ctx); ok {
		return txFunc(ctx)
	}

	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
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

	return txFunc(withPgxTx(ctx, tx))
}

// PgxQuerier is a subset of pgx API shared by pool and transaction
type PgxQuerier interface {
	pgxtype.Querier
}

// PgxExecutor resolves querier to use for the context, transaction bound to context wins over pool
type PgxExecutor interface {
	Querier(ctx context.Context) PgxQuerier
}

type pgxExecutor struct {
	pool *pgxpool.Pool
}

// NewPgxExecutor builds new PgxExecutor
func NewPgxExecutor(p *pgxpool.Pool) PgxExecutor {
	return &pgxExecutor{pool: p}
}

func (e *pgxExecutor) Querier(ctx context.Context) PgxQuerier {
	if tx, ok := pgxTxFromContext(ctx); ok {
		return tx
	}
	return e.pool
}
