package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"

	"github.com/stateset/commerce-core/internal/domain"
)

//go:generate mockery --config=.mockery-pgx.yml

// PgxPool is a minimal subset of pgxpool used by the repos, kept narrow for
// easy testing against a fake.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// pgxTx wraps a pgx.Tx so it satisfies domain.Tx as an opaque handle while
// still exposing the querier methods repos need.
type pgxTx struct {
	pgx.Tx
}

// Gateway is the persistence gateway (C1): the only component that speaks
// SQL. Every repository method takes the domain.Tx it returns so reads and
// writes within one command stay on the same underlying pgx.Tx.
type Gateway struct {
	Pool PgxPool
}

// NewGateway constructs a Gateway over the given pool.
func NewGateway(p PgxPool) *Gateway { return &Gateway{Pool: p} }

// WithTx runs fn inside a single pgx transaction at read-committed isolation,
// committing on a nil return and rolling back otherwise (spec.md §4.1).
func (g *Gateway) WithTx(ctx domain.Context, fn func(ctx domain.Context, tx domain.Tx) error) error {
	tracer := otel.Tracer("repo.gateway")
	ctx, span := tracer.Start(ctx, "gateway.WithTx")
	defer span.End()

	tx, err := g.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("op=gateway.with_tx.begin: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := fn(ctx, &pgxTx{tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=gateway.with_tx.commit: %w", err)
	}
	committed = true
	return nil
}

// LockRow acquires a row-level lock via SELECT ... FOR UPDATE on the row
// identified by key in table, for the lifetime of tx. The payment outcome
// commands call it before reading the payment row; the inventory commands
// lock balance rows through InventoryRepository.GetBalanceForUpdate instead.
func (g *Gateway) LockRow(ctx domain.Context, tx domain.Tx, table string, key ...any) error {
	querier, ok := tx.(*pgxTx)
	if !ok {
		return fmt.Errorf("op=gateway.lock_row: %w: tx is not a postgres transaction", domain.ErrDatabaseError)
	}

	var where string
	switch table {
	case "inventory_balances":
		where = "item_id = $1 AND location_id = $2"
	case "work_orders", "asns", "returns", "warranties", "warranty_claims", "orders", "payments":
		where = "id = $1"
	default:
		return fmt.Errorf("op=gateway.lock_row: %w: unknown table %q", domain.ErrDatabaseError, table)
	}

	q := fmt.Sprintf("SELECT 1 FROM %s WHERE %s FOR UPDATE", table, where)
	if _, err := querier.Exec(ctx, q, key...); err != nil {
		return fmt.Errorf("op=gateway.lock_row.%s: %w", table, err)
	}
	return nil
}

// txQuerier returns the pgx.Tx embedded in a domain.Tx produced by WithTx,
// or an error if tx is nil or of the wrong concrete type. Repositories call
// this to get a queryable handle before running SQL.
func txQuerier(tx domain.Tx) (pgx.Tx, error) {
	t, ok := tx.(*pgxTx)
	if !ok || t == nil {
		return nil, fmt.Errorf("op=postgres.tx_querier: %w: missing or invalid transaction", domain.ErrDatabaseError)
	}
	return t.Tx, nil
}

var _ domain.Gateway = (*Gateway)(nil)

// execOn runs a write against tx's underlying pgx.Tx when tx is non-nil, or
// directly against pool otherwise. Shared by every repo implementation so
// each one reads/writes inside the caller's WithTx scope transparently.
func execOn(ctx context.Context, pool PgxPool, tx domain.Tx, sql string, args ...any) error {
	if tx != nil {
		q, err := txQuerier(tx)
		if err != nil {
			return err
		}
		_, err = q.Exec(ctx, sql, args...)
		return err
	}
	_, err := pool.Exec(ctx, sql, args...)
	return err
}

func queryRowOn(ctx context.Context, pool PgxPool, tx domain.Tx, sql string, args ...any) (pgx.Row, error) {
	if tx != nil {
		q, err := txQuerier(tx)
		if err != nil {
			return nil, err
		}
		return q.QueryRow(ctx, sql, args...), nil
	}
	return pool.QueryRow(ctx, sql, args...), nil
}

// execAffected runs a write and returns the number of rows it affected,
// used by optimistic-lock updates to detect a version mismatch.
func execAffected(ctx context.Context, pool PgxPool, tx domain.Tx, sql string, args ...any) (int64, error) {
	if tx != nil {
		q, err := txQuerier(tx)
		if err != nil {
			return 0, err
		}
		tag, err := q.Exec(ctx, sql, args...)
		if err != nil {
			return 0, err
		}
		return tag.RowsAffected(), nil
	}
	tag, err := pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func queryOn(ctx context.Context, pool PgxPool, tx domain.Tx, sql string, args ...any) (pgx.Rows, error) {
	if tx != nil {
		q, err := txQuerier(tx)
		if err != nil {
			return nil, err
		}
		return q.Query(ctx, sql, args...)
	}
	return pool.Query(ctx, sql, args...)
}
