// Package warehouse implements the optional Postgres sink using pgx v5.
// Each derived table is create-or-replaced (drop, create, COPY) inside a
// transaction, so a half-loaded table is never visible. The warehouse load
// mirrors the parquet output; it is enabled by configuring a DSN.
package warehouse

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"starlake/internal/star"
)

// Warehouse is a Postgres-backed sink for star tables.
type Warehouse struct {
	pool *pgxpool.Pool
}

// Open connects a pool for the given DSN.
func Open(ctx context.Context, dsn string) (*Warehouse, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("warehouse: %w", err)
	}
	return &Warehouse{pool: pool}, nil
}

// Close releases the underlying pool.
func (w *Warehouse) Close() {
	w.pool.Close()
}

// Replace drops and recreates the table, then COPYs rows in. It returns the
// number of rows reported by COPY.
func (w *Warehouse) Replace(ctx context.Context, table star.Table, rows [][]any) (int64, error) {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("warehouse %s: begin: %w", table.Name, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+pgIdent(table.Name)); err != nil {
		return 0, fmt.Errorf("warehouse %s: drop: %w", table.Name, err)
	}
	if _, err := tx.Exec(ctx, table.DDL); err != nil {
		return 0, fmt.Errorf("warehouse %s: create: %w", table.Name, err)
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{table.Name},
		table.Columns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return n, fmt.Errorf("warehouse %s: copy: %w", table.Name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return n, fmt.Errorf("warehouse %s: commit: %w", table.Name, err)
	}
	return n, nil
}

// RowValues converts typed star rows into the positional form CopyFrom
// expects, aligned with the table's Columns order.
func RowValues[T interface{ Values() []any }](rows []T) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = r.Values()
	}
	return out
}

// pgIdent double-quotes a SQL identifier, escaping embedded quotes.
func pgIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
