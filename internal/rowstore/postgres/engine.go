// Package postgres registers a PostgreSQL row store built on pgx v5. Bulk
// loads use COPY; scratch tables are session-local TEMP tables on a single
// acquired connection.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"rowkit/internal/rowstore"
)

// openEngine is a test hook that points to Open by default.
var openEngine = Open

func init() {
	rowstore.Register("postgres", func(ctx context.Context, cfg rowstore.Config) (rowstore.Engine, rowstore.Dialect, error) {
		eng, err := openEngine(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return eng, Dialect{}, nil
	})
}

// Engine is a pgx-backed rowstore.Engine.
type Engine struct {
	pool *pgxpool.Pool
	conn *pgxpool.Conn
}

// Open connects to dsn and acquires the connection every statement runs on.
func Open(ctx context.Context, dsn string) (rowstore.Engine, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	cfg.MaxConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: acquire: %w", err)
	}
	return &Engine{pool: pool, conn: conn}, nil
}

func (e *Engine) Exec(ctx context.Context, query string) error {
	if _, err := e.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("postgres: exec: %w", pgDetail(err))
	}
	return nil
}

func (e *Engine) Query(ctx context.Context, query string) (rowstore.Rows, error) {
	rows, err := e.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", pgDetail(err))
	}
	return rows, nil
}

// CopyFrom streams rows with the COPY protocol.
func (e *Engine) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := e.conn.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("postgres: copy into %s: %w", table, pgDetail(err))
	}
	return n, nil
}

func (e *Engine) Close() error {
	e.conn.Release()
	e.pool.Close()
	return nil
}

// pgDetail folds the server's detail and SQLSTATE into the error text.
func pgDetail(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w (%s: %s)", err, pgErr.SQLState(), pgErr.Detail)
	}
	return err
}
