package rowstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SQLRows adapts *sql.Rows to Rows.
type SQLRows struct {
	rows *sql.Rows
	n    int
	err  error
}

// NewSQLRows wraps r.
func NewSQLRows(r *sql.Rows) (*SQLRows, error) {
	cols, err := r.Columns()
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	return &SQLRows{rows: r, n: len(cols)}, nil
}

func (r *SQLRows) Next() bool { return r.rows.Next() }

func (r *SQLRows) Values() ([]any, error) {
	vals := make([]any, r.n)
	ptrs := make([]any, r.n)
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return vals, nil
}

func (r *SQLRows) Err() error { return r.rows.Err() }

func (r *SQLRows) Close() { _ = r.rows.Close() }

// TxCopyFn bulk-inserts rows inside tx. Backends with a native bulk path
// (SQL Server) supply their own; others use InsertCopy.
type TxCopyFn func(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error)

// SQLEngine is an Engine over database/sql. All statements run on one pinned
// *sql.Conn so session-scoped temp tables stay visible.
type SQLEngine struct {
	db   *sql.DB
	conn *sql.Conn
	name string
	copy TxCopyFn
}

// NewSQLEngine pins a connection from db. name prefixes error messages and
// copyFn performs batch inserts.
func NewSQLEngine(ctx context.Context, db *sql.DB, name string, copyFn TxCopyFn) (*SQLEngine, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: pin connection: %w", name, err)
	}
	return &SQLEngine{db: db, conn: conn, name: name, copy: copyFn}, nil
}

func (e *SQLEngine) Exec(ctx context.Context, query string) error {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	if _, err := e.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("%s: exec: %w", e.name, err)
	}
	return nil
}

func (e *SQLEngine) Query(ctx context.Context, query string) (Rows, error) {
	r, err := e.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", e.name, err)
	}
	return NewSQLRows(r)
}

func (e *SQLEngine) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("%s: CopyFrom: columns must not be empty", e.name)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := e.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin tx: %w", e.name, err)
	}
	n, err := e.copy(ctx, tx, table, columns, rows)
	if err != nil {
		_ = tx.Rollback()
		return n, fmt.Errorf("%s: copy into %s: %w", e.name, table, err)
	}
	if err := tx.Commit(); err != nil {
		return n, fmt.Errorf("%s: commit: %w", e.name, err)
	}
	return n, nil
}

func (e *SQLEngine) Close() error {
	cerr := e.conn.Close()
	if err := e.db.Close(); err != nil {
		return err
	}
	return cerr
}

// InsertCopy returns a TxCopyFn that runs a prepared single-row INSERT per
// row, quoting identifiers with quote.
func InsertCopy(quote func(string) string) TxCopyFn {
	return func(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error) {
		cols := make([]string, len(columns))
		marks := make([]string, len(columns))
		for i, c := range columns {
			cols[i] = quote(c)
			marks[i] = "?"
		}
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s)",
			quote(table), strings.Join(cols, ", "), strings.Join(marks, ", "),
		))
		if err != nil {
			return 0, fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		var inserted int64
		for _, row := range rows {
			if len(row) != len(columns) {
				return inserted, fmt.Errorf("row length %d != columns length %d", len(row), len(columns))
			}
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return inserted, fmt.Errorf("insert: %w", err)
			}
			inserted++
		}
		return inserted, nil
	}
}
