// Package mssql registers a SQL Server row store built on go-mssqldb.
// Batches are loaded with the TDS bulk copy protocol into #temp tables.
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"rowkit/internal/rowstore"
)

// openEngine is a test hook that points to Open by default.
var openEngine = Open

func init() {
	rowstore.Register("mssql", func(ctx context.Context, cfg rowstore.Config) (rowstore.Engine, rowstore.Dialect, error) {
		eng, err := openEngine(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return eng, Dialect{}, nil
	})
}

// Open validates dsn, opens the pool and pins one session.
func Open(ctx context.Context, dsn string) (rowstore.Engine, error) {
	if _, err := msdsn.Parse(dsn); err != nil {
		return nil, fmt.Errorf("mssql: invalid dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("mssql: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mssql: ping: %w", err)
	}
	eng, err := rowstore.NewSQLEngine(ctx, db, "mssql", bulkCopy)
	if err != nil {
		db.Close()
		return nil, err
	}
	return eng, nil
}

// bulkCopy loads rows with mssql.CopyIn. The final argument-less Exec
// flushes the buffered rows and reports the row count.
func bulkCopy(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error) {
	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(table, mssql.BulkOptions{}, columns...))
	if err != nil {
		return 0, fmt.Errorf("prepare bulk: %w", err)
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("bulk finalize: %w", err)
	}
	return res.RowsAffected()
}
