// Package mysql registers a MySQL 8 row store built on go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"rowkit/internal/rowstore"
)

// openEngine is a test hook that points to Open by default.
var openEngine = Open

func init() {
	rowstore.Register("mysql", func(ctx context.Context, cfg rowstore.Config) (rowstore.Engine, rowstore.Dialect, error) {
		eng, err := openEngine(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return eng, Dialect{}, nil
	})
}

// Open validates dsn, opens the pool and pins one session.
func Open(ctx context.Context, dsn string) (rowstore.Engine, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: invalid dsn: %w", err)
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql: connector: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}
	eng, err := rowstore.NewSQLEngine(ctx, db, "mysql", rowstore.InsertCopy(Dialect{}.Quote))
	if err != nil {
		db.Close()
		return nil, err
	}
	return eng, nil
}
