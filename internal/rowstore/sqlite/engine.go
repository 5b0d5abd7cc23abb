// Package sqlite registers the embedded SQLite row store (modernc.org/sqlite,
// pure Go). It is the default engine: the DSN defaults to an in-memory
// database that lives exactly as long as the command.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
	sqlitedrv "modernc.org/sqlite"

	"rowkit/internal/rowstore"
)

// DefaultDSN is used when no DSN is configured.
const DefaultDSN = ":memory:"

// hashFunc is the deterministic scalar function behind tier-C ordering.
const hashFunc = "rowkit_hash"

// openEngine is a test hook that points to Open by default.
var openEngine = Open

func init() {
	if err := sqlitedrv.RegisterDeterministicScalarFunction(hashFunc, 2, hashRow); err != nil {
		panic(fmt.Sprintf("sqlite: register %s: %v", hashFunc, err))
	}
	rowstore.Register("sqlite", func(ctx context.Context, cfg rowstore.Config) (rowstore.Engine, rowstore.Dialect, error) {
		eng, err := openEngine(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return eng, Dialect{}, nil
	})
}

// Open opens dsn and pins one connection.
func Open(ctx context.Context, dsn string) (rowstore.Engine, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = DefaultDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	eng, err := rowstore.NewSQLEngine(ctx, db, "sqlite", rowstore.InsertCopy(Dialect{}.Quote))
	if err != nil {
		db.Close()
		return nil, err
	}
	return eng, nil
}

// hashRow implements rowkit_hash(pos, seed): xxh3 over the little-endian
// bytes of both arguments.
func hashRow(_ *sqlitedrv.FunctionContext, args []driver.Value) (driver.Value, error) {
	var buf [16]byte
	for i, a := range args {
		n, ok := a.(int64)
		if !ok {
			return nil, fmt.Errorf("%s: argument %d is %T, want integer", hashFunc, i, a)
		}
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(n))
	}
	return int64(xxh3.Hash(buf[:])), nil
}
