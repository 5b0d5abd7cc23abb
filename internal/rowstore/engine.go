package rowstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/go-kit/log"
)

// Rows is a forward-only result cursor. pgx.Rows satisfies it directly;
// database/sql results are adapted by SQLRows.
type Rows interface {
	Next() bool
	Values() ([]any, error)
	Err() error
	Close()
}

// Engine is the minimal surface a SQL backend must offer. Implementations pin
// a single session: temporary tables are session scoped and every call must
// see the tables created by earlier calls.
type Engine interface {
	Exec(ctx context.Context, query string) error
	Query(ctx context.Context, query string) (Rows, error)
	// CopyFrom bulk-inserts rows into table (unquoted name) and returns the
	// number of rows written.
	CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
	Close() error
}

// Dialect renders the engine-specific pieces of the view algebra.
type Dialect interface {
	Name() string
	Quote(ident string) string
	Literal(s string) string
	TypeFor(t Type) string
	// CastText renders expr as the text form used for category keys.
	CastText(expr string) string
	// Random is a volatile per-row random expression.
	Random() string
	// Hash is a deterministic per-row hash of expr mixed with seed.
	Hash(expr string, seed uint64) string
	// ScratchName maps a generated base name to the engine's temp table name.
	ScratchName(base string) string
	CreateScratch(def TableDef) string
	CreateScratchAs(name, query string) string
	DropScratch(name string) string
	// Window renders the row window clause that follows ORDER BY.
	Window(offset, count int) string
	// Values renders an inline two-column integer table reference named
	// alias with the given column names.
	Values(alias string, cols [2]string, rows [][2]int) string
	// Session returns statements applying the jobs setting, if any.
	Session(jobs int) []string
}

// Config selects and configures an engine.
type Config struct {
	Kind   string
	DSN    string
	Jobs   int
	Logger log.Logger
}

// Factory opens an engine of one kind.
type Factory func(ctx context.Context, cfg Config) (Engine, Dialect, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. It panics on duplicates so
// wiring mistakes surface at init time.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := factories[kind]; dup {
		panic(fmt.Sprintf("rowstore: backend %q registered twice", kind))
	}
	factories[kind] = f
}

// ListKinds returns the registered backend kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Open opens the backend named by cfg.Kind and wraps it in a Store.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("rowstore: unknown engine %q (registered: %v)", cfg.Kind, ListKinds())
	}
	eng, d, err := f(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("rowstore: open %s: %w", cfg.Kind, err)
	}
	return NewStore(ctx, eng, d, cfg.Jobs, cfg.Logger), nil
}
