// Package rowstore is the SQL-backed row store used by rowkit.
//
// A dataset is bulk-loaded once into a scratch table and then manipulated as
// Views: SQL queries that expose the dataset's columns plus a hidden, unique
// order column (PosColumn). Every operation returns a new View wrapping the
// previous one; nothing is executed until a View is counted, materialized or
// read. Backends (sqlite, postgres, mssql, mysql) register themselves with
// Register and only supply an Engine and a Dialect.
//
// A Store pins one engine session. All scratch tables it creates are tracked
// and dropped by Release or Close.
package rowstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// PosColumn orders the rows of every View.
	PosColumn = "__rk_pos"

	ordColumn  = "__rk_ord"
	partColumn = "__rk_part"
	mapOld     = "rk_old"
	mapNew     = "rk_new"
)

// View is a lazily evaluated row set. Volatile views (native random order)
// may produce a different order each time they are evaluated.
type View struct {
	query    string
	volatile bool
}

// SQL returns the query text behind v.
func (v View) SQL() string { return v.query }

// Volatile reports whether evaluating v twice may yield different rows.
func (v View) Volatile() bool { return v.volatile }

// Predicate restricts a View. Build one with Equals or NotNull.
type Predicate struct {
	column  string
	key     string
	notNull bool
}

// Equals keeps rows whose category key (text form) of column equals key.
func Equals(column, key string) Predicate { return Predicate{column: column, key: key} }

// NotNull keeps rows where column is not NULL.
func NotNull(column string) Predicate { return Predicate{column: column, notNull: true} }

// Store runs view operations against a single engine session.
type Store struct {
	eng     Engine
	d       Dialect
	logger  log.Logger
	cols    []Column
	table   string
	scratch []string
}

// NewStore wraps an open engine. jobs is applied through the dialect's
// session settings and never affects which rows are selected.
func NewStore(ctx context.Context, eng Engine, d Dialect, jobs int, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	logger = log.With(logger, "engine", d.Name())
	s := &Store{eng: eng, d: d, logger: logger}
	if jobs > 0 {
		stmts := d.Session(jobs)
		if len(stmts) == 0 {
			level.Debug(logger).Log("msg", "engine has no session parallelism setting", "jobs", jobs)
		}
		for _, stmt := range stmts {
			if err := eng.Exec(ctx, stmt); err != nil {
				level.Warn(logger).Log("msg", "could not apply jobs setting", "stmt", stmt, "err", err)
			}
		}
	}
	return s
}

// Engine exposes the underlying engine.
func (s *Store) Engine() Engine { return s.eng }

// Dialect exposes the store's dialect.
func (s *Store) Dialect() Dialect { return s.d }

// Columns returns the schema of the registered dataset.
func (s *Store) Columns() []Column {
	out := make([]Column, len(s.cols))
	copy(out, s.cols)
	return out
}

// ScratchTables returns the scratch tables that are still alive.
func (s *Store) ScratchTables() []string {
	out := make([]string, len(s.scratch))
	copy(out, s.scratch)
	return out
}

// Register creates the dataset table for cols and loads every row received
// on in, in arrival order. The returned View is the dataset in load order.
func (s *Store) Register(ctx context.Context, cols []Column, in <-chan []any, batchSize int) (View, int64, error) {
	if s.table != "" {
		return View{}, 0, fmt.Errorf("rowstore: dataset already registered")
	}
	if err := checkColumns(cols); err != nil {
		return View{}, 0, err
	}

	name := s.scratchName("data")
	td := TableDef{Name: name}
	for _, c := range cols {
		td.Columns = append(td.Columns, ColumnDef{Name: c.Name, SQLType: s.d.TypeFor(c.Type), Nullable: true})
	}
	td.Columns = append(td.Columns, ColumnDef{Name: ordColumn, SQLType: s.d.TypeFor(Integer), PrimaryKey: true})
	if err := s.create(ctx, name, s.d.CreateScratch(td)); err != nil {
		return View{}, 0, err
	}
	s.cols = append([]Column(nil), cols...)
	s.table = name

	columns := append(ColumnNames(cols), ordColumn)
	var ord int64
	copyFn := func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
		batch := make([][]any, len(rows))
		for i, r := range rows {
			if len(r) != len(cols) {
				return 0, fmt.Errorf("rowstore: row %d has %d values, want %d", ord, len(r), len(cols))
			}
			row := make([]any, len(r)+1)
			copy(row, r)
			row[len(r)] = ord
			ord++
			batch[i] = row
		}
		return s.eng.CopyFrom(ctx, name, columns, batch)
	}
	n, err := LoadBatches(ctx, s.logger, columns, in, batchSize, copyFn)
	if err != nil {
		return View{}, n, fmt.Errorf("rowstore: load: %w", err)
	}
	return s.Base(), n, nil
}

// Base returns the registered dataset in load order.
func (s *Store) Base() View {
	return View{query: fmt.Sprintf("SELECT %s, %s AS %s FROM %s",
		s.selectList(""), ordColumn, PosColumn, s.d.Quote(s.table))}
}

// Count returns the number of rows in v.
func (s *Store) Count(ctx context.Context, v View) (int, error) {
	rows, err := s.eng.Query(ctx, fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS cnt", v.query))
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("rowstore: count returned no rows")
	}
	vals, err := rows.Values()
	if err != nil {
		return 0, err
	}
	n, err := asInt64(vals[0])
	return int(n), err
}

// Filter keeps the rows of v matching p.
func (s *Store) Filter(v View, p Predicate) View {
	col := s.d.Quote(p.column)
	cond := fmt.Sprintf("%s = %s", s.d.CastText(col), s.d.Literal(p.key))
	if p.notNull {
		cond = col + " IS NOT NULL"
	}
	return View{
		query:    fmt.Sprintf("SELECT * FROM (%s) AS flt WHERE %s", v.query, cond),
		volatile: v.volatile,
	}
}

// Limit keeps count rows of v starting at offset, in v's order.
func (s *Store) Limit(v View, offset, count int) View {
	if count <= 0 {
		return s.Empty(v)
	}
	if offset < 0 {
		offset = 0
	}
	return View{
		query: fmt.Sprintf("SELECT * FROM (%s) AS lim ORDER BY %s %s",
			v.query, PosColumn, s.d.Window(offset, count)),
		volatile: v.volatile,
	}
}

// Empty returns a view with v's schema and no rows.
func (s *Store) Empty(v View) View {
	return View{query: fmt.Sprintf("SELECT * FROM (%s) AS emp WHERE 1 = 0", v.query)}
}

// Number reassigns positions of v to the dense row numbers 0..n-1 in v's
// current order.
func (s *Store) Number(v View) View {
	return View{
		query: fmt.Sprintf("SELECT %s, ROW_NUMBER() OVER (ORDER BY %s) - 1 AS %s FROM (%s) AS num",
			s.selectList(""), PosColumn, PosColumn, v.query),
		volatile: v.volatile,
	}
}

// OrderByRowNumbers reorders v so that output position i holds the row whose
// row number is order[i]. Rows not listed in order are dropped. The mapping is
// inlined into the query, so order must stay small.
func (s *Store) OrderByRowNumbers(v View, order []int) View {
	if len(order) == 0 {
		return s.Empty(v)
	}
	pairs := make([][2]int, len(order))
	for i, old := range order {
		pairs[i] = [2]int{old, i}
	}
	return s.joinMapping(v, s.d.Values("m", [2]string{mapOld, mapNew}, pairs))
}

// OrderByMapping is OrderByRowNumbers for mappings too large to inline: the
// (old, new) pairs are written to a scratch table in batches of batchSize
// and joined.
func (s *Store) OrderByMapping(ctx context.Context, v View, order []int, batchSize int) (View, error) {
	if len(order) == 0 {
		return s.Empty(v), nil
	}
	name := s.scratchName("map")
	intType := s.d.TypeFor(Integer)
	td := TableDef{Name: name, Columns: []ColumnDef{
		{Name: mapOld, SQLType: intType, PrimaryKey: true},
		{Name: mapNew, SQLType: intType},
	}}
	if err := s.create(ctx, name, s.d.CreateScratch(td)); err != nil {
		return View{}, err
	}

	ch := make(chan []any, batchSize)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(ch)
		for i, old := range order {
			select {
			case ch <- []any{int64(old), int64(i)}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	g.Go(func() error {
		_, err := LoadBatches(gctx, s.logger, []string{mapOld, mapNew}, ch, batchSize,
			func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
				return s.eng.CopyFrom(ctx, name, columns, rows)
			})
		return err
	})
	if err := g.Wait(); err != nil {
		return View{}, fmt.Errorf("rowstore: fill mapping %s: %w", name, err)
	}
	return s.joinMapping(v, s.d.Quote(name)+" AS m"), nil
}

// OrderByHash orders v by a deterministic hash of (row number, seed). The
// result is reproducible but is not a uniformly random permutation.
func (s *Store) OrderByHash(v View, seed uint64) View {
	return View{
		query: fmt.Sprintf("SELECT %s, ROW_NUMBER() OVER (ORDER BY %s, h.%s) - 1 AS %s FROM (%s) AS h",
			s.selectList("h"), s.d.Hash("h."+PosColumn, seed), PosColumn, PosColumn, s.Number(v).query),
		volatile: v.volatile,
	}
}

// OrderRandom orders v with the engine's native random function. The result
// is volatile.
func (s *Store) OrderRandom(v View) View {
	return View{
		query: fmt.Sprintf("SELECT %s, ROW_NUMBER() OVER (ORDER BY %s) - 1 AS %s FROM (%s) AS rnd",
			s.selectList(""), s.d.Random(), PosColumn, v.query),
		volatile: true,
	}
}

// Union concatenates views in argument order.
func (s *Store) Union(first View, rest ...View) View {
	if len(rest) == 0 {
		return first
	}
	views := append([]View{first}, rest...)
	parts := make([]string, len(views))
	volatile := false
	for i, v := range views {
		parts[i] = fmt.Sprintf("SELECT %s, %s, %d AS %s FROM (%s) AS u%d",
			s.selectList(""), PosColumn, i, partColumn, v.query, i)
		volatile = volatile || v.volatile
	}
	return View{
		query: fmt.Sprintf("SELECT %s, ROW_NUMBER() OVER (ORDER BY %s, %s) - 1 AS %s FROM (%s) AS uni",
			s.selectList(""), partColumn, PosColumn, PosColumn, strings.Join(parts, " UNION ALL ")),
		volatile: volatile,
	}
}

// Materialize evaluates v once into a scratch table and returns a stable
// view over it.
func (s *Store) Materialize(ctx context.Context, v View) (View, error) {
	name := s.scratchName("tmp")
	query := fmt.Sprintf("SELECT %s, %s FROM (%s) AS src", s.selectList(""), PosColumn, v.query)
	if err := s.create(ctx, name, s.d.CreateScratchAs(name, query)); err != nil {
		return View{}, err
	}
	return View{query: fmt.Sprintf("SELECT %s, %s FROM %s", s.selectList(""), PosColumn, s.d.Quote(name))}, nil
}

// Stabilize materializes v only when it is volatile.
func (s *Store) Stabilize(ctx context.Context, v View) (View, error) {
	if !v.volatile {
		return v, nil
	}
	return s.Materialize(ctx, v)
}

// CategoryCounts returns the number of rows per category key of column,
// ignoring NULLs.
func (s *Store) CategoryCounts(ctx context.Context, v View, column string) (map[string]int, error) {
	key := s.d.CastText(s.d.Quote(column))
	rows, err := s.eng.Query(ctx, fmt.Sprintf(
		"SELECT %s AS k, COUNT(*) AS n FROM (%s) AS grp WHERE %s IS NOT NULL GROUP BY %s",
		key, v.query, s.d.Quote(column), key))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		n, err := asInt64(vals[1])
		if err != nil {
			return nil, err
		}
		out[asString(vals[0])] += int(n)
	}
	return out, rows.Err()
}

// Each calls fn for every row of v in order. Values are normalized to the
// column types (int64, float64, bool, string or nil). fn must not retain row.
func (s *Store) Each(ctx context.Context, v View, fn func(row []any) error) (int64, error) {
	rows, err := s.eng.Query(ctx, fmt.Sprintf("SELECT %s FROM (%s) AS o ORDER BY %s",
		s.selectList(""), v.query, PosColumn))
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	row := make([]any, len(s.cols))
	var n int64
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return n, err
		}
		for i, c := range s.cols {
			if row[i], err = Normalize(vals[i], c.Type); err != nil {
				return n, fmt.Errorf("rowstore: column %s: %w", c.Name, err)
			}
		}
		if err := fn(row); err != nil {
			return n, err
		}
		n++
	}
	return n, rows.Err()
}

// Release drops every scratch table created by the store, newest first.
func (s *Store) Release(ctx context.Context) error {
	var errs []error
	for i := len(s.scratch) - 1; i >= 0; i-- {
		name := s.scratch[i]
		if err := s.eng.Exec(ctx, s.d.DropScratch(name)); err != nil {
			errs = append(errs, err)
			continue
		}
		level.Debug(s.logger).Log("msg", "dropped scratch table", "table", name)
	}
	s.scratch = nil
	s.table = ""
	return errors.Join(errs...)
}

// Close releases scratch tables and closes the engine. Cleanup uses a fresh
// context so tables are dropped even when ctx was canceled.
func (s *Store) Close(ctx context.Context) error {
	rerr := s.Release(context.WithoutCancel(ctx))
	return errors.Join(rerr, s.eng.Close())
}

func (s *Store) create(ctx context.Context, name, ddl string) error {
	if err := s.eng.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("rowstore: create %s: %w", name, err)
	}
	s.scratch = append(s.scratch, name)
	level.Debug(s.logger).Log("msg", "created scratch table", "table", name)
	return nil
}

func (s *Store) joinMapping(v View, mapping string) View {
	return View{
		query: fmt.Sprintf("SELECT %s, m.%s AS %s FROM (%s) AS n JOIN %s ON n.%s = m.%s",
			s.selectList("n"), mapNew, PosColumn, s.Number(v).query, mapping, PosColumn, mapOld),
		volatile: v.volatile,
	}
}

func (s *Store) selectList(alias string) string {
	parts := make([]string, len(s.cols))
	for i, c := range s.cols {
		if alias != "" {
			parts[i] = alias + "." + s.d.Quote(c.Name)
		} else {
			parts[i] = s.d.Quote(c.Name)
		}
	}
	return strings.Join(parts, ", ")
}

func (s *Store) scratchName(kind string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return s.d.ScratchName("rk_" + kind + "_" + id[:12])
}

func checkColumns(cols []Column) error {
	if len(cols) == 0 {
		return fmt.Errorf("rowstore: dataset has no columns")
	}
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		lower := strings.ToLower(c.Name)
		switch {
		case c.Name == "":
			return fmt.Errorf("rowstore: empty column name")
		case strings.HasPrefix(lower, "__rk_"):
			return fmt.Errorf("rowstore: column name %q is reserved", c.Name)
		case seen[lower]:
			return fmt.Errorf("rowstore: duplicate column %q", c.Name)
		}
		seen[lower] = true
	}
	return nil
}
