package postgres

import (
	"fmt"
	"strings"

	"rowkit/internal/rowstore"
)

// Dialect renders PostgreSQL SQL.
type Dialect struct{}

var _ rowstore.Dialect = Dialect{}

func (Dialect) Name() string { return "postgres" }

// Quote quotes a Postgres identifier using double quotes, escaping embedded
// quotes.
func (Dialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (Dialect) Literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (Dialect) TypeFor(t rowstore.Type) string {
	switch t {
	case rowstore.Integer:
		return "BIGINT"
	case rowstore.Real:
		return "DOUBLE PRECISION"
	case rowstore.Boolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

func (Dialect) CastText(expr string) string { return "CAST(" + expr + " AS TEXT)" }

func (Dialect) Random() string { return "random()" }

// Hash uses hashtextextended, a stable 64-bit hash with a seed argument
// (Postgres 11+).
func (Dialect) Hash(expr string, seed uint64) string {
	return fmt.Sprintf("hashtextextended(CAST(%s AS TEXT), %d)", expr, int64(seed))
}

func (Dialect) ScratchName(base string) string { return base }

func (d Dialect) CreateScratch(td rowstore.TableDef) string {
	return fmt.Sprintf("CREATE TEMP TABLE %s (%s)", d.Quote(td.Name), rowstore.ColumnList(d, td))
}

func (d Dialect) CreateScratchAs(name, query string) string {
	return fmt.Sprintf("CREATE TEMP TABLE %s AS %s", d.Quote(name), query)
}

func (d Dialect) DropScratch(name string) string {
	return "DROP TABLE IF EXISTS " + d.Quote(name)
}

func (Dialect) Window(offset, count int) string {
	return fmt.Sprintf("LIMIT %d OFFSET %d", count, offset)
}

func (Dialect) Values(alias string, cols [2]string, rows [][2]int) string {
	var b strings.Builder
	b.WriteString("(VALUES ")
	for i, r := range rows {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "(%d,%d)", r[0], r[1])
	}
	fmt.Fprintf(&b, ") AS %s(%s, %s)", alias, cols[0], cols[1])
	return b.String()
}

func (Dialect) Session(jobs int) []string {
	return []string{fmt.Sprintf("SET max_parallel_workers_per_gather = %d", jobs)}
}
