package sqlite

import (
	"fmt"
	"strings"

	"rowkit/internal/rowstore"
)

// Dialect renders SQLite SQL.
type Dialect struct{}

var _ rowstore.Dialect = Dialect{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (Dialect) Literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// TypeFor maps logical types onto SQLite storage classes. Booleans are
// stored as 0/1 integers.
func (Dialect) TypeFor(t rowstore.Type) string {
	switch t {
	case rowstore.Integer, rowstore.Boolean:
		return "INTEGER"
	case rowstore.Real:
		return "REAL"
	default:
		return "TEXT"
	}
}

func (Dialect) CastText(expr string) string { return "CAST(" + expr + " AS TEXT)" }

func (Dialect) Random() string { return "random()" }

func (Dialect) Hash(expr string, seed uint64) string {
	return fmt.Sprintf("%s(%s, %d)", hashFunc, expr, int64(seed))
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

// Values renders a VALUES list. SQLite names VALUES columns column1,
// column2, so they are renamed in a subquery.
func (Dialect) Values(alias string, cols [2]string, rows [][2]int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "(SELECT column1 AS %s, column2 AS %s FROM (VALUES ", cols[0], cols[1])
	for i, r := range rows {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "(%d,%d)", r[0], r[1])
	}
	fmt.Fprintf(&b, ")) AS %s", alias)
	return b.String()
}

func (Dialect) Session(jobs int) []string {
	return []string{fmt.Sprintf("PRAGMA threads = %d", jobs)}
}
