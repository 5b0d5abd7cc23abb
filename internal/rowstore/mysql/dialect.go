package mysql

import (
	"fmt"
	"strings"

	"rowkit/internal/rowstore"
)

// Dialect renders MySQL 8 SQL.
type Dialect struct{}

var _ rowstore.Dialect = Dialect{}

func (Dialect) Name() string { return "mysql" }

func (Dialect) Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// Literal escapes backslashes too, since the default sql_mode treats them as
// escape characters.
func (Dialect) Literal(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (Dialect) TypeFor(t rowstore.Type) string {
	switch t {
	case rowstore.Integer:
		return "BIGINT"
	case rowstore.Real:
		return "DOUBLE"
	case rowstore.Boolean:
		return "BOOLEAN"
	default:
		return "LONGTEXT"
	}
}

func (Dialect) CastText(expr string) string { return "CAST(" + expr + " AS CHAR)" }

func (Dialect) Random() string { return "RAND()" }

func (Dialect) Hash(expr string, seed uint64) string {
	return fmt.Sprintf("SHA2(CONCAT(%s, ':%d'), 256)", expr, seed)
}

func (Dialect) ScratchName(base string) string { return base }

// CreateScratch creates a regular table: MySQL cannot reference a TEMPORARY
// table more than once per query, and unions over one dataset do exactly
// that. The store drops these tables on Release.
func (d Dialect) CreateScratch(td rowstore.TableDef) string {
	return fmt.Sprintf("CREATE TABLE %s (%s)", d.Quote(td.Name), rowstore.ColumnList(d, td))
}

func (d Dialect) CreateScratchAs(name, query string) string {
	return fmt.Sprintf("CREATE TABLE %s AS %s", d.Quote(name), query)
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
		fmt.Fprintf(&b, "ROW(%d,%d)", r[0], r[1])
	}
	fmt.Fprintf(&b, ") AS %s (%s, %s)", alias, cols[0], cols[1])
	return b.String()
}

func (Dialect) Session(jobs int) []string {
	return []string{fmt.Sprintf("SET SESSION innodb_parallel_read_threads = %d", jobs)}
}
