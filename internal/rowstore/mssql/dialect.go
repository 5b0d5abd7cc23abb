package mssql

import (
	"fmt"
	"strings"

	"rowkit/internal/rowstore"
)

// Dialect renders T-SQL.
type Dialect struct{}

var _ rowstore.Dialect = Dialect{}

func (Dialect) Name() string { return "mssql" }

// Quote quotes a SQL Server identifier using [brackets], escaping ].
func (Dialect) Quote(ident string) string {
	return `[` + strings.ReplaceAll(ident, `]`, `]]`) + `]`
}

func (Dialect) Literal(s string) string {
	return "N'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (Dialect) TypeFor(t rowstore.Type) string {
	switch t {
	case rowstore.Integer:
		return "BIGINT"
	case rowstore.Real:
		return "FLOAT"
	case rowstore.Boolean:
		return "BIT"
	default:
		return "NVARCHAR(MAX)"
	}
}

// CastText bounds keys to 4000 characters so they stay groupable.
func (Dialect) CastText(expr string) string { return "CAST(" + expr + " AS NVARCHAR(4000))" }

func (Dialect) Random() string { return "NEWID()" }

func (Dialect) Hash(expr string, seed uint64) string {
	return fmt.Sprintf("HASHBYTES('SHA2_256', CONCAT(CAST(%s AS VARCHAR(20)), ':%d'))", expr, seed)
}

// ScratchName prefixes # so the table lives in tempdb for this session.
func (Dialect) ScratchName(base string) string { return "#" + base }

func (d Dialect) CreateScratch(td rowstore.TableDef) string {
	return fmt.Sprintf("CREATE TABLE %s (%s)", d.Quote(td.Name), rowstore.ColumnList(d, td))
}

func (d Dialect) CreateScratchAs(name, query string) string {
	return fmt.Sprintf("SELECT * INTO %s FROM (%s) AS src", d.Quote(name), query)
}

func (d Dialect) DropScratch(name string) string {
	return "DROP TABLE IF EXISTS " + d.Quote(name)
}

func (Dialect) Window(offset, count int) string {
	return fmt.Sprintf("OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", offset, count)
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

// Session returns nothing: SQL Server has no session-level degree of
// parallelism setting.
func (Dialect) Session(int) []string { return nil }
