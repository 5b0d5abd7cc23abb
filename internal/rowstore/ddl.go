package rowstore

import (
	"fmt"
	"strings"
)

// ColumnDef describes one column of a scratch table.
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
}

// TableDef is a scratch table definition rendered by a Dialect.
type TableDef struct {
	Name    string
	Columns []ColumnDef
}

// ColumnList renders the quoted, comma separated column definitions of td,
// e.g. `"a" BIGINT NOT NULL PRIMARY KEY, "b" TEXT`.
func ColumnList(d Dialect, td TableDef) string {
	parts := make([]string, len(td.Columns))
	for i, c := range td.Columns {
		var b strings.Builder
		fmt.Fprintf(&b, "%s %s", d.Quote(c.Name), c.SQLType)
		if !c.Nullable || c.PrimaryKey {
			b.WriteString(" NOT NULL")
		}
		if c.PrimaryKey {
			b.WriteString(" PRIMARY KEY")
		}
		parts[i] = b.String()
	}
	return strings.Join(parts, ", ")
}
