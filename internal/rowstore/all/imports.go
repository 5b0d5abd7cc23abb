// Package all wires every built-in row store backend into the rowstore
// registry. Import it for side effects:
//
//	import _ "rowkit/internal/rowstore/all"
//
// Binaries that need only a subset of engines can import the backend
// packages individually instead.
package all

import (
	_ "rowkit/internal/rowstore/mssql"
	_ "rowkit/internal/rowstore/mysql"
	_ "rowkit/internal/rowstore/postgres"
	_ "rowkit/internal/rowstore/sqlite"
)
