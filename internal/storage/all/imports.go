// Package all wires every built-in database dialect into the storage
// registry.
//
// The package exists for side effects only: importing it runs the init
// functions of each backend package, which call storage.Register. After
//
//	import _ "sheetimport/internal/storage/all"
//
// storage.Open accepts these kinds (aliases in parentheses):
//
//   - "sqlite"   (sqlite3)
//   - "postgres" (postgresql, pg, pgx)
//   - "mysql"    (mariadb)
//   - "mssql"    (sqlserver)
//   - "oracle"   (ora, go-ora)
//
// A binary that needs only some backends can import those packages
// directly instead.
package all

import (
	_ "sheetimport/internal/storage/mssql"
	_ "sheetimport/internal/storage/mysql"
	_ "sheetimport/internal/storage/oracle"
	_ "sheetimport/internal/storage/postgres"
	_ "sheetimport/internal/storage/sqlite"
)
