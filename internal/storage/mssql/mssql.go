// Package mssql registers the Microsoft SQL Server dialect using
// github.com/microsoft/go-mssqldb.
package mssql

import (
	"strconv"
	"strings"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"sheetimport/internal/storage"
)

// Dialect implements storage.Dialect for SQL Server.
type Dialect struct{ storage.Base }

func init() { storage.Register(Dialect{}, "sqlserver") }

func (Dialect) Name() string   { return "mssql" }
func (Dialect) Driver() string { return "sqlserver" }

// Quote safely quotes a SQL Server identifier using [brackets], escaping ].
func (Dialect) Quote(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

func (Dialect) Placeholder(n int) string { return "@p" + strconv.Itoa(n) }

// MaxParams stays under the 2100 parameters SQL Server accepts per request.
func (Dialect) MaxParams() int { return 2099 }

// MaxRows is the row limit of a table value constructor.
func (Dialect) MaxRows() int { return 1000 }

func (Dialect) Savepoint(name string) string  { return "SAVE TRANSACTION " + name }
func (Dialect) RollbackTo(name string) string { return "ROLLBACK TRANSACTION " + name }
func (Dialect) Release(string) string         { return "" }

// DSN validates raw early to fail fast on obvious mistakes.
func (Dialect) DSN(raw string) (string, error) {
	if _, err := msdsn.Parse(raw); err != nil {
		return "", err
	}
	return raw, nil
}

func (Dialect) ColumnsQuery(schema, table string) (string, []any) {
	if schema == "" {
		return `SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = SCHEMA_NAME() AND TABLE_NAME = @p1
ORDER BY ORDINAL_POSITION`, []any{table}
	}
	return `SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2
ORDER BY ORDINAL_POSITION`, []any{schema, table}
}
