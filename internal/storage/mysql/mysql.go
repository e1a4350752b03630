// Package mysql registers the MySQL/MariaDB dialect using
// github.com/go-sql-driver/mysql.
package mysql

import (
	"strings"

	"github.com/go-sql-driver/mysql"

	"sheetimport/internal/storage"
)

// Dialect implements storage.Dialect for MySQL.
type Dialect struct{ storage.Base }

func init() { storage.Register(Dialect{}, "mariadb") }

func (Dialect) Name() string   { return "mysql" }
func (Dialect) Driver() string { return "mysql" }

// Quote uses backticks, doubling embedded ones.
func (Dialect) Quote(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

// DSN validates raw and forces single-statement mode.
func (Dialect) DSN(raw string) (string, error) {
	cfg, err := mysql.ParseDSN(raw)
	if err != nil {
		return "", err
	}
	cfg.MultiStatements = false
	return cfg.FormatDSN(), nil
}

func (Dialect) ColumnsQuery(schema, table string) (string, []any) {
	if schema == "" {
		return `SELECT COLUMN_NAME FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`, []any{table}
	}
	return `SELECT COLUMN_NAME FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`, []any{schema, table}
}
