// Package postgres registers the PostgreSQL dialect using pgx through its
// database/sql adapter.
package postgres

import (
	"strconv"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"sheetimport/internal/storage"
)

// Dialect implements storage.Dialect for PostgreSQL.
type Dialect struct{ storage.Base }

func init() { storage.Register(Dialect{}, "postgresql", "pg", "pgx") }

func (Dialect) Name() string             { return "postgres" }
func (Dialect) Driver() string           { return "pgx" }
func (Dialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

// DSN validates raw as a pgx connection string (URL or key=value).
func (Dialect) DSN(raw string) (string, error) {
	if _, err := pgx.ParseConfig(raw); err != nil {
		return "", err
	}
	return raw, nil
}

func (Dialect) ColumnsQuery(schema, table string) (string, []any) {
	if schema == "" {
		return `SELECT column_name FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = $1
ORDER BY ordinal_position`, []any{table}
	}
	return `SELECT column_name FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`, []any{schema, table}
}
