// Package sqlite registers the SQLite dialect, backed by the pure-Go
// modernc.org/sqlite driver.
//
// A plain file path is opened read-write without create, so a mistyped path
// fails the schema lookup instead of silently creating an empty database.
package sqlite

import (
	"database/sql"
	"net/url"
	"strings"

	_ "modernc.org/sqlite"

	"sheetimport/internal/storage"
)

// Dialect implements storage.Dialect for SQLite.
type Dialect struct{ storage.Base }

func init() { storage.Register(Dialect{}, "sqlite3") }

func (Dialect) Name() string   { return "sqlite" }
func (Dialect) Driver() string { return "sqlite" }

// MaxParams is SQLITE_MAX_VARIABLE_NUMBER of SQLite >= 3.32.
func (Dialect) MaxParams() int { return 32766 }

// DSN turns a plain path into "file:<path>?mode=rw" with foreign keys on and
// a busy timeout. "file:" URIs and ":memory:" pass through unchanged.
func (Dialect) DSN(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == ":memory:" || strings.HasPrefix(raw, "file:") {
		return raw, nil
	}
	esc := strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23").Replace(raw)
	return "file:" + esc + "?mode=rw&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", nil
}

// Configure pins the pool to one connection: SQLite serializes writers and
// an in-memory database exists per connection.
func (Dialect) Configure(db *sql.DB) { db.SetMaxOpenConns(1) }

func (Dialect) ColumnsQuery(schema, table string) (string, []any) {
	if schema != "" {
		return "SELECT name FROM pragma_table_info(?, ?) ORDER BY cid", []any{table, schema}
	}
	return "SELECT name FROM pragma_table_info(?) ORDER BY cid", []any{table}
}

// File returns the database file behind dsn, or "" for in-memory databases.
func (Dialect) File(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" || dsn == ":memory:" {
		return ""
	}
	if !strings.HasPrefix(dsn, "file:") {
		return dsn
	}
	path, query, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if q, err := url.ParseQuery(query); err == nil && q.Get("mode") == "memory" {
		return ""
	}
	if path == ":memory:" || path == "" {
		return ""
	}
	if p, err := url.PathUnescape(path); err == nil {
		path = p
	}
	return path
}
