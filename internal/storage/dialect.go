package storage

import (
	"database/sql"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"sheetimport/internal/failure"
)

// Dialect captures what differs between database backends: driver wiring,
// identifier quoting, bind markers, statement limits, savepoint syntax and
// schema introspection. Backends register a Dialect at init time; see
// package all.
type Dialect interface {
	// Name is the storage kind, e.g. "postgres".
	Name() string
	// Driver is the database/sql driver name.
	Driver() string
	// DSN validates a user connection string and adapts it for the driver.
	DSN(raw string) (string, error)
	// Configure tunes the pool right after sql.Open.
	Configure(db *sql.DB)

	// Quote quotes a single identifier.
	Quote(ident string) string
	// Placeholder returns the n-th (1-based) bind marker.
	Placeholder(n int) string
	// MaxParams is the bind-parameter limit of one statement.
	MaxParams() int
	// MaxRows limits the rows of one multi-row INSERT; 0 means no limit.
	MaxRows() int
	// MultiRowValues reports support for INSERT ... VALUES (...), (...).
	// Without it rows go through a prepared single-row statement.
	MultiRowValues() bool

	// ColumnsQuery lists the columns of schema.table in table order. An
	// empty schema means the connection's default schema.
	ColumnsQuery(schema, table string) (query string, args []any)

	// Savepoint, RollbackTo and Release return savepoint statements.
	// Release returns "" when the backend has no release statement.
	Savepoint(name string) string
	RollbackTo(name string) string
	Release(name string) string

	// File returns the database file behind dsn, or "" for server backends.
	File(dsn string) string
}

// Base provides ANSI defaults for embedding in concrete dialects.
type Base struct{}

func (Base) DSN(raw string) (string, error) { return raw, nil }
func (Base) Configure(*sql.DB)              {}
func (Base) Quote(id string) string         { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
func (Base) Placeholder(int) string         { return "?" }
func (Base) MaxParams() int                 { return 65535 }
func (Base) MaxRows() int                   { return 0 }
func (Base) MultiRowValues() bool           { return true }
func (Base) Savepoint(name string) string   { return "SAVEPOINT " + name }
func (Base) RollbackTo(name string) string  { return "ROLLBACK TO SAVEPOINT " + name }
func (Base) Release(name string) string     { return "RELEASE SAVEPOINT " + name }
func (Base) File(string) string             { return "" }

var (
	mu       sync.RWMutex
	dialects = map[string]Dialect{}
	aliases  = map[string]string{}
)

// Register registers (or replaces) d under d.Name() and any aliases. It is
// typically called from backend packages' init() functions.
func Register(d Dialect, alias ...string) {
	mu.Lock()
	defer mu.Unlock()
	dialects[d.Name()] = d
	for _, a := range alias {
		aliases[a] = d.Name()
	}
}

// Lookup returns the dialect registered for kind (case-insensitive).
func Lookup(kind string) (Dialect, error) {
	k := strings.ToLower(strings.TrimSpace(kind))
	mu.RLock()
	defer mu.RUnlock()
	if name, ok := aliases[k]; ok {
		k = name
	}
	if d, ok := dialects[k]; ok {
		return d, nil
	}
	return nil, errors.WithHintf(
		failure.Newf(failure.ErrInvalidConfig, "unknown storage kind %q", kind),
		"registered kinds: %s", strings.Join(kindsLocked(), ", "))
}

// Kinds returns the registered storage kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	return kindsLocked()
}

func kindsLocked() []string {
	out := make([]string, 0, len(dialects))
	for k := range dialects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SplitTable splits "schema.table" at the last dot. A name without a dot has
// an empty schema.
func SplitTable(name string) (schema, table string) {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// QuoteTable quotes every dot-separated part of name.
func QuoteTable(d Dialect, name string) string {
	parts := strings.Split(strings.TrimSpace(name), ".")
	for i, p := range parts {
		parts[i] = d.Quote(p)
	}
	return strings.Join(parts, ".")
}
