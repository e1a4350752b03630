// Package storage contains the backend-agnostic database layer: opening a
// connection through a registered Dialect, reading a table's columns and
// writing a table of records in one transaction.
package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"sheetimport/internal/failure"
)

// Config selects the backend and connection string.
type Config struct {
	Kind string
	DSN  string
}

// DB is an open database with its dialect.
type DB struct {
	sql     *sql.DB
	dialect Dialect
	dsn     string
}

// Open looks up the dialect for cfg.Kind, opens the pool and pings it.
// Connection failures are marked failure.ErrSchemaLookup: the first thing a
// run needs from the database is the destination schema.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	d, err := Lookup(cfg.Kind)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, failure.Newf(failure.ErrMissingArgument, "%s: DSN must not be empty", d.Name())
	}
	dsn, err := d.DSN(cfg.DSN)
	if err != nil {
		return nil, failure.Mark(errors.Wrapf(err, "%s: invalid DSN", d.Name()), failure.ErrInvalidConfig)
	}

	db, err := sql.Open(d.Driver(), dsn)
	if err != nil {
		return nil, failure.Mark(errors.Wrapf(err, "%s: open", d.Name()), failure.ErrSchemaLookup)
	}
	d.Configure(db)

	// Apply a basic ping with context to fail fast on invalid DSNs.
	pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.WithHint(
			failure.Mark(errors.Wrapf(err, "%s: connect", d.Name()), failure.ErrSchemaLookup),
			"check --db and --driver; sqlite databases must already exist")
	}
	return &DB{sql: db, dialect: d, dsn: cfg.DSN}, nil
}

// Close closes the pool.
func (db *DB) Close() error { return db.sql.Close() }

// Dialect returns the backend dialect.
func (db *DB) Dialect() Dialect { return db.dialect }

// File returns the database file for file-backed backends, or "".
func (db *DB) File() string { return db.dialect.File(db.dsn) }

// Columns returns the columns of table in table order. A table without
// columns (it does not exist) or a failed query is failure.ErrSchemaLookup.
func (db *DB) Columns(ctx context.Context, table string) ([]string, error) {
	schema, name := SplitTable(table)
	if name == "" {
		return nil, failure.Newf(failure.ErrMissingArgument, "table name must not be empty")
	}
	q, args := db.dialect.ColumnsQuery(schema, name)
	rows, err := db.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, failure.Mark(errors.Wrapf(err, "lookup columns of %s", table), failure.ErrSchemaLookup)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, failure.Mark(errors.Wrapf(err, "scan columns of %s", table), failure.ErrSchemaLookup)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, failure.Mark(errors.Wrapf(err, "lookup columns of %s", table), failure.ErrSchemaLookup)
	}
	if len(cols) == 0 {
		return nil, errors.WithHint(
			failure.Newf(failure.ErrSchemaLookup, "table %s not found or has no columns", table),
			"the destination table must exist; this tool does not create tables")
	}
	return cols, nil
}
