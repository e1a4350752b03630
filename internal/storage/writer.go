package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"sheetimport/internal/failure"
	"sheetimport/internal/logging"
	"sheetimport/internal/records"
)

// DefaultBatchSize is used when WriteOptions.BatchSize is not positive.
const DefaultBatchSize = 500

// WriteOptions configures DB.Write.
type WriteOptions struct {
	Table string

	// Schema is the destination column list. Nil means look it up.
	Schema []string

	// Truncate deletes all rows of Table inside the write transaction before
	// inserting.
	Truncate bool

	BatchSize int

	// SkipErrors runs each batch under a savepoint and drops failing
	// batches instead of aborting. The import is then not atomic.
	SkipErrors bool
}

// WriteResult summarizes a write. After a rollback Inserted is zero; the
// batch and skip counts still describe what was attempted.
type WriteResult struct {
	Columns        []string
	Deleted        int64
	Inserted       int64
	Batches        int
	SkippedBatches int
	SkippedRows    int64
}

// InsertColumns returns the columns of cols that exist in schema, in cols
// order. Only these names ever reach SQL text.
func InsertColumns(cols, schema []string) []string {
	known := make(map[string]bool, len(schema))
	for _, c := range schema {
		known[c] = true
	}
	var out []string
	for _, c := range cols {
		if known[c] {
			out = append(out, c)
		}
	}
	return out
}

// Write inserts tbl into opts.Table in a single transaction: optional
// truncate, then batched multi-row INSERTs. Without SkipErrors any failing
// batch rolls everything back (failure.ErrBatchInsert). Begin, truncate,
// savepoint and commit failures are failure.ErrTransaction.
func (db *DB) Write(ctx context.Context, tbl records.Table, opts WriteOptions) (res WriteResult, err error) {
	log := logging.FromContext(ctx)
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	schema := opts.Schema
	if schema == nil {
		if schema, err = db.Columns(ctx, opts.Table); err != nil {
			return res, err
		}
	}

	cols := InsertColumns(tbl.Columns, schema)
	if len(cols) == 0 {
		return res, errors.WithHintf(
			failure.Newf(failure.ErrNoInsertableColumns, "none of the mapped columns exist in %s", opts.Table),
			"mapped columns: %s; table columns: %s", strings.Join(tbl.Columns, ", "), strings.Join(schema, ", "))
	}
	res.Columns = cols
	rows := project(tbl, cols)
	table := QuoteTable(db.dialect, opts.Table)

	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return res, failure.Mark(errors.Wrap(err, "begin transaction"), failure.ErrTransaction)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		// Rows inserted before the failure were rolled back with it.
		res.Inserted = 0
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Error("rollback failed", "err", rbErr)
			return
		}
		log.Warn("transaction rolled back", "table", opts.Table)
	}()

	if opts.Truncate {
		r, err := tx.ExecContext(ctx, "DELETE FROM "+table)
		if err != nil {
			return res, failure.Mark(errors.Wrapf(err, "truncate %s", opts.Table), failure.ErrTransaction)
		}
		if n, err := r.RowsAffected(); err == nil {
			res.Deleted = n
		}
		log.Info("table truncated", "table", opts.Table, "deleted", res.Deleted)
	}

	ins := newInserter(db.dialect, table, cols)
	defer ins.close()

	copyFn := func(ctx context.Context, _ []string, batch [][]any) (int64, error) {
		res.Batches++
		if !opts.SkipErrors {
			n, err := ins.insert(ctx, tx, batch)
			if err != nil {
				return n, failure.Mark(errors.Wrapf(err, "batch #%d", res.Batches), failure.ErrBatchInsert)
			}
			return n, nil
		}

		sp := fmt.Sprintf("sheetimport_batch_%d", res.Batches)
		if _, err := tx.ExecContext(ctx, db.dialect.Savepoint(sp)); err != nil {
			return 0, failure.Mark(errors.Wrapf(err, "savepoint for batch #%d", res.Batches), failure.ErrTransaction)
		}
		n, err := ins.insert(ctx, tx, batch)
		if err != nil {
			if _, rbErr := tx.ExecContext(ctx, db.dialect.RollbackTo(sp)); rbErr != nil {
				return 0, failure.Mark(errors.Wrapf(rbErr, "rollback to savepoint for batch #%d", res.Batches), failure.ErrTransaction)
			}
			res.SkippedBatches++
			res.SkippedRows += int64(len(batch))
			log.Warn("batch failed, skipped", "batch", res.Batches, "rows", len(batch), "err", err)
			return 0, nil
		}
		if rel := db.dialect.Release(sp); rel != "" {
			if _, err := tx.ExecContext(ctx, rel); err != nil {
				return n, failure.Mark(errors.Wrapf(err, "release savepoint for batch #%d", res.Batches), failure.ErrTransaction)
			}
		}
		return n, nil
	}

	res.Inserted, err = LoadBatches(ctx, cols, rows, opts.BatchSize, copyFn)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, failure.ErrBatchInsert) {
			err = failure.Mark(errors.Wrap(err, "write interrupted"), failure.ErrTransaction)
		}
		return res, err
	}

	if err := tx.Commit(); err != nil {
		return res, failure.Mark(errors.Wrap(err, "commit"), failure.ErrTransaction)
	}
	committed = true
	return res, nil
}

// project aligns every row to cols as driver values.
func project(tbl records.Table, cols []string) [][]any {
	idx := make([]int, len(cols))
	for i, c := range cols {
		idx[i] = tbl.Index(c)
	}
	out := make([][]any, len(tbl.Rows))
	for r, row := range tbl.Rows {
		vals := make([]any, len(idx))
		for j, i := range idx {
			vals[j] = row[i].Driver()
		}
		out[r] = vals
	}
	return out
}

// inserter builds and runs INSERT statements for one table and column list.
type inserter struct {
	d       Dialect
	table   string
	cols    []string
	perStmt int
	queries map[int]string
	stmt    *sql.Stmt
}

func newInserter(d Dialect, table string, cols []string) *inserter {
	per := 1
	if d.MultiRowValues() {
		per = d.MaxParams() / len(cols)
		if per < 1 {
			per = 1
		}
		if m := d.MaxRows(); m > 0 && per > m {
			per = m
		}
	}
	return &inserter{d: d, table: table, cols: cols, perStmt: per, queries: map[int]string{}}
}

// insert writes rows, splitting them into statements that respect the
// dialect's parameter and row limits.
func (in *inserter) insert(ctx context.Context, tx *sql.Tx, rows [][]any) (int64, error) {
	if !in.d.MultiRowValues() {
		return in.insertEach(ctx, tx, rows)
	}
	var done int64
	for lo := 0; lo < len(rows); lo += in.perStmt {
		hi := lo + in.perStmt
		if hi > len(rows) {
			hi = len(rows)
		}
		chunk := rows[lo:hi]
		args := make([]any, 0, len(chunk)*len(in.cols))
		for _, r := range chunk {
			args = append(args, r...)
		}
		if _, err := tx.ExecContext(ctx, in.query(len(chunk)), args...); err != nil {
			return done, err
		}
		done += int64(len(chunk))
	}
	return done, nil
}

func (in *inserter) insertEach(ctx context.Context, tx *sql.Tx, rows [][]any) (int64, error) {
	if in.stmt == nil {
		stmt, err := tx.PrepareContext(ctx, in.query(1))
		if err != nil {
			return 0, errors.Wrap(err, "prepare insert")
		}
		in.stmt = stmt
	}
	var done int64
	for i, r := range rows {
		if _, err := in.stmt.ExecContext(ctx, r...); err != nil {
			return done, errors.Wrapf(err, "row %d of batch", i+1)
		}
		done++
	}
	return done, nil
}

// query returns INSERT INTO t (c1, c2) VALUES (...), (...) for n rows.
func (in *inserter) query(n int) string {
	if q, ok := in.queries[n]; ok {
		return q
	}
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(in.table)
	sb.WriteString(" (")
	for i, c := range in.cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(in.d.Quote(c))
	}
	sb.WriteString(") VALUES ")
	p := 1
	for r := 0; r < n; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for c := range in.cols {
			if c > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(in.d.Placeholder(p))
			p++
		}
		sb.WriteByte(')')
	}
	q := sb.String()
	in.queries[n] = q
	return q
}

func (in *inserter) close() {
	if in.stmt != nil {
		_ = in.stmt.Close()
	}
}
