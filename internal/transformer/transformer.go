// Package transformer turns a source table into rows ready for the
// destination: it projects and renames mapped columns, turns missing-value
// spellings into nulls and converts date columns to Unix seconds.
//
// Transforms never modify their input; each stage builds a new Table.
package transformer

import (
	"time"

	"github.com/cockroachdb/errors"

	"sheetimport/internal/failure"
	"sheetimport/internal/mapping"
	"sheetimport/internal/records"
)

// Transformer rewrites a table into a new table.
type Transformer interface {
	Apply(records.Table) records.Table
}

// Chain is an ordered list of transformers.
type Chain []Transformer

func (c Chain) Apply(in records.Table) records.Table {
	out := in
	for _, t := range c {
		out = t.Apply(out)
	}
	return out
}

// Options configures Apply.
type Options struct {
	// DateColumns are destination column names converted to Unix seconds.
	DateColumns []string

	// Location interprets date text and workbook dates that carry no zone.
	// Nil means UTC.
	Location *time.Location
}

// Result is the transformed table plus what the caller should report.
type Result struct {
	Table records.Table

	// UnknownDateColumns are requested date columns absent from Table.
	UnknownDateColumns []string

	// UnparsedDates counts, per date column, non-null values that could not
	// be read as a date and were set to null.
	UnparsedDates map[string]int
}

// Apply projects src to the mapped source columns (source order), renames
// them to destination names, normalizes nulls and converts date columns.
// It fails with failure.ErrNoColumnsMatched when no source column is mapped.
func Apply(src records.Table, m mapping.Mapping, opts Options) (Result, error) {
	proj, err := Project(src, m)
	if err != nil {
		return Result{}, err
	}

	dates := &DateConverter{Columns: opts.DateColumns, Location: opts.Location}
	out := Chain{NullNormalizer{}, dates}.Apply(proj)
	return Result{
		Table:              out,
		UnknownDateColumns: dates.Unknown,
		UnparsedDates:      dates.Unparsed,
	}, nil
}

// Project keeps the source columns that m maps, in source order, and renames
// them to their destinations.
func Project(src records.Table, m mapping.Mapping) (records.Table, error) {
	var idx []int
	var cols []string
	for i, c := range src.Columns {
		if d, ok := m.Dest(c); ok {
			idx = append(idx, i)
			cols = append(cols, d)
		}
	}
	if len(idx) == 0 {
		return records.Table{}, errors.WithHint(
			failure.Newf(failure.ErrNoColumnsMatched, "no sheet columns matched for import"),
			"check that the mapping's source names match the sheet header exactly")
	}

	rows := make([][]records.Value, len(src.Rows))
	for r, row := range src.Rows {
		out := make([]records.Value, len(idx))
		for j, i := range idx {
			if i < len(row) {
				out[j] = row[i]
			}
		}
		rows[r] = out
	}
	return records.Table{Columns: cols, Rows: rows}, nil
}

// mapRows copies t applying fn to every cell of the columns selected by keep.
func mapRows(t records.Table, keep []bool, fn func(col int, v records.Value) records.Value) records.Table {
	rows := make([][]records.Value, len(t.Rows))
	for r, row := range t.Rows {
		out := make([]records.Value, len(row))
		copy(out, row)
		for c := range out {
			if keep == nil || keep[c] {
				out[c] = fn(c, out[c])
			}
		}
		rows[r] = out
	}
	return records.Table{Columns: append([]string(nil), t.Columns...), Rows: rows}
}
