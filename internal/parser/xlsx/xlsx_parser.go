// Package xlsx loads one sheet of an Office Open XML workbook into a
// records.Table.
//
// The first non-blank row is the header. Cells are typed from the workbook
// itself: strings stay Text, booleans become Int 0/1, numbers become Int or
// Float, and numbers carrying a date/time number format become Time.
// Fully blank rows are dropped.
package xlsx

import (
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"

	"sheetimport/internal/failure"
	"sheetimport/internal/parser"
	"sheetimport/internal/records"
)

// Options configures the reader.
type Options struct {
	// Sheet is a sheet name or a zero-based index. A sheet whose name equals
	// Sheet wins over the index interpretation. Empty means the first sheet.
	Sheet string
}

// Parser reads workbooks according to Options. It is not concurrency-safe.
type Parser struct {
	opt Options

	// sheet is the name of the sheet selected by the last Parse.
	sheet string
}

var _ parser.Parser = (*Parser)(nil)

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// Sheet returns the name of the sheet loaded by the last successful Parse.
func (p *Parser) Sheet() string { return p.sheet }

// Parse reads the selected sheet from r. Any failure to open the workbook or
// locate the sheet is marked failure.ErrSourceRead.
func (p *Parser) Parse(r io.Reader) (records.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return records.Table{}, errors.WithHint(
			failure.Mark(errors.Wrap(err, "open workbook"), failure.ErrSourceRead),
			"only .xlsx/.xlsm workbooks are supported; re-save legacy .xls files first")
	}
	defer f.Close()

	sheet, err := selectSheet(f.GetSheetList(), p.opt.Sheet)
	if err != nil {
		return records.Table{}, err
	}
	p.sheet = sheet

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return records.Table{}, failure.Mark(errors.Wrapf(err, "read sheet %q", sheet), failure.ErrSourceRead)
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}
	sr := &sheetReader{f: f, sheet: sheet, date1904: date1904, dateStyles: map[int]bool{}}
	return sr.table(rows)
}

// selectSheet resolves the selector against the workbook's sheet names.
func selectSheet(names []string, sel string) (string, error) {
	if len(names) == 0 {
		return "", failure.Newf(failure.ErrSourceRead, "workbook has no sheets")
	}
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return names[0], nil
	}
	for _, n := range names {
		if n == sel {
			return n, nil
		}
	}
	if idx, err := strconv.Atoi(sel); err == nil {
		if idx < 0 || idx >= len(names) {
			return "", failure.Newf(failure.ErrSourceRead,
				"sheet index %d out of range (workbook has %d sheets: %s)", idx, len(names), strings.Join(names, ", "))
		}
		return names[idx], nil
	}
	return "", errors.WithHintf(
		failure.Newf(failure.ErrSourceRead, "worksheet named %q not found", sel),
		"available sheets: %s", strings.Join(names, ", "))
}

type sheetReader struct {
	f          *excelize.File
	sheet      string
	date1904   bool
	dateStyles map[int]bool
}

func (s *sheetReader) table(rows [][]string) (records.Table, error) {
	hdr := -1
	for i, r := range rows {
		if !parser.Blank(r) {
			hdr = i
			break
		}
	}
	if hdr < 0 {
		return records.Table{}, nil
	}

	cols := parser.HeaderNames(parser.TrimRight(rows[hdr]))
	var out [][]records.Value
	for i := hdr + 1; i < len(rows); i++ {
		raw := parser.TrimRight(rows[i])
		if len(raw) == 0 {
			continue
		}
		for len(cols) < len(raw) {
			cols = append(cols, parser.Unnamed(len(cols), cols))
		}
		row := make([]records.Value, len(raw))
		for c, v := range raw {
			val, err := s.cell(c+1, i+1, v)
			if err != nil {
				return records.Table{}, err
			}
			row[c] = val
		}
		out = append(out, row)
	}

	// Rows read before a wider row appeared are padded with nulls.
	for i, r := range out {
		if len(r) < len(cols) {
			out[i] = append(r, make([]records.Value, len(cols)-len(r))...)
		}
	}
	return records.Table{Columns: cols, Rows: out}, nil
}

// cell types one raw cell value. col and row are 1-based.
func (s *sheetReader) cell(col, row int, raw string) (records.Value, error) {
	if raw == "" {
		return records.Null(), nil
	}
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return records.Value{}, failure.Mark(err, failure.ErrSourceRead)
	}
	ct, err := s.f.GetCellType(s.sheet, ref)
	if err != nil {
		return records.Value{}, failure.Mark(errors.Wrapf(err, "cell %s", ref), failure.ErrSourceRead)
	}

	switch ct {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula, excelize.CellTypeError:
		return records.Text(raw), nil
	case excelize.CellTypeBool:
		if raw == "1" || strings.EqualFold(raw, "true") {
			return records.Int(1), nil
		}
		return records.Int(0), nil
	case excelize.CellTypeDate:
		if t, ok := parseISOCell(raw); ok {
			return records.Time(t), nil
		}
		return records.Text(raw), nil
	}

	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return records.Text(raw), nil
	}
	if s.isDateCell(ref) {
		t, err := excelize.ExcelDateToTime(n, s.date1904)
		if err == nil {
			return records.Time(t.Round(time.Millisecond)), nil
		}
	}
	return number(n), nil
}

func (s *sheetReader) isDateCell(ref string) bool {
	idx, err := s.f.GetCellStyle(s.sheet, ref)
	if err != nil || idx == 0 {
		return false
	}
	if v, ok := s.dateStyles[idx]; ok {
		return v
	}
	v := false
	if st, err := s.f.GetStyle(idx); err == nil && st != nil {
		v = isDateNumFmt(st.NumFmt, st.CustomNumFmt)
	}
	s.dateStyles[idx] = v
	return v
}

// number returns Int for integral values that fit int64 and Float otherwise.
func number(n float64) records.Value {
	if n == math.Trunc(n) && n >= math.MinInt64 && n < math.MaxInt64 && !math.IsInf(n, 0) {
		return records.Int(int64(n))
	}
	return records.Float(n)
}

// parseISOCell parses the value of a t="d" cell.
func parseISOCell(raw string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

