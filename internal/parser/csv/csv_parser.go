// Package csv loads delimited text exports into a records.Table, so a sheet
// saved as CSV or TSV imports the same way as the workbook it came from.
//
// The first non-blank record is the header. Cells are typed from their text:
// empty cells are Null, canonical integers are Int, other decimal numbers are
// Float and everything else stays Text. Values with leading zeros ("007")
// stay Text so codes and phone numbers survive unchanged.
package csv

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"sheetimport/internal/failure"
	"sheetimport/internal/parser"
	"sheetimport/internal/records"
)

// Options configures the CSV parser behavior. All fields are optional.
type Options struct {
	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing spaces from each field value.
	TrimSpace bool
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs, but Parser itself is not concurrency-safe.
type Parser struct{ opt Options }

var _ parser.Parser = (*Parser)(nil)

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// Parse reads every record of r. Malformed input is failure.ErrSourceRead
// with the offending line in the message.
func (p *Parser) Parse(r io.Reader) (records.Table, error) {
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	// Spreadsheet exports are ragged and quote loosely.
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	var (
		cols []string
		out  [][]records.Value
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return records.Table{}, errors.WithHint(
				failure.Mark(errors.Wrap(err, "read csv"), failure.ErrSourceRead),
				"check the delimiter and quoting of the file")
		}
		if p.opt.TrimSpace {
			for i := range rec {
				rec[i] = strings.TrimSpace(rec[i])
			}
		}
		if cols == nil {
			if len(rec) > 0 {
				rec[0] = strings.TrimPrefix(rec[0], utf8BOM)
			}
			if parser.Blank(rec) {
				continue
			}
			cols = parser.HeaderNames(parser.TrimRight(rec))
			continue
		}

		raw := parser.TrimRight(rec)
		if len(raw) == 0 {
			continue
		}
		for len(cols) < len(raw) {
			cols = append(cols, parser.Unnamed(len(cols), cols))
		}
		row := make([]records.Value, len(raw))
		for i, v := range raw {
			row[i] = cell(v)
		}
		out = append(out, row)
	}
	if cols == nil {
		return records.Table{}, nil
	}
	for i, r := range out {
		if len(r) < len(cols) {
			out[i] = append(r, make([]records.Value, len(cols)-len(r))...)
		}
	}
	return records.Table{Columns: cols, Rows: out}, nil
}

// cell types one field.
func cell(s string) records.Value {
	if s == "" {
		return records.Null()
	}
	if canonicalInt(s) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return records.Int(n)
		}
	}
	if looksDecimal(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) {
			return records.Float(f)
		}
	}
	return records.Text(s)
}

// canonicalInt reports whether s is an optionally negative run of digits
// without leading zeros.
func canonicalInt(s string) bool {
	d := strings.TrimPrefix(s, "-")
	if d == "" || (len(d) > 1 && d[0] == '0') {
		return false
	}
	for i := 0; i < len(d); i++ {
		if d[i] < '0' || d[i] > '9' {
			return false
		}
	}
	return true
}

// looksDecimal accepts plain decimal notation ("-1.5", "2e3", ".5") and
// rejects words strconv would take, such as "NaN" and "Inf", as well as
// integers with leading zeros.
func looksDecimal(s string) bool {
	d := strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")
	if d == "" {
		return false
	}
	digits := 0
	for i := 0; i < len(d); i++ {
		c := d[i]
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-':
		default:
			return false
		}
	}
	if digits == 0 {
		return false
	}
	if !strings.ContainsAny(d, ".eE") {
		return false
	}
	// "0123.5" is a formatted code, "0.5" is a number.
	return !(len(d) > 1 && d[0] == '0' && d[1] != '.')
}
