package records

import (
	"fmt"
	"strings"
)

// Table is an ordered set of columns and rows. Every row holds exactly
// len(Columns) values, in column order.
type Table struct {
	Columns []string
	Rows    [][]Value
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Empty reports whether the table has no rows.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// Index returns the position of column name, or -1.
func (t Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the values of column name, or nil if it does not exist.
func (t Table) Column(name string) []Value {
	idx := t.Index(name)
	if idx < 0 {
		return nil
	}
	out := make([]Value, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out
}

// Validate checks that every row matches the column count.
func (t Table) Validate() error {
	for i, r := range t.Rows {
		if len(r) != len(t.Columns) {
			return fmt.Errorf("records: row %d has %d values, want %d", i, len(r), len(t.Columns))
		}
	}
	return nil
}

// FormatRow renders row i as {"col": value, ...} in column order.
func (t Table) FormatRow(i int) string {
	if i < 0 || i >= len(t.Rows) {
		return "<none>"
	}
	var sb strings.Builder
	sb.WriteByte('{')
	for j, c := range t.Columns {
		if j > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q: %s", c, t.Rows[i][j])
	}
	sb.WriteByte('}')
	return sb.String()
}
