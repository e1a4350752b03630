// Package parser declares the contract shared by input readers and the
// header rules they all follow.
package parser

import (
	"io"

	"sheetimport/internal/records"
)

// Parser loads one table from an input stream. An input without a header
// row yields an empty Table and a nil error.
type Parser interface {
	Parse(r io.Reader) (records.Table, error)
}
