// Package datasource abstracts where workbook bytes come from. The reader
// only needs an io.ReadCloser; local paths and http(s) URLs are both
// supported.
package datasource

import (
	"context"
	"io"
	"strings"
)

// Source opens the raw bytes of an input workbook.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	// Name identifies the source in logs and errors.
	Name() string
}

// IsURL reports whether location should be fetched over HTTP.
func IsURL(location string) bool {
	l := strings.ToLower(strings.TrimSpace(location))
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
