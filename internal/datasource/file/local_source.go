// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"io"
	"os"

	"github.com/cockroachdb/errors"

	"sheetimport/internal/failure"
)

// Local is a filesystem data source that opens files from the local disk.
type Local struct{ path string }

// NewLocal returns a new Local data source bound to the provided filesystem
// path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Name returns the configured path.
func (l *Local) Name() string { return l.path }

// Open opens the configured path for reading and returns an io.ReadCloser.
//
// Behavior:
//   - If the context is already canceled at the time of the call, Open
//     returns the context error without touching the filesystem.
//   - A missing file is marked failure.ErrSourceNotFound; directories and
//     other open failures are marked failure.ErrSourceRead. The underlying
//     error stays reachable (errors.Is(err, os.ErrNotExist) holds).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	fi, err := os.Stat(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, failure.Mark(errors.Wrapf(err, "excel file not found: %s", l.path), failure.ErrSourceNotFound)
		}
		return nil, failure.Mark(errors.Wrapf(err, "stat %s", l.path), failure.ErrSourceRead)
	}
	if fi.IsDir() {
		return nil, failure.Newf(failure.ErrSourceRead, "%s is a directory", l.path)
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, failure.Mark(errors.Wrapf(err, "open %s", l.path), failure.ErrSourceRead)
	}
	return f, nil
}
