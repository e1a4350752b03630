// Package backup copies a database file aside before it is written to.
//
// Backups are named {path}.bak.{YYYYMMDD_HHMMSS}, get a _N suffix when that
// name is taken, and are never overwritten or removed. Each copy is verified
// against the source by xxh3 digest.
package backup

import (
	"context"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/zeebo/xxh3"

	"sheetimport/internal/failure"
	"sheetimport/internal/logging"
)

const stampLayout = "20060102_150405"

// Name returns the first backup name for path at now, before collision
// suffixes.
func Name(path string, now time.Time) string {
	return path + ".bak." + now.Format(stampLayout)
}

// Create copies path to a fresh backup file and returns its path. A missing
// path is not an error and returns "". Any failure is failure.ErrBackup.
func Create(ctx context.Context, path string, now time.Time) (string, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", failure.Mark(errors.Wrapf(err, "stat %s", path), failure.ErrBackup)
	}
	if !info.Mode().IsRegular() {
		return "", failure.Newf(failure.ErrBackup, "%s is not a regular file", path)
	}

	src, err := os.Open(path)
	if err != nil {
		return "", failure.Mark(errors.Wrapf(err, "open %s", path), failure.ErrBackup)
	}
	defer src.Close()

	dst, dstPath, err := createUnique(Name(path, now), info.Mode().Perm())
	if err != nil {
		return "", err
	}

	h := xxh3.New()
	n, err := io.Copy(io.MultiWriter(dst, h), src)
	if err == nil {
		err = dst.Sync()
	}
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return dstPath, failure.Mark(errors.Wrapf(err, "copy %s to %s", path, dstPath), failure.ErrBackup)
	}

	got, err := Digest(dstPath)
	if err != nil {
		return dstPath, err
	}
	if want := h.Sum64(); got != want {
		return dstPath, errors.WithHintf(
			failure.Newf(failure.ErrBackup, "backup %s digest %016x does not match source %016x", dstPath, got, want),
			"the source may have changed during the copy; retry when no other process writes to %s", path)
	}

	if err := os.Chtimes(dstPath, info.ModTime(), info.ModTime()); err != nil {
		return dstPath, failure.Mark(errors.Wrapf(err, "set times on %s", dstPath), failure.ErrBackup)
	}
	logging.FromContext(ctx).Info("backup created",
		"path", dstPath, "size", humanize.IBytes(uint64(n)), "xxh3", strconv.FormatUint(got, 16))
	return dstPath, nil
}

// createUnique creates name exclusively, appending _1, _2, ... while the
// name is taken.
func createUnique(name string, perm fs.FileMode) (*os.File, string, error) {
	candidate := name
	for i := 1; ; i++ {
		f, err := os.OpenFile(candidate, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
		if err == nil {
			// O_CREATE applies the umask; restore the source mode.
			if err := f.Chmod(perm); err != nil {
				_ = f.Close()
				return nil, candidate, failure.Mark(errors.Wrapf(err, "chmod %s", candidate), failure.ErrBackup)
			}
			return f, candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, candidate, failure.Mark(errors.Wrapf(err, "create %s", candidate), failure.ErrBackup)
		}
		candidate = name + "_" + strconv.Itoa(i)
	}
}

// Digest returns the xxh3 hash of the file at path.
func Digest(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, failure.Mark(errors.Wrapf(err, "open %s", path), failure.ErrBackup)
	}
	defer f.Close()
	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, failure.Mark(errors.Wrapf(err, "read %s", path), failure.ErrBackup)
	}
	return h.Sum64(), nil
}
