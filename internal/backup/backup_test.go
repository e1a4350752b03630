package backup

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/cockroachdb/errors"

	"sheetimport/internal/failure"
)

var stamp = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func writeFile(t *testing.T, path string, data []byte, mode os.FileMode) {
	t.Helper()
	if err := os.WriteFile(path, data, mode); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	if got := Name("data/app.db", stamp); got != "data/app.db.bak.20240115_103000" {
		t.Fatalf("Name = %s", got)
	}
}

func TestCreate_CopiesContentModeAndTime(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "app.db")
	data := bytes.Repeat([]byte("sqlite page "), 4096)
	writeFile(t, src, data, 0o640)
	mtime := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(src, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	got, err := Create(context.Background(), src, stamp)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got != src+".bak.20240115_103000" {
		t.Fatalf("backup path = %s", got)
	}
	copied, err := os.ReadFile(got)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(copied, data) {
		t.Fatal("backup content differs from source")
	}
	info, err := os.Stat(got)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Errorf("mtime = %v, want %v", info.ModTime(), mtime)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0o640 {
		t.Errorf("mode = %v, want 0640", info.Mode().Perm())
	}

	a, _ := Digest(src)
	b, _ := Digest(got)
	if a != b {
		t.Fatalf("digests differ: %x vs %x", a, b)
	}
}

func TestCreate_NeverOverwrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "app.db")
	writeFile(t, src, []byte("v1"), 0o644)

	want := []string{
		src + ".bak.20240115_103000",
		src + ".bak.20240115_103000_1",
		src + ".bak.20240115_103000_2",
	}
	for i, w := range want {
		got, err := Create(context.Background(), src, stamp)
		if err != nil {
			t.Fatalf("Create #%d: %v", i, err)
		}
		if got != w {
			t.Fatalf("Create #%d = %s, want %s", i, got, w)
		}
	}

	writeFile(t, src, []byte("v2"), 0o644)
	if b, _ := os.ReadFile(want[0]); string(b) != "v1" {
		t.Fatalf("first backup changed: %q", b)
	}
}

func TestCreate_MissingFile(t *testing.T) {
	t.Parallel()

	got, err := Create(context.Background(), filepath.Join(t.TempDir(), "none.db"), stamp)
	if err != nil || got != "" {
		t.Fatalf("Create = %q, %v; want empty, nil", got, err)
	}
}

func TestCreate_Directory(t *testing.T) {
	t.Parallel()

	_, err := Create(context.Background(), t.TempDir(), stamp)
	if !errors.Is(err, failure.ErrBackup) {
		t.Fatalf("err = %v, want ErrBackup", err)
	}
}
