package storage

import (
	"context"
	"errors"
	"testing"
)

func rowsOf(n int) [][]any {
	out := make([][]any, n)
	for i := range out {
		out[i] = []any{int64(i), "x"}
	}
	return out
}

// TestLoadBatches_Basic verifies rows are grouped into batches and copyFn is
// called with the expected sizes, including the final partial batch.
func TestLoadBatches_Basic(t *testing.T) {
	t.Parallel()

	var sizes []int
	copyFn := func(_ context.Context, cols []string, rows [][]any) (int64, error) {
		if len(cols) != 2 {
			t.Errorf("columns = %v", cols)
		}
		sizes = append(sizes, len(rows))
		return int64(len(rows)), nil
	}

	total, err := LoadBatches(context.Background(), []string{"c1", "c2"}, rowsOf(7), 3, copyFn)
	if err != nil {
		t.Fatalf("LoadBatches error: %v", err)
	}
	if total != 7 {
		t.Fatalf("total rows %d, want 7", total)
	}
	if len(sizes) != 3 || sizes[0] != 3 || sizes[1] != 3 || sizes[2] != 1 {
		t.Fatalf("batch sizes %v, want [3 3 1]", sizes)
	}
}

func TestLoadBatches_Empty(t *testing.T) {
	t.Parallel()

	called := false
	total, err := LoadBatches(context.Background(), []string{"c"}, nil, 10,
		func(context.Context, []string, [][]any) (int64, error) {
			called = true
			return 0, nil
		})
	if err != nil || total != 0 || called {
		t.Fatalf("total=%d err=%v called=%v", total, err, called)
	}
}

// TestLoadBatches_ErrorPropagation ensures the first copy error is returned
// and no later batch runs.
func TestLoadBatches_ErrorPropagation(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("copy failed")
	var batches int
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		batches++
		if batches == 2 {
			return 0, wantErr
		}
		return int64(len(rows)), nil
	}

	total, err := LoadBatches(context.Background(), []string{"c"}, rowsOf(5), 2, copyFn)
	if !errors.Is(err, wantErr) {
		t.Fatalf("want error %v, got %v", wantErr, err)
	}
	if total != 2 || batches != 2 {
		t.Fatalf("total=%d batches=%d, want 2 and 2", total, batches)
	}
}

// TestLoadBatches_ContextCancel checks the loader stops before the next batch
// once the context is canceled.
func TestLoadBatches_ContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var batches int
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		batches++
		cancel()
		return int64(len(rows)), nil
	}

	total, err := LoadBatches(ctx, []string{"c"}, rowsOf(10), 4, copyFn)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if batches != 1 || total != 4 {
		t.Fatalf("batches=%d total=%d, want 1 and 4", batches, total)
	}
}

func TestLoadBatches_InvalidArgs(t *testing.T) {
	t.Parallel()

	noop := func(context.Context, []string, [][]any) (int64, error) { return 0, nil }
	if _, err := LoadBatches(context.Background(), nil, rowsOf(1), 0, noop); err == nil {
		t.Fatal("batchSize 0: expected error")
	}
	if _, err := LoadBatches(context.Background(), nil, rowsOf(1), 1, nil); err == nil {
		t.Fatal("nil copyFn: expected error")
	}
}

func TestSplitTable(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, schema, table string }{
		{"tasks", "", "tasks"},
		{"main.tasks", "main", "tasks"},
		{"db.dbo.tasks", "db.dbo", "tasks"},
		{" tasks ", "", "tasks"},
	}
	for _, tc := range tests {
		s, tb := SplitTable(tc.in)
		if s != tc.schema || tb != tc.table {
			t.Errorf("SplitTable(%q) = %q, %q; want %q, %q", tc.in, s, tb, tc.schema, tc.table)
		}
	}
}

func TestInsertColumns(t *testing.T) {
	t.Parallel()

	got := InsertColumns([]string{"b", "zz", "a"}, []string{"id", "a", "b"})
	if len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Fatalf("InsertColumns = %v, want [b a]", got)
	}
	if got := InsertColumns([]string{"x"}, []string{"a"}); len(got) != 0 {
		t.Fatalf("InsertColumns = %v, want empty", got)
	}
}

type ansi struct{ Base }

func (ansi) Name() string                                { return "ansi" }
func (ansi) Driver() string                              { return "" }
func (ansi) ColumnsQuery(string, string) (string, []any) { return "", nil }

func TestInserterQuery(t *testing.T) {
	t.Parallel()

	in := newInserter(ansi{}, `"t"`, []string{"a", "b"})
	if q := in.query(2); q != `INSERT INTO "t" ("a", "b") VALUES (?, ?), (?, ?)` {
		t.Fatalf("query = %s", q)
	}
	if in.perStmt != 65535/2 {
		t.Fatalf("perStmt = %d", in.perStmt)
	}
}
