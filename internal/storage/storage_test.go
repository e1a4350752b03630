package storage_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"

	"sheetimport/internal/failure"
	"sheetimport/internal/records"
	"sheetimport/internal/storage"
	"sheetimport/internal/storage/sqlite"
)

// smallDialect forces several INSERT statements per batch.
type smallDialect struct{ sqlite.Dialect }

func (smallDialect) Name() string   { return "sqlite-small" }
func (smallDialect) MaxParams() int { return 4 }

func init() { storage.Register(smallDialect{}) }

// newDB creates a SQLite file with the given DDL and opens it via storage.
func newDB(t *testing.T, kind string, ddl ...string) (*storage.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	raw, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	for _, q := range ddl {
		if _, err := raw.Exec(q); err != nil {
			t.Fatalf("exec %q: %v", q, err)
		}
	}
	if err := raw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	db, err := storage.Open(context.Background(), storage.Config{Kind: kind, DSN: path})
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, path
}

func count(t *testing.T, path, table string) int {
	t.Helper()
	raw, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer raw.Close()
	var n int
	if err := raw.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func intTable(cols []string, vals ...int64) records.Table {
	tbl := records.Table{Columns: cols}
	for _, v := range vals {
		row := make([]records.Value, len(cols))
		for i := range row {
			row[i] = records.Int(v)
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	return tbl
}

const tasksDDL = `CREATE TABLE tasks (
	id INTEGER PRIMARY KEY,
	name TEXT,
	n INTEGER NOT NULL CHECK (n >= 0),
	due INTEGER
)`

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	missing := filepath.Join(t.TempDir(), "nope.db")
	if _, err := storage.Open(ctx, storage.Config{Kind: "sqlite", DSN: missing}); !errors.Is(err, failure.ErrSchemaLookup) {
		t.Fatalf("missing file: err = %v, want ErrSchemaLookup", err)
	}
	if _, err := storage.Open(ctx, storage.Config{Kind: "sqlite", DSN: "  "}); !errors.Is(err, failure.ErrMissingArgument) {
		t.Fatalf("empty DSN: err = %v, want ErrMissingArgument", err)
	}
	_, err := storage.Open(ctx, storage.Config{Kind: "couchdb", DSN: "x"})
	if !errors.Is(err, failure.ErrInvalidConfig) {
		t.Fatalf("unknown kind: err = %v, want ErrInvalidConfig", err)
	}
	if len(failure.Hints(err)) == 0 {
		t.Fatal("unknown kind: expected a hint listing registered kinds")
	}
}

func TestLookup_Aliases(t *testing.T) {
	t.Parallel()

	for alias, want := range map[string]string{"SQLite3": "sqlite", "sqlite": "sqlite"} {
		d, err := storage.Lookup(alias)
		if err != nil || d.Name() != want {
			t.Errorf("Lookup(%q) = %v, %v", alias, d, err)
		}
	}
}

func TestColumns(t *testing.T) {
	t.Parallel()

	db, _ := newDB(t, "sqlite", tasksDDL)
	ctx := context.Background()
	cols, err := db.Columns(ctx, "tasks")
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	want := []string{"id", "name", "n", "due"}
	if len(cols) != len(want) {
		t.Fatalf("Columns = %v, want %v", cols, want)
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Fatalf("Columns = %v, want %v", cols, want)
		}
	}
	if _, err := db.Columns(ctx, "main.tasks"); err != nil {
		t.Fatalf("schema-qualified Columns: %v", err)
	}
	_, err = db.Columns(ctx, "missing")
	if !errors.Is(err, failure.ErrSchemaLookup) {
		t.Fatalf("missing table: err = %v, want ErrSchemaLookup", err)
	}
}

func TestWrite_InsertsIntersection(t *testing.T) {
	t.Parallel()

	db, path := newDB(t, "sqlite", tasksDDL)
	tbl := records.Table{
		Columns: []string{"name", "n", "extra"},
		Rows: [][]records.Value{
			{records.Text("a"), records.Int(1), records.Text("ignored")},
			{records.Null(), records.Int(2), records.Text("ignored")},
		},
	}
	res, err := db.Write(context.Background(), tbl, storage.WriteOptions{Table: "tasks"})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if res.Inserted != 2 || len(res.Columns) != 2 || res.Batches != 1 {
		t.Fatalf("result = %+v", res)
	}
	if n := count(t, path, "tasks WHERE name IS NULL"); n != 1 {
		t.Fatalf("null names = %d, want 1", n)
	}
}

func TestWrite_NoInsertableColumns(t *testing.T) {
	t.Parallel()

	db, _ := newDB(t, "sqlite", tasksDDL)
	_, err := db.Write(context.Background(), intTable([]string{"zz"}, 1), storage.WriteOptions{Table: "tasks"})
	if !errors.Is(err, failure.ErrNoInsertableColumns) {
		t.Fatalf("err = %v, want ErrNoInsertableColumns", err)
	}
}

func TestWrite_Truncate(t *testing.T) {
	t.Parallel()

	db, path := newDB(t, "sqlite", tasksDDL,
		"INSERT INTO tasks (n) VALUES (10), (11), (12)")
	res, err := db.Write(context.Background(), intTable([]string{"n"}, 1, 2),
		storage.WriteOptions{Table: "tasks", Truncate: true})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if res.Deleted != 3 || res.Inserted != 2 {
		t.Fatalf("result = %+v", res)
	}
	if n := count(t, path, "tasks"); n != 2 {
		t.Fatalf("rows = %d, want 2", n)
	}
}

func TestWrite_BatchFailureRollsBack(t *testing.T) {
	t.Parallel()

	db, path := newDB(t, "sqlite", tasksDDL,
		"INSERT INTO tasks (n) VALUES (10)")
	res, err := db.Write(context.Background(), intTable([]string{"n"}, 1, 2, -1, 4, 5),
		storage.WriteOptions{Table: "tasks", Truncate: true, BatchSize: 2})
	if !errors.Is(err, failure.ErrBatchInsert) {
		t.Fatalf("err = %v, want ErrBatchInsert", err)
	}
	if res.Inserted != 0 || res.Batches != 2 {
		t.Fatalf("result = %+v, want nothing inserted after 2 batches", res)
	}
	if failure.ExitCode(err) != failure.ExitWriteFailed {
		t.Fatalf("exit code = %d", failure.ExitCode(err))
	}
	if n := count(t, path, "tasks WHERE n = 10"); n != 1 {
		t.Fatal("failed write must leave the table unchanged")
	}
	if n := count(t, path, "tasks"); n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
}

func TestWrite_SkipErrors(t *testing.T) {
	t.Parallel()

	db, path := newDB(t, "sqlite", tasksDDL)
	res, err := db.Write(context.Background(), intTable([]string{"n"}, 1, 2, -1, 4, 5),
		storage.WriteOptions{Table: "tasks", BatchSize: 2, SkipErrors: true})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if res.Inserted != 3 || res.SkippedBatches != 1 || res.SkippedRows != 2 || res.Batches != 3 {
		t.Fatalf("result = %+v", res)
	}
	if n := count(t, path, "tasks"); n != 3 {
		t.Fatalf("rows = %d, want 3", n)
	}
}

func TestWrite_ChunksByParamLimit(t *testing.T) {
	t.Parallel()

	db, path := newDB(t, "sqlite-small", tasksDDL)
	vals := make([]int64, 11)
	for i := range vals {
		vals[i] = int64(i)
	}
	res, err := db.Write(context.Background(), intTable([]string{"n", "due"}, vals...),
		storage.WriteOptions{Table: "tasks", BatchSize: 5})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if res.Inserted != 11 || res.Batches != 3 {
		t.Fatalf("result = %+v", res)
	}
	if n := count(t, path, "tasks WHERE n = due"); n != 11 {
		t.Fatalf("rows = %d, want 11", n)
	}
}

func TestWrite_Canceled(t *testing.T) {
	t.Parallel()

	db, path := newDB(t, "sqlite", tasksDDL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := db.Write(ctx, intTable([]string{"n"}, 1, 2), storage.WriteOptions{Table: "tasks", Schema: []string{"id", "name", "n", "due"}})
	if !errors.Is(err, failure.ErrTransaction) {
		t.Fatalf("err = %v, want ErrTransaction", err)
	}
	if n := count(t, path, "tasks"); n != 0 {
		t.Fatalf("rows = %d, want 0", n)
	}
}
