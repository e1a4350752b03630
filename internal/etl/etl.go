// Package etl runs one import: read a sheet, resolve the column mapping
// against the destination table, transform the rows and, on commit, back up
// the database file and write the rows in one transaction.
package etl

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"sheetimport/internal/backup"
	"sheetimport/internal/config"
	"sheetimport/internal/datasource"
	"sheetimport/internal/datasource/file"
	"sheetimport/internal/datasource/httpds"
	"sheetimport/internal/failure"
	"sheetimport/internal/logging"
	"sheetimport/internal/mapping"
	"sheetimport/internal/metrics"
	"sheetimport/internal/parser"
	"sheetimport/internal/parser/csv"
	"sheetimport/internal/parser/xlsx"
	"sheetimport/internal/records"
	"sheetimport/internal/storage"
	"sheetimport/internal/transformer"
)

// Deps are the run's replaceable collaborators. The zero value is usable.
type Deps struct {
	// Logger defaults to the logger in ctx.
	Logger *slog.Logger

	// Now stamps backups. Defaults to time.Now.
	Now func() time.Time

	// HTTP fetches workbooks given as http(s) URLs. Nil means a client with
	// default settings and three retries.
	HTTP *httpds.Client
}

// step times fn and reports it to metrics under name.
func step(job, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStep(job, name, err, time.Since(start))
	return err
}

// Run executes job and returns what happened. On error the Report holds
// everything gathered up to the failure, including a retained backup path.
func Run(ctx context.Context, job config.Job, deps Deps) (rep Report, err error) {
	start := time.Now()
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger != nil {
		ctx = logging.WithContext(ctx, deps.Logger)
	}

	rep = Report{
		RunID:  uuid.NewString(),
		Job:    job.JobName(),
		Source: job.Source.Path,
		DryRun: !job.Runtime.Commit,
	}
	ctx = logging.WithFields(ctx, "run_id", rep.RunID, "job", rep.Job)
	log := logging.FromContext(ctx)
	defer func() { rep.Elapsed = time.Since(start) }()

	src, err := openSource(job.Source.Path, deps.HTTP)
	if err != nil {
		return rep, err
	}

	// 1) Read the sheet.
	var tbl records.Table
	err = step(rep.Job, "read", func() error {
		tbl, rep.Sheet, err = readSheet(ctx, src, job.Source.Sheet)
		return err
	})
	if err != nil {
		return rep, err
	}
	rep.SourceColumns = tbl.Columns
	metrics.RecordRow(rep.Job, metrics.RowsRead, int64(tbl.Len()))
	log.Info("sheet loaded", "source", src.Name(), "sheet", rep.Sheet, "columns", len(tbl.Columns), "rows", tbl.Len())
	if tbl.Empty() {
		rep.Empty = true
		log.Info("no rows found in the sheet, nothing to import")
		return rep, nil
	}

	// 2) Mapping file and destination table.
	var mf *config.MappingFile
	if p := strings.TrimSpace(job.Mapping); p != "" {
		if mf, err = config.LoadMapping(p); err != nil {
			return rep, err
		}
	}
	rep.Table = resolveTable(job.Storage.Table, mf)
	if rep.Table == "" {
		return rep, errors.WithHint(
			failure.Newf(failure.ErrMissingArgument, "no destination table"),
			"pass --table or set \"table\" in the mapping file")
	}
	ctx = logging.WithFields(ctx, "table", rep.Table)
	log = logging.FromContext(ctx)

	// 3) Destination schema.
	var db *storage.DB
	err = step(rep.Job, "schema", func() error {
		if db, err = storage.Open(ctx, storage.Config{Kind: job.Storage.Kind, DSN: job.Storage.DSN}); err != nil {
			return err
		}
		rep.TableColumns, err = db.Columns(ctx, rep.Table)
		return err
	})
	if db != nil {
		defer func() {
			if cerr := db.Close(); cerr != nil {
				log.Warn("close database", "err", cerr)
			}
		}()
	}
	if err != nil {
		return rep, err
	}
	log.Debug("table columns", "columns", rep.TableColumns)

	// 4) Column mapping.
	var m mapping.Mapping
	err = step(rep.Job, "map", func() error {
		var warns []string
		m, warns, err = mapping.Resolve(mf, tbl.Columns, rep.TableColumns)
		rep.Warnings = append(rep.Warnings, warns...)
		return err
	})
	if err != nil {
		return rep, err
	}
	rep.MappingMode = string(m.Mode())
	rep.Mapping = m.Pairs()
	log.Info("column mapping resolved", "mode", m.Mode(), "pairs", m.Len())

	// 5) Transform.
	loc, err := job.Location()
	if err != nil {
		return rep, failure.Mark(errors.Wrapf(err, "timezone %q", job.Transform.Timezone), failure.ErrInvalidConfig)
	}
	var res transformer.Result
	err = step(rep.Job, "transform", func() error {
		res, err = transformer.Apply(tbl, m, transformer.Options{DateColumns: job.Transform.DateColumns, Location: loc})
		return err
	})
	if err != nil {
		return rep, err
	}
	rep.Warnings = append(rep.Warnings, dateWarnings(res, m)...)
	rep.Prepared = res.Table.Len()
	rep.Sample = res.Table.FormatRow(0)
	metrics.RecordRow(rep.Job, metrics.RowsPrepared, int64(rep.Prepared))

	rep.InsertColumns = storage.InsertColumns(res.Table.Columns, rep.TableColumns)
	if len(rep.InsertColumns) == 0 {
		return rep, errors.WithHintf(
			failure.Newf(failure.ErrNoInsertableColumns, "none of the mapped columns exist in %s", rep.Table),
			"mapped columns: %s; table columns: %s",
			strings.Join(res.Table.Columns, ", "), strings.Join(rep.TableColumns, ", "))
	}
	for _, w := range rep.Warnings {
		log.Warn(w)
	}
	log.Info("rows prepared", "rows", rep.Prepared, "dry_run", rep.DryRun)

	if rep.DryRun {
		return rep, nil
	}

	// 6) Backup.
	err = step(rep.Job, "backup", func() error {
		dbFile := db.File()
		if dbFile == "" {
			log.Info("no file backup applies", "driver", db.Dialect().Name())
			return nil
		}
		rep.Backup, err = backup.Create(ctx, dbFile, deps.Now())
		return err
	})
	if err != nil {
		return rep, err
	}

	// 7) Write.
	var wr storage.WriteResult
	err = step(rep.Job, "write", func() error {
		wr, err = db.Write(ctx, res.Table, storage.WriteOptions{
			Table:      rep.Table,
			Schema:     rep.TableColumns,
			Truncate:   job.Runtime.Truncate,
			BatchSize:  job.Runtime.BatchSize,
			SkipErrors: job.Runtime.SkipErrors,
		})
		return err
	})
	rep.Deleted = wr.Deleted
	rep.Inserted = wr.Inserted
	rep.Batches = wr.Batches
	rep.SkippedBatches = wr.SkippedBatches
	rep.SkippedRows = wr.SkippedRows
	metrics.RecordBatches(rep.Job, int64(wr.Batches))
	if err != nil {
		if rep.Backup != "" {
			log.Error("write failed, backup retained", "backup", rep.Backup, "err", err)
			err = errors.WithHintf(err, "database backup retained at %s", rep.Backup)
		}
		return rep, err
	}
	rep.Committed = true
	metrics.RecordRow(rep.Job, metrics.RowsInserted, wr.Inserted)
	metrics.RecordRow(rep.Job, metrics.RowsSkipped, wr.SkippedRows)
	log.Info("import committed", "inserted", wr.Inserted, "batches", wr.Batches,
		"skipped_batches", wr.SkippedBatches, "skipped_rows", wr.SkippedRows)
	return rep, nil
}

// openSource picks an HTTP or local source for location.
func openSource(location string, client *httpds.Client) (datasource.Source, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, failure.Newf(failure.ErrMissingArgument, "no workbook given (--excel)")
	}
	if datasource.IsURL(location) {
		return httpds.NewRemote(client, location), nil
	}
	return file.NewLocal(location), nil
}

func readSheet(ctx context.Context, src datasource.Source, sheet string) (records.Table, string, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return records.Table{}, "", err
	}
	defer rc.Close()

	var (
		p    parser.Parser
		name func() string
	)
	if comma, ok := delimited(src.Name()); ok {
		if sheet != "" {
			logging.FromContext(ctx).Warn("sheet selector ignored for delimited input", "sheet", sheet)
		}
		p = csv.NewParser(csv.Options{Comma: comma, TrimSpace: true})
		// Spreadsheet programs name the single sheet of a text file after it.
		name = func() string {
			base := path.Base(sourcePath(src.Name()))
			return strings.TrimSuffix(base, path.Ext(base))
		}
	} else {
		xp := xlsx.NewParser(xlsx.Options{Sheet: sheet})
		p, name = xp, xp.Sheet
	}

	tbl, err := p.Parse(rc)
	if err != nil {
		return records.Table{}, "", errors.Wrapf(err, "read %s", src.Name())
	}
	return tbl, name(), nil
}

// delimited reports whether name is a CSV or TSV file and its delimiter.
func delimited(name string) (rune, bool) {
	switch strings.ToLower(path.Ext(sourcePath(name))) {
	case ".csv":
		return ',', true
	case ".tsv", ".tab":
		return '\t', true
	}
	return 0, false
}

// sourcePath is the slash-separated path part of a file name or URL.
func sourcePath(name string) string {
	if datasource.IsURL(name) {
		if u, err := url.Parse(name); err == nil {
			return u.Path
		}
	}
	return filepath.ToSlash(name)
}

// resolveTable applies table precedence: flag or job file, then mapping file.
func resolveTable(table string, mf *config.MappingFile) string {
	if t := strings.TrimSpace(table); t != "" {
		return t
	}
	if mf != nil {
		return strings.TrimSpace(mf.Table)
	}
	return ""
}

// dateWarnings reports requested date columns that matched nothing and date
// values that were nulled.
func dateWarnings(res transformer.Result, m mapping.Mapping) []string {
	var out []string
	for _, c := range res.UnknownDateColumns {
		w := fmt.Sprintf("date column %q is not a mapped destination column", c)
		if d, ok := m.Dest(c); ok {
			w += fmt.Sprintf("; date columns are named by destination column, did you mean %q?", d)
		}
		out = append(out, w)
	}
	cols := make([]string, 0, len(res.UnparsedDates))
	for c := range res.UnparsedDates {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	for _, c := range cols {
		out = append(out, fmt.Sprintf("%s value(s) in date column %q could not be parsed and were set to NULL",
			humanize.Comma(int64(res.UnparsedDates[c])), c))
	}
	return out
}
