package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"sheetimport/internal/config"
	"sheetimport/internal/etl"
	"sheetimport/internal/failure"
	"sheetimport/internal/logging"
	"sheetimport/internal/storage"

	// register every database dialect with the storage registry.
	_ "sheetimport/internal/storage/all"
)

// options holds raw flag values. They override the config file only when
// the flag was set on the command line.
type options struct {
	configPath string
	validate   bool
	report     string

	excel      string
	sheet      string
	table      string
	db         string
	driver     string
	mapping    string
	commit     bool
	truncate   bool
	dateCols   string
	batch      int
	skipErrors bool
	tz         string

	logLevel  string
	logFormat string

	metricsBackend string
	pushgatewayURL string
	statsdAddr     string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts options
	d := config.Default()

	cmd := &cobra.Command{
		Use:   "sheetimport --excel FILE [--table NAME] [flags]",
		Short: "Import a spreadsheet sheet into a database table",
		Long: `sheetimport reads one sheet of an .xlsx workbook or a .csv/.tsv file (a
local path or an http(s) URL), maps its columns onto an existing table and inserts the rows.

Without --commit nothing is written: the run prints the resolved mapping,
the number of prepared rows and a sample row. With --commit the database
file (sqlite) is backed up and all rows are inserted in one transaction.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return failure.Mark(err, failure.ErrMissingArgument)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return failure.Mark(err, failure.ErrMissingArgument)
	})

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "job config file (JSON or YAML); flags override it")
	f.BoolVar(&opts.validate, "validate", false, "validate the configuration and exit")
	f.StringVar(&opts.report, "report", "text", "report format on stdout: text or json")

	f.StringVar(&opts.excel, "excel", "", "workbook (.xlsx) or CSV/TSV path, or an http(s) URL (required unless set in --config)")
	f.StringVar(&opts.sheet, "sheet", d.Source.Sheet, "sheet name or zero-based index")
	f.StringVar(&opts.table, "table", "", "destination table (default: table from the mapping file)")
	f.StringVar(&opts.db, "db", d.Storage.DSN, "database DSN; a file path for sqlite")
	f.StringVar(&opts.driver, "driver", d.Storage.Kind, "database kind: "+strings.Join(config.KnownKinds, "|"))
	f.StringVar(&opts.mapping, "mapping", "", "mapping file (JSON or YAML) of sheet column -> table column")
	f.BoolVar(&opts.commit, "commit", false, "write to the database (default is a dry-run)")
	f.BoolVar(&opts.truncate, "truncate", false, "delete existing rows before inserting (with --commit)")
	f.StringVar(&opts.dateCols, "date-cols", "", "comma-separated destination columns to store as Unix seconds")
	f.IntVar(&opts.batch, "batch", d.Runtime.BatchSize, "rows per INSERT batch")
	f.BoolVar(&opts.skipErrors, "skip-errors", false, "skip failing batches instead of rolling back (not atomic)")
	f.StringVar(&opts.tz, "tz", "", "IANA time zone for dates without an offset (default UTC)")

	f.StringVar(&opts.logLevel, "log-level", d.Log.Level, "log level: debug, info, warn, error")
	f.StringVar(&opts.logFormat, "log-format", d.Log.Format, "log format: text, json or auto")

	f.StringVar(&opts.metricsBackend, "metrics-backend", d.Metrics.Backend, "metrics backend: none, pushgateway or datadog (env METRICS_BACKEND; default none)")
	f.StringVar(&opts.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (env PUSHGATEWAY_URL)")
	f.StringVar(&opts.statsdAddr, "statsd-addr", "", "DogStatsD address (env DD_DOGSTATSD_ADDR)")
	return cmd
}

// buildJob layers the config file (if any) and the flags set on the command
// line over the defaults.
func buildJob(cmd *cobra.Command, opts options) (config.Job, error) {
	job := config.Default()
	if opts.configPath != "" {
		var err error
		if job, err = config.LoadJob(opts.configPath); err != nil {
			return job, err
		}
	}

	set := cmd.Flags().Changed
	if set("excel") {
		job.Source.Path = opts.excel
	}
	if set("sheet") {
		job.Source.Sheet = opts.sheet
	}
	if set("table") {
		job.Storage.Table = opts.table
	}
	if set("db") {
		job.Storage.DSN = opts.db
	}
	if set("driver") {
		job.Storage.Kind = strings.ToLower(strings.TrimSpace(opts.driver))
	}
	if set("mapping") {
		job.Mapping = opts.mapping
	}
	if set("commit") {
		job.Runtime.Commit = opts.commit
	}
	if set("truncate") {
		job.Runtime.Truncate = opts.truncate
	}
	if set("date-cols") {
		job.Transform.DateColumns = config.SplitList(opts.dateCols)
	}
	if set("batch") {
		job.Runtime.BatchSize = opts.batch
	}
	if set("skip-errors") {
		job.Runtime.SkipErrors = opts.skipErrors
	}
	if set("tz") {
		job.Transform.Timezone = opts.tz
	}
	if set("log-level") {
		job.Log.Level = opts.logLevel
	}
	if set("log-format") {
		job.Log.Format = opts.logFormat
	}
	if set("metrics-backend") {
		job.Metrics.Backend = opts.metricsBackend
	}
	if set("pushgateway-url") {
		job.Metrics.PushgatewayURL = opts.pushgatewayURL
	}
	if set("statsd-addr") {
		job.Metrics.StatsdAddr = opts.statsdAddr
	}
	applyEnv(&job.Metrics)
	return job, nil
}

func run(cmd *cobra.Command, opts options, stdout, stderr io.Writer) error {
	if opts.report != "text" && opts.report != "json" {
		return failure.Newf(failure.ErrMissingArgument, "--report must be text or json, got %q", opts.report)
	}
	job, err := buildJob(cmd, opts)
	if err != nil {
		return err
	}

	logger := logging.Setup(job.Log.Level, job.Log.Format, stderr)
	ctx := logging.WithContext(cmd.Context(), logger)

	// Aliases such as "postgresql" or "sqlserver" resolve to their kind.
	if d, err := storage.Lookup(job.Storage.Kind); err == nil {
		job.Storage.Kind = d.Name()
	}

	issues := config.Validate(job)
	for _, iss := range issues {
		if iss.Severity == config.SeverityWarning {
			logger.Warn("config: "+iss.Message, "path", iss.Path)
		}
	}
	if config.HasErrors(issues) {
		err := failure.Newf(failure.ErrInvalidConfig, "invalid configuration")
		for _, iss := range issues {
			if iss.Severity == config.SeverityError {
				err = errors.WithHintf(err, "%s: %s", iss.Path, iss.Message)
			}
		}
		return err
	}
	if opts.validate {
		fmt.Fprintln(stdout, "configuration is valid")
		return nil
	}

	flush := setupMetrics(ctx, job)
	defer flush()

	if job.Runtime.SkipErrors && job.Runtime.Commit {
		logger.Warn("skip-errors is enabled: failing batches are dropped and the rest commits; the import is not atomic")
	}

	rep, runErr := etl.Run(ctx, job, etl.Deps{Logger: logger})
	if opts.report == "json" {
		if err := rep.WriteJSON(stdout); err != nil {
			logger.Error("write report", "err", err)
		}
	} else if runErr == nil || rep.Backup != "" {
		if err := rep.WriteText(stdout); err != nil {
			logger.Error("write report", "err", err)
		}
	}
	return runErr
}

// execute runs the command and maps the outcome to a process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return failure.ExitOK
	}
	printError(stderr, err)
	return failure.ExitCode(err)
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "error [%s]: %v\n", failure.Kind(err), err)
	for _, h := range failure.Hints(err) {
		for _, line := range strings.Split(h, "\n") {
			fmt.Fprintf(w, "  hint: %s\n", line)
		}
	}
	slog.Debug("error detail", "detail", fmt.Sprintf("%+v", err))
}
