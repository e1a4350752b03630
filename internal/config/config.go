// Package config defines the serializable configuration model for an import
// run. A Job can be loaded from a JSON or YAML file and is then overridden by
// command-line flags, so a file can pin the stable parts (database, table,
// date columns) while each run only names the workbook.
//
// Example (JSON):
//
//	{
//	  "source":    { "path": "data.xlsx", "sheet": "Sheet1" },
//	  "mapping":   "scripts/mapping.json",
//	  "storage":   { "kind": "sqlite", "dsn": "db.sqlite", "table": "clients" },
//	  "transform": { "date_columns": ["due_date"], "timezone": "UTC" },
//	  "runtime":   { "batch_size": 500, "commit": false, "truncate": false, "skip_errors": false }
//	}
package config

import (
	"strings"
	"time"
)

// Defaults used when neither a file nor a flag provides a value.
const (
	DefaultSheet     = "0"
	DefaultKind      = "sqlite"
	DefaultDSN       = "db.sqlite"
	DefaultBatchSize = 500
)

// Job is the top-level run configuration.
type Job struct {
	// Name labels metrics and logs. Defaults to the destination table.
	Name string `json:"name" yaml:"name"`

	Source Source `json:"source" yaml:"source"`

	// Mapping is an optional path to a mapping file (see MappingFile).
	Mapping string `json:"mapping" yaml:"mapping"`

	Storage   Storage   `json:"storage" yaml:"storage"`
	Transform Transform `json:"transform" yaml:"transform"`
	Runtime   Runtime   `json:"runtime" yaml:"runtime"`
	Log       Log       `json:"log" yaml:"log"`
	Metrics   Metrics   `json:"metrics" yaml:"metrics"`
}

// Source identifies the workbook and the sheet to import.
type Source struct {
	// Path is a local path or http(s) URL of an .xlsx workbook or a CSV/TSV
	// export. The extension selects the reader.
	Path string `json:"path" yaml:"path"`

	// Sheet is a sheet name or a zero-based sheet index. A sheet whose name
	// equals the value wins over the index interpretation.
	Sheet string `json:"sheet" yaml:"sheet"`
}

// Storage selects the destination database and table.
type Storage struct {
	// Kind selects the dialect: sqlite, postgres, mysql, mssql or oracle.
	Kind string `json:"kind" yaml:"kind"`

	// DSN is the driver connection string. For sqlite a plain file path is
	// accepted.
	DSN string `json:"dsn" yaml:"dsn"`

	// Table is the destination table; "schema.table" is accepted.
	Table string `json:"table" yaml:"table"`
}

// Transform configures the row transformer.
type Transform struct {
	// DateColumns are destination column names whose values are converted to
	// integer Unix seconds.
	DateColumns []string `json:"date_columns" yaml:"date_columns"`

	// Timezone is the IANA zone used for date text without an offset.
	// Empty means UTC.
	Timezone string `json:"timezone" yaml:"timezone"`
}

// Runtime controls the write phase.
type Runtime struct {
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// Commit enables writing. When false the run is a dry-run.
	Commit bool `json:"commit" yaml:"commit"`

	// Truncate deletes all existing rows before inserting (commit only).
	Truncate bool `json:"truncate" yaml:"truncate"`

	// SkipErrors drops failing batches instead of rolling back the run.
	// Rows of a skipped batch are lost; the rest of the import commits.
	SkipErrors bool `json:"skip_errors" yaml:"skip_errors"`
}

// Log configures the process logger.
type Log struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Metrics selects an optional metrics backend.
type Metrics struct {
	// Backend is one of none, pushgateway, datadog. Empty means unset: the
	// METRICS_BACKEND environment variable may fill it, otherwise none.
	Backend        string `json:"backend" yaml:"backend"`
	PushgatewayURL string `json:"pushgateway_url" yaml:"pushgateway_url"`
	StatsdAddr     string `json:"statsd_addr" yaml:"statsd_addr"`
}

// Default returns a Job populated with the built-in defaults.
func Default() Job {
	return Job{
		Source:  Source{Sheet: DefaultSheet},
		Storage: Storage{Kind: DefaultKind, DSN: DefaultDSN},
		Runtime: Runtime{BatchSize: DefaultBatchSize},
		Log:     Log{Level: "info", Format: "auto"},
	}
}

// JobName returns Name, falling back to the table and then "sheetimport".
func (j Job) JobName() string {
	if n := strings.TrimSpace(j.Name); n != "" {
		return n
	}
	if t := strings.TrimSpace(j.Storage.Table); t != "" {
		return t
	}
	return "sheetimport"
}

// Location resolves Transform.Timezone.
func (j Job) Location() (*time.Location, error) {
	tz := strings.TrimSpace(j.Transform.Timezone)
	if tz == "" || strings.EqualFold(tz, "UTC") {
		return time.UTC, nil
	}
	return time.LoadLocation(tz)
}

// SplitList splits a comma-separated flag value, trimming blanks and
// dropping empty items.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
