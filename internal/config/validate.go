// This file adds a lightweight linter for Job values. It performs static
// checks over a decoded Job and returns a list of issues (errors and
// warnings) that the CLI can print before anything touches the database.

package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Job.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "transform.date_columns[1]"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// KnownKinds lists the storage kinds the binary can be built with.
var KnownKinds = []string{"sqlite", "postgres", "mysql", "mssql", "oracle"}

// Validate performs static validation of a Job. The table may legitimately
// be empty here when the mapping file is expected to supply it; that case is
// re-checked once the mapping file is loaded.
func Validate(j Job) []Issue {
	var issues []Issue
	issues = append(issues, validateSource(j.Source)...)
	issues = append(issues, validateStorage(j.Storage, j.Mapping)...)
	issues = append(issues, validateTransform(j.Transform)...)
	issues = append(issues, validateRuntime(j.Runtime)...)
	issues = append(issues, validateMetrics(j.Metrics)...)
	return issues
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

func validateSource(s Source) []Issue {
	var issues []Issue
	if strings.TrimSpace(s.Path) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.path",
			Message:  "source.path (--excel) must not be empty",
		})
	} else if !knownSourceExt(s.Path) {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.path",
			Message:  fmt.Sprintf("%q does not look like an .xlsx workbook or a CSV/TSV file", s.Path),
		})
	}
	return issues
}

// knownSourceExt ignores any URL query or fragment.
func knownSourceExt(p string) bool {
	p = strings.ToLower(p)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	for _, ext := range []string{".xlsx", ".xlsm", ".csv", ".tsv", ".tab"} {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

func validateStorage(s Storage, mappingPath string) []Issue {
	var issues []Issue

	kind := strings.TrimSpace(s.Kind)
	if kind == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
	} else {
		known := false
		for _, k := range KnownKinds {
			if k == kind {
				known = true
				break
			}
		}
		if !known {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "storage.kind",
				Message:  fmt.Sprintf("unknown storage kind %q; want one of %s", kind, strings.Join(KnownKinds, ", ")),
			})
		}
	}

	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.dsn",
			Message:  "storage.dsn (--db) must not be empty",
		})
	}
	if strings.TrimSpace(s.Table) == "" && strings.TrimSpace(mappingPath) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.table",
			Message:  "storage.table (--table) is required when no mapping file specifies the table",
		})
	}
	return issues
}

func validateTransform(t Transform) []Issue {
	var issues []Issue
	seen := map[string]bool{}
	for i, c := range t.DateColumns {
		path := fmt.Sprintf("transform.date_columns[%d]", i)
		if strings.TrimSpace(c) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: "date column name must not be empty"})
			continue
		}
		if seen[c] {
			issues = append(issues, Issue{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf("date column %q listed twice", c)})
		}
		seen[c] = true
	}
	if tz := strings.TrimSpace(t.Timezone); tz != "" {
		if _, err := (Job{Transform: t}).Location(); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "transform.timezone",
				Message:  fmt.Sprintf("unknown timezone %q: %v", tz, err),
			})
		}
	}
	return issues
}

func validateRuntime(r Runtime) []Issue {
	var issues []Issue
	if r.BatchSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.batch_size",
			Message:  "runtime.batch_size must be > 0",
		})
	}
	if r.Truncate && !r.Commit {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.truncate",
			Message:  "truncate has no effect without commit",
		})
	}
	if r.SkipErrors {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.skip_errors",
			Message:  "skip_errors is non-atomic: rows of failing batches are dropped while the rest commits",
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch strings.TrimSpace(m.Backend) {
	case "", "none":
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway backend requires a URL",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.StatsdAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.statsd_addr",
				Message:  "datadog backend requires a DogStatsD address",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics disabled", m.Backend),
		})
	}
	return issues
}
