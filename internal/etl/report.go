package etl

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"sheetimport/internal/mapping"
)

// Report describes a run. Fields after a failure hold what was known when
// the run stopped.
type Report struct {
	RunID  string `json:"run_id"`
	Job    string `json:"job"`
	Source string `json:"source"`
	Sheet  string `json:"sheet,omitempty"`
	Table  string `json:"table,omitempty"`

	// Empty is set when the sheet had no data rows; nothing else ran.
	Empty     bool `json:"empty"`
	DryRun    bool `json:"dry_run"`
	Committed bool `json:"committed"`

	SourceColumns []string       `json:"source_columns"`
	TableColumns  []string       `json:"table_columns,omitempty"`
	MappingMode   string         `json:"mapping_mode,omitempty"`
	Mapping       []mapping.Pair `json:"mapping,omitempty"`
	InsertColumns []string       `json:"insert_columns,omitempty"`
	Prepared      int            `json:"prepared"`
	Sample        string         `json:"sample,omitempty"`
	Warnings      []string       `json:"warnings,omitempty"`

	Backup         string `json:"backup,omitempty"`
	Deleted        int64  `json:"deleted"`
	Inserted       int64  `json:"inserted"`
	Batches        int    `json:"batches"`
	SkippedBatches int    `json:"skipped_batches"`
	SkippedRows    int64  `json:"skipped_rows"`

	Elapsed time.Duration `json:"elapsed_ns"`
}

// WriteJSON writes r as indented JSON.
func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText writes the human-readable summary of r.
func (r Report) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Sheet %q of %s\n", r.Sheet, r.Source)
	fmt.Fprintf(&b, "Columns in sheet: %s\n", strings.Join(r.SourceColumns, ", "))
	if r.Empty {
		b.WriteString("No rows found in the sheet. Nothing to import.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}
	if len(r.TableColumns) > 0 {
		fmt.Fprintf(&b, "Table %s columns: %s\n", r.Table, strings.Join(r.TableColumns, ", "))
	}
	if len(r.Mapping) > 0 {
		fmt.Fprintf(&b, "Column mapping (%s, sheet -> table):\n", r.MappingMode)
		for _, p := range r.Mapping {
			fmt.Fprintf(&b, "  %q -> %q\n", p.Source, p.Dest)
		}
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", warn)
	}
	if r.Prepared > 0 || len(r.InsertColumns) > 0 {
		fmt.Fprintf(&b, "Prepared %s rows for table %q (dry-run=%t)\n", humanize.Comma(int64(r.Prepared)), r.Table, r.DryRun)
		fmt.Fprintf(&b, "Sample row: %s\n", r.Sample)
	}
	switch {
	case r.DryRun && len(r.InsertColumns) > 0:
		b.WriteString("\nDRY-RUN: no database changes were made. Use --commit to write.\n")
	case r.Committed:
		if r.Backup != "" {
			fmt.Fprintf(&b, "Database backup created at %s\n", r.Backup)
		}
		if r.Deleted > 0 {
			fmt.Fprintf(&b, "Deleted %s existing rows from %s\n", humanize.Comma(r.Deleted), r.Table)
		}
		fmt.Fprintf(&b, "Inserted %s rows into %s in %s batches.\n",
			humanize.Comma(r.Inserted), r.Table, humanize.Comma(int64(r.Batches)))
		if r.SkippedBatches > 0 {
			fmt.Fprintf(&b, "Skipped %s failing batches (%s rows). Skip-errors is not atomic: the remaining rows were committed.\n",
				humanize.Comma(int64(r.SkippedBatches)), humanize.Comma(r.SkippedRows))
		}
	case r.Backup != "":
		fmt.Fprintf(&b, "Database backup retained at %s\n", r.Backup)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
