// Package failure defines the error kinds an import run can end with and the
// process exit code each kind maps to.
//
// Kinds are reference errors. Producers wrap the underlying cause and attach
// a kind with Mark, so callers can branch on errors.Is regardless of how many
// layers of context were added on the way up:
//
//	return failure.Mark(errors.Wrapf(err, "lookup columns of %s", table), failure.ErrSchemaLookup)
package failure

import (
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrSourceNotFound reports that the workbook path does not exist.
	ErrSourceNotFound = errors.New("source file not found")
	// ErrSourceRead reports an unreadable workbook or sheet.
	ErrSourceRead = errors.New("source read failed")

	ErrMissingArgument = errors.New("missing required argument")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrInvalidMapping  = errors.New("invalid column mapping")

	// ErrSchemaLookup reports a destination table that does not exist or
	// cannot be introspected.
	ErrSchemaLookup = errors.New("schema lookup failed")

	// ErrNoMappingFound is returned when auto-matching found no columns.
	ErrNoMappingFound = errors.New("no column mapping found")
	// ErrNoColumnsMatched is returned when no source column is mapped.
	ErrNoColumnsMatched = errors.New("no source columns matched")
	// ErrNoInsertableColumns is returned when no mapped column exists in the
	// destination table.
	ErrNoInsertableColumns = errors.New("no insertable columns")

	// ErrBatchInsert is a failed batch. Recoverable only with skip-errors.
	ErrBatchInsert = errors.New("batch insert failed")
	// ErrTransaction is a failed begin, truncate, savepoint or commit.
	ErrTransaction = errors.New("transaction failed")
	// ErrBackup reports a failed or unverifiable database backup.
	ErrBackup = errors.New("backup failed")
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitUnexpected  = 1
	ExitUsage       = 2
	ExitWriteFailed = 3
)

// Mark attaches kind to err. A nil err stays nil.
func Mark(err, kind error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, kind)
}

// Newf builds a new error of the given kind.
func Newf(kind error, format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), kind)
}

// ExitCode maps err to the exit code of the process. ErrNoInsertableColumns
// is always detected before a transaction starts, so it is a usage error.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.IsAny(err,
		ErrSourceNotFound,
		ErrMissingArgument,
		ErrInvalidConfig,
		ErrInvalidMapping,
		ErrSchemaLookup,
		ErrNoMappingFound,
		ErrNoColumnsMatched,
		ErrNoInsertableColumns):
		return ExitUsage
	case errors.IsAny(err,
		ErrBatchInsert,
		ErrTransaction,
		ErrBackup):
		return ExitWriteFailed
	default:
		return ExitUnexpected
	}
}

// Kind returns the short name of the first kind err is marked with, or
// "unexpected".
func Kind(err error) string {
	for _, k := range []error{
		ErrSourceNotFound, ErrSourceRead, ErrMissingArgument, ErrInvalidConfig,
		ErrInvalidMapping, ErrSchemaLookup, ErrNoMappingFound, ErrNoColumnsMatched,
		ErrNoInsertableColumns, ErrBatchInsert, ErrTransaction, ErrBackup,
	} {
		if errors.Is(err, k) {
			return strings.ReplaceAll(k.Error(), " ", "_")
		}
	}
	return "unexpected"
}

// Hints returns the user-facing hints attached anywhere in err's chain.
func Hints(err error) []string {
	if err == nil {
		return nil
	}
	return errors.GetAllHints(err)
}
