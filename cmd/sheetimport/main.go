// Command sheetimport loads one worksheet of an .xlsx workbook (or a CSV/TSV
// export) into an existing database table.
//
// It is a dry-run unless --commit is given: the run reads the sheet, maps
// its columns onto the table and prints what would be inserted. A commit
// run backs up file databases first and writes all rows in one
// transaction.
//
// Exit codes: 0 success (including dry-run and empty sheet), 1 unexpected or
// unreadable input, 2 usage, configuration, mapping or schema errors, 3 write
// failures (the transaction was rolled back).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
