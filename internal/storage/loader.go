package storage

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"sheetimport/internal/logging"
)

// CopyFn inserts one batch. Implementations insert the provided rows
// (aligned to 'columns' order) and return the number of rows inserted.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches groups rows into batches of size 'batchSize' and calls 'copyFn'
// for each non-empty batch, including the final partial one. It returns the
// total number of rows reported by copyFn and the first error encountered.
//
// Cancellation: returns (total, ctx.Err()) when canceled between batches.
// Progress is logged on each successful flush.
func LoadBatches(
	ctx context.Context,
	columns []string,
	rows [][]any,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, errors.New("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, errors.New("copyFn must not be nil")
	}

	log := logging.FromContext(ctx)
	var (
		total       int64
		batches     int64
		start       = time.Now()
		lastFlushTS = start
		lastTotal   int64
	)

	for lo := 0; lo < len(rows); lo += batchSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		hi := lo + batchSize
		if hi > len(rows) {
			hi = len(rows)
		}

		n, err := copyFn(ctx, columns, rows[lo:hi])
		total += n
		batches++
		if err != nil {
			log.Error("loader: batch failed", "batch", batches, "inserted", n, "total_inserted", total, "err", err)
			return total, err
		}

		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(total-lastTotal) / sinceLast.Seconds()
		}
		log.Debug("batch flushed",
			"batch", batches,
			"rps", int64(rps),
			"inserted", n,
			"total_inserted", total,
			"elapsed", now.Sub(start).Truncate(time.Millisecond),
			"since_last", sinceLast.Truncate(time.Millisecond),
		)
		lastFlushTS = now
		lastTotal = total
	}
	log.Debug("loader: input drained", "batches", batches, "total_inserted", total)
	return total, nil
}
