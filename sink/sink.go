package sink

import (
	"context"
	"strconv"
)

// SummaryKey holds the total record count in key-value backends.
const SummaryKey = "total_num"

// KeyPrefix precedes the running record number in generated keys.
const KeyPrefix = "input"

// Key returns the key of the n-th record of a run.
func Key(n int64) string {
	return KeyPrefix + strconv.FormatInt(n, 10)
}

// Sink is an open storage target.
type Sink interface {
	Backend() Backend
	// Close flushes buffered state and releases the target.
	Close(ctx context.Context) error
}

// KVWriter stores batches of key/value pairs; len(keys) == len(values).
type KVWriter interface {
	Sink
	PutBatch(ctx context.Context, keys []string, values []any) error
}

// ListWriter appends batches of records.
type ListWriter interface {
	Sink
	WriteBatch(ctx context.Context, values []any) error
}

// ColumnWriter appends batches laid out as columns. names follow Schema()
// order and every column has the same length.
type ColumnWriter interface {
	Sink
	Schema() Schema
	WriteColumns(ctx context.Context, names []string, columns [][]any) error
}

// SummaryWriter stores the total record count of a finished run.
type SummaryWriter interface {
	PutSummary(ctx context.Context, total int64) error
}
