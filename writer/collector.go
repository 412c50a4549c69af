package writer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/parallelio/logger"
	"github.com/kbukum/parallelio/observability"
	"github.com/kbukum/parallelio/sink"
)

// collector buffers the records of one aggregator.
type collector struct {
	w     *Writer
	batch int
	log   *logger.Logger

	keys   []string
	values []any
}

// Collect appends every record emitted by result and flushes whenever the
// buffer fills up.
func (c *collector) Collect(ctx context.Context, _ int64, result any) error {
	var err error
	emit(result, func(rec any) {
		if err != nil {
			return
		}
		c.keys = append(c.keys, sink.Key(c.w.total.Add(1)-1))
		c.values = append(c.values, rec)
		if len(c.values)%c.batch == 0 {
			err = c.flush(ctx)
		}
	})
	return err
}

// Close flushes what is left and lets the writer finish the sink.
func (c *collector) Close(ctx context.Context) error {
	if err := c.flush(ctx); err != nil {
		return err
	}
	return c.w.finish(ctx)
}

func emit(result any, fn func(any)) {
	switch r := result.(type) {
	case nil:
	case Records:
		for _, v := range r {
			fn(v)
		}
	case []any:
		for _, v := range r {
			fn(v)
		}
	default:
		fn(result)
	}
}

func (c *collector) flush(ctx context.Context) (err error) {
	n := len(c.values)
	if n == 0 {
		return nil
	}
	w := c.w
	ctx, span := observability.StartSpan(ctx, observability.SpanFlush,
		attribute.String("backend", w.backend.String()),
		attribute.Int("batch_size", n),
	)
	start := time.Now()
	defer func() { observability.EndSpan(span, err) }()

	switch w.capb.Shape {
	case sink.ShapeKV:
		err = w.kv.PutBatch(ctx, c.keys, c.values)
	case sink.ShapeList:
		err = w.list.WriteBatch(ctx, c.values)
	case sink.ShapeColumnar:
		var cols [][]any
		cols, err = w.schema.Pivot(c.values)
		if err != nil {
			return w.sinkError("pivot", err)
		}
		err = w.cols.WriteColumns(ctx, w.schema.Names(), cols)
	}
	if err != nil {
		return w.sinkError("write", err)
	}

	d := time.Since(start)
	w.batches.Add(1)
	w.metrics.RecordFlush(ctx, w.backend.String(), n, d)
	c.log.Debug("batch flushed", logger.Fields(logger.FieldBatchSize, n, logger.FieldDuration, d.Milliseconds()))
	c.keys, c.values = nil, nil
	return nil
}
