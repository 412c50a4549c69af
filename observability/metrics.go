package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names.
const (
	MetricRecordsWritten  = "parallelio.records.written"
	MetricBatchesFlushed  = "parallelio.batches.flushed"
	MetricFlushDuration   = "parallelio.flush.duration"
	MetricItemsDispatched = "parallelio.items.dispatched"
	MetricErrors          = "parallelio.errors"
)

// PipelineMetrics holds the instruments recorded by a run. A nil
// *PipelineMetrics records nothing.
type PipelineMetrics struct {
	recordsWritten  metric.Int64Counter
	batchesFlushed  metric.Int64Counter
	flushDuration   metric.Float64Histogram
	itemsDispatched metric.Int64Counter
	errors          metric.Int64Counter
}

// NewPipelineMetrics creates the pipeline instruments on meter.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	m := &PipelineMetrics{}
	var err error

	if m.recordsWritten, err = meter.Int64Counter(MetricRecordsWritten,
		metric.WithDescription("Records handed to a sink"),
	); err != nil {
		return nil, fmt.Errorf("creating %s: %w", MetricRecordsWritten, err)
	}
	if m.batchesFlushed, err = meter.Int64Counter(MetricBatchesFlushed,
		metric.WithDescription("Batches flushed to a sink"),
	); err != nil {
		return nil, fmt.Errorf("creating %s: %w", MetricBatchesFlushed, err)
	}
	if m.flushDuration, err = meter.Float64Histogram(MetricFlushDuration,
		metric.WithDescription("Duration of a single batch flush"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating %s: %w", MetricFlushDuration, err)
	}
	if m.itemsDispatched, err = meter.Int64Counter(MetricItemsDispatched,
		metric.WithDescription("Items pushed onto the input queue"),
	); err != nil {
		return nil, fmt.Errorf("creating %s: %w", MetricItemsDispatched, err)
	}
	if m.errors, err = meter.Int64Counter(MetricErrors,
		metric.WithDescription("Run failures by error code"),
	); err != nil {
		return nil, fmt.Errorf("creating %s: %w", MetricErrors, err)
	}
	return m, nil
}

// RecordDispatched adds n dispatched items for the run labelled desc.
func (m *PipelineMetrics) RecordDispatched(ctx context.Context, desc string, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.itemsDispatched.Add(ctx, n, metric.WithAttributes(attribute.String("desc", desc)))
}

// RecordFlush records one flushed batch of size records.
func (m *PipelineMetrics) RecordFlush(ctx context.Context, backend string, size int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("backend", backend))
	m.batchesFlushed.Add(ctx, 1, attrs)
	m.recordsWritten.Add(ctx, int64(size), attrs)
	m.flushDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordError counts a failure with its error code and the component that saw it.
func (m *PipelineMetrics) RecordError(ctx context.Context, code, component string) {
	if m == nil {
		return
	}
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("component", component),
	))
}
