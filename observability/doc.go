// Package observability wires OpenTelemetry tracing and metrics for
// parallelio runs.
//
// InitTracer and InitMeter install global OTLP/HTTP providers; until they are
// called every span and instrument is a no-op, so library users pay nothing
// unless they opt in. PipelineMetrics holds the instruments the pipeline
// records: records written, batches flushed, flush latency, items dispatched
// and errors by code.
package observability
