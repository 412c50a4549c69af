package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/kbukum/parallelio/component"
	"github.com/kbukum/parallelio/logger"
)

func newTestMetrics(t *testing.T) (*PipelineMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := NewPipelineMetrics(mp.Meter(InstrumentationName))
	if err != nil {
		t.Fatalf("NewPipelineMetrics: %v", err)
	}
	return m, reader
}

func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestPipelineMetrics(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordDispatched(ctx, "test", 5)
	m.RecordFlush(ctx, "memory", 2, time.Millisecond)
	m.RecordFlush(ctx, "memory", 3, time.Millisecond)
	m.RecordError(ctx, "SINK_ERROR", "writer")

	tests := []struct {
		name string
		want int64
	}{
		{MetricItemsDispatched, 5},
		{MetricBatchesFlushed, 2},
		{MetricRecordsWritten, 5},
		{MetricErrors, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sumOf(t, reader, tt.name); got != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}

func TestNilPipelineMetrics(t *testing.T) {
	var m *PipelineMetrics
	ctx := context.Background()
	m.RecordDispatched(ctx, "x", 1)
	m.RecordFlush(ctx, "memory", 1, time.Second)
	m.RecordError(ctx, "x", "y")
}

func TestStartSpanNoProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), SpanApply)
	if ctx == nil || span == nil {
		t.Fatal("expected no-op span")
	}
	EndSpan(span, errors.New("boom"))
}

func TestConfig(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" || cfg.SampleRate != 1.0 || cfg.Interval != 15*time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	cfg.SampleRate = 2
	if err := cfg.Validate(); err == nil {
		t.Error("expected sample rate error")
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		if got := sampler(tt.rate).Description(); got != tt.want {
			t.Errorf("sampler(%v) = %q, want %q", tt.rate, got, tt.want)
		}
	}
}

func TestComponentDisabled(t *testing.T) {
	c := NewComponent("parallelio", Config{}, logger.Nop())
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.tp != nil || c.mp != nil {
		t.Error("disabled component must not install providers")
	}
	if err := c.Stop(ctx); err != nil {
		t.Errorf("Stop: %v", err)
	}
	if c.Health(ctx).Status != component.StatusHealthy {
		t.Error("expected healthy")
	}
	if c.Describe().Details != "disabled" {
		t.Errorf("unexpected description %+v", c.Describe())
	}
}

func TestComponentEnabled(t *testing.T) {
	cfg := Config{Enabled: true, Insecure: true}
	cfg.ApplyDefaults()
	c := NewComponent("parallelio", cfg, logger.Nop())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.tp == nil || c.mp == nil {
		t.Fatal("expected providers to be installed")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = c.Stop(ctx)
	if c.tp != nil || c.mp != nil {
		t.Error("Stop must release providers")
	}
}
