package writer

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/logger"
	"github.com/kbukum/parallelio/observability"
	"github.com/kbukum/parallelio/parallel"
	"github.com/kbukum/parallelio/sink"
)

// Records is a hook result that fans out into one record per element.
type Records []any

// Hook transforms one input item. It runs on worker goroutines.
type Hook[I, A any] func(ctx context.Context, item I, args A) (any, error)

// Result summarizes a finished Write.
type Result struct {
	parallel.Stats
	// Records is the number of records handed to the sink.
	Records int64
	// Batches is the number of flushes.
	Batches   int64
	BatchSize int
}

// Option customizes a Writer.
type Option func(*Writer)

// WithMetrics records flush metrics on m and passes it to the run.
func WithMetrics(m *observability.PipelineMetrics) Option {
	return func(w *Writer) { w.metrics = m }
}

// Writer batches transform results into one sink. It is good for a single
// Write.
type Writer struct {
	sink    sink.Sink
	closer  *sink.Closer
	backend sink.Backend
	capb    sink.Capability
	schema  sink.Schema
	cfg     Config
	log     *logger.Logger
	metrics *observability.PipelineMetrics

	kv   sink.KVWriter
	list sink.ListWriter
	cols sink.ColumnWriter

	batchSize int
	total     atomic.Int64
	batches   atomic.Int64
	pending   atomic.Int64

	mu   sync.Mutex
	used bool
}

// Open opens the sink selected by sinkCfg and wraps it in a Writer.
func Open(ctx context.Context, sinkCfg sink.Config, backendCfg any, cfg Config, log *logger.Logger, opts ...Option) (*Writer, error) {
	s, err := sink.Open(ctx, sinkCfg, backendCfg, log)
	if err != nil {
		return nil, err
	}
	w, err := New(s, cfg, log, opts...)
	if err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	return w, nil
}

// New wraps an already opened sink. The Writer takes ownership of s.
func New(s sink.Sink, cfg Config, log *logger.Logger, opts ...Option) (*Writer, error) {
	return newWriter(s, sink.Once(s), cfg, log, opts...)
}

// FromComponent wraps the sink of a started component. The writer and the
// component share one closer, so the sink is closed once whichever of
// Write or Stop gets there first.
func FromComponent(c *sink.Component, cfg Config, log *logger.Logger, opts ...Option) (*Writer, error) {
	closer := c.Closer()
	if closer == nil {
		return nil, errors.Configuration("writer: component %s is not started", c.Name())
	}
	return newWriter(closer.Sink(), closer, cfg, log, opts...)
}

func newWriter(s sink.Sink, closer *sink.Closer, cfg Config, log *logger.Logger, opts ...Option) (*Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := sink.CheckShape(s); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	b := s.Backend()
	w := &Writer{
		sink:    s,
		closer:  closer,
		backend: b,
		capb:    b.Capability(),
		cfg:     cfg,
		log:     log.WithComponent("writer").WithFields(logger.Fields(logger.FieldBackend, b.String())),
	}
	switch w.capb.Shape {
	case sink.ShapeKV:
		w.kv = s.(sink.KVWriter)
	case sink.ShapeList:
		w.list = s.(sink.ListWriter)
	case sink.ShapeColumnar:
		w.cols = s.(sink.ColumnWriter)
		w.schema = w.cols.Schema()
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Backend returns the backend of the wrapped sink.
func (w *Writer) Backend() sink.Backend { return w.backend }

// Close closes the sink if Write has not already done so.
func (w *Writer) Close(ctx context.Context) error {
	return w.closer.Close(ctx)
}

// Write applies hook to every item of src across run.Workers goroutines
// and batches the results into the sink. The sink is closed when Write
// returns, whether or not the run succeeded.
func Write[I, A any](ctx context.Context, w *Writer, src parallel.Source[I], hook Hook[I, A], args A, run parallel.Config, opts ...parallel.Option) (Result, error) {
	w.mu.Lock()
	if w.used {
		w.mu.Unlock()
		return Result{}, errors.Configuration("writer: Write called twice on the same writer")
	}
	w.used = true
	w.mu.Unlock()

	run.ApplyDefaults()
	if err := run.Validate(); err != nil {
		_ = w.closer.Close(ctx)
		return Result{}, err
	}
	w.batchSize = ResolveBatchSize(w.cfg.BatchSize, w.capb.DefaultBatchSize, src.Len())
	collectors := run.PostWorkers
	if run.Workers == 0 {
		collectors = 1
	}
	w.pending.Store(int64(collectors))

	w.log.Debug("writing", logger.Fields(
		logger.FieldBatchSize, w.batchSize,
		"workers", run.Workers,
		"collectors", collectors,
	))

	if w.metrics != nil {
		opts = append([]parallel.Option{parallel.WithMetrics(w.metrics)}, opts...)
	}
	st := &stage[I, A]{w: w, hook: hook, args: args}
	stats, err := parallel.Apply[I, any](ctx, src, run, st, w.log, opts...)

	return Result{Stats: stats, Records: w.total.Load(), Batches: w.batches.Load(), BatchSize: w.batchSize}, err
}

// finish runs when a collector closes. The last one stores the summary and
// closes the sink.
func (w *Writer) finish(ctx context.Context) error {
	if w.pending.Add(-1) != 0 {
		return nil
	}
	if w.capb.Summary {
		total := w.total.Load()
		if err := w.sink.(sink.SummaryWriter).PutSummary(ctx, total); err != nil {
			return w.sinkError("summary", err)
		}
		w.log.Debug("summary written", logger.Fields(logger.FieldCount, total))
	}
	if err := w.closer.Close(ctx); err != nil {
		return w.sinkError("close", err)
	}
	w.log.Info("sink closed", logger.Fields(logger.FieldCount, w.total.Load(), "batches", w.batches.Load()))
	return nil
}

func (w *Writer) sinkError(op string, err error) error {
	if errors.IsSink(err) {
		return err
	}
	return errors.Sink(w.backend.String(), op, err)
}

// stage adapts a hook to parallel.Stage.
type stage[I, A any] struct {
	w    *Writer
	hook Hook[I, A]
	args A
}

func (s *stage[I, A]) Transform(ctx context.Context, item I) (any, error) {
	return s.hook(ctx, item, s.args)
}

// OnFinalize releases the sink of a failed run. Buffered records are
// discarded and no summary is written.
func (s *stage[I, A]) OnFinalize(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if cerr := s.w.closer.Close(context.WithoutCancel(ctx)); cerr != nil {
		s.w.log.Warn("closing sink after failed run", logger.ErrorFields("close", cerr))
	}
	return nil
}

func (s *stage[I, A]) NewCollector(_ context.Context, id int) (parallel.Collector[any], error) {
	return &collector{
		w:     s.w,
		batch: s.w.batchSize,
		log:   s.w.log.WithFields(logger.Fields(logger.FieldCollector, id)),
	}, nil
}
