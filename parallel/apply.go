package parallel

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/logger"
	"github.com/kbukum/parallelio/observability"
)

// Stats summarizes a finished run.
type Stats struct {
	RunID       string
	Workers     int
	Aggregators int
	// Dispatched counts items pushed to workers, sentinels excluded.
	Dispatched int64
	// Collected counts results handed to collectors.
	Collected int64
	// Sentinels counts end-of-stream markers taken by aggregators.
	Sentinels int64
	Duration  time.Duration
}

type options struct {
	metrics *observability.PipelineMetrics
	runID   string
}

// Option customizes a run.
type Option func(*options)

// WithMetrics records dispatch and error metrics on m.
func WithMetrics(m *observability.PipelineMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(o *options) { o.runID = id }
}

// Apply runs stage over every item of src. It returns the first error raised
// by a worker, an aggregator or the source; collectors are finalized only
// when the run succeeds.
func Apply[I, O any](ctx context.Context, src Source[I], cfg Config, stage Stage[I, O], log *logger.Logger, opts ...Option) (stats Stats, err error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Stats{}, err
	}

	o := options{runID: uuid.NewString()}
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = logger.Nop()
	}
	ctx = logger.ContextWithRunID(ctx, o.runID)
	log = log.WithComponent("parallel").WithContext(ctx)

	ctx, span := observability.StartSpan(ctx, observability.SpanApply,
		attribute.String("desc", cfg.Desc),
		attribute.Int("workers", cfg.Workers),
		attribute.Int("post_workers", cfg.PostWorkers),
	)
	start := time.Now()
	defer func() {
		stats.Duration = time.Since(start)
		if err != nil {
			if appErr, ok := errors.AsAppError(err); ok {
				o.metrics.RecordError(ctx, string(appErr.Code), "parallel")
			} else {
				o.metrics.RecordError(ctx, string(errors.ErrCodeInternal), "parallel")
			}
		}
		observability.EndSpan(span, err)
	}()

	if init, ok := stage.(Initializer); ok {
		if err := init.OnInitialize(ctx); err != nil {
			return Stats{RunID: o.runID}, err
		}
	}

	if cfg.Workers == 0 {
		stats, err = applySync(ctx, src, cfg, stage, log, &o)
	} else {
		stats, err = applyParallel(ctx, src, cfg, stage, log, &o)
	}
	stats.RunID = o.runID

	if fin, ok := stage.(Finalizer); ok {
		if ferr := fin.OnFinalize(ctx, err); ferr != nil && err == nil {
			err = ferr
		}
	}

	fields := logger.Fields(
		"desc", cfg.Desc,
		"dispatched", stats.Dispatched,
		"collected", stats.Collected,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	)
	if err != nil {
		log.WithError(err).Error("run failed", fields)
	} else {
		log.Info("run complete", fields)
	}
	return stats, err
}

func applyParallel[I, O any](parent context.Context, src Source[I], cfg Config, stage Stage[I, O], log *logger.Logger, o *options) (Stats, error) {
	stats := Stats{Workers: cfg.Workers, Aggregators: cfg.PostWorkers}
	in := newQueue[Indexed[I]](cfg.InputQueueSize)
	out := newQueue[Indexed[O]](cfg.OutputQueueSize)
	led := newLedger(cfg.Workers)
	var collected atomic.Int64

	g, ctx := errgroup.WithContext(parent)

	for id := 0; id < cfg.PostWorkers; id++ {
		a := &aggregator[I, O]{
			id: id, stage: stage, out: out, ledger: led, collected: &collected,
			log: log.WithFields(logger.Fields(logger.FieldCollector, id)),
		}
		g.Go(func() error { return a.run(ctx) })
	}
	for id := 0; id < cfg.Workers; id++ {
		w := &worker[I, O]{
			id: id, stage: stage, in: in, out: out,
			log: log.WithFields(logger.Fields(logger.FieldWorker, id)),
		}
		g.Go(func() error { return w.run(ctx) })
	}

	var dispatched int64
	g.Go(func() error {
		d := &dispatcher[I]{cfg: cfg, log: log, metrics: o.metrics}
		n, err := d.run(ctx, src, in)
		dispatched = n
		return err
	})

	err := g.Wait()
	stats.Dispatched = dispatched
	stats.Collected = collected.Load()
	stats.Sentinels = led.consumed.Load()
	return stats, wrapCanceled(parent, err)
}

// applySync runs the stage inline: one worker and one collector, no queues.
func applySync[I, O any](ctx context.Context, src Source[I], cfg Config, stage Stage[I, O], log *logger.Logger, o *options) (Stats, error) {
	stats := Stats{Aggregators: 1}
	hooks, _ := stage.(WorkerHooks)
	if hooks != nil {
		if err := hooks.OnWorkerStart(ctx, 0); err != nil {
			return stats, err
		}
	}
	col, err := stage.NewCollector(ctx, 0)
	if err != nil {
		return stats, err
	}

	d := &dispatcher[I]{cfg: cfg, log: log, metrics: o.metrics}
	n, err := d.each(ctx, src, func(item Indexed[I]) error {
		result, err := transform(ctx, stage, item.Payload)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Transform(0, item.Index, err)
		}
		stats.Collected++
		return col.Collect(ctx, item.Index, result)
	})
	stats.Dispatched = n
	if err != nil {
		return stats, wrapCanceled(ctx, err)
	}

	if hooks != nil {
		if err := hooks.OnWorkerStop(ctx, 0); err != nil {
			return stats, err
		}
	}
	return stats, col.Close(ctx)
}

// wrapCanceled turns a bare context error caused by the caller into a
// CANCELED app error.
func wrapCanceled(parent context.Context, err error) error {
	if err == nil || errors.IsAppError(err) {
		return err
	}
	if parent.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return errors.Canceled(err)
	}
	return err
}
