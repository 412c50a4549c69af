package parallel

import (
	"context"

	"github.com/kbukum/parallelio/logger"
	"github.com/kbukum/parallelio/observability"
)

type dispatcher[I any] struct {
	cfg     Config
	log     *logger.Logger
	metrics *observability.PipelineMetrics
}

// run pushes every item of src onto in, followed by one sentinel per worker.
func (d *dispatcher[I]) run(ctx context.Context, src Source[I], in queue[Indexed[I]]) (int64, error) {
	n, err := d.each(ctx, src, func(item Indexed[I]) error {
		return in.put(ctx, item)
	})
	if err != nil {
		return n, err
	}
	for i := 0; i < d.cfg.Workers; i++ {
		if err := in.put(ctx, Sentinel[I]()); err != nil {
			return n, err
		}
	}
	return n, nil
}

// each walks src in dispatch order, logging progress and counting items.
func (d *dispatcher[I]) each(ctx context.Context, src Source[I], fn func(Indexed[I]) error) (int64, error) {
	total := src.Len()
	every := int64(d.cfg.progressEvery(total))
	shuffle := d.cfg.Shuffle
	if shuffle && !src.Finite() {
		d.log.Debug("shuffle ignored for iterator source")
		shuffle = false
	}

	var n, reported int64
	err := src.walk(ctx, shuffle, d.cfg.Seed, func(item Indexed[I]) error {
		if err := fn(item); err != nil {
			return err
		}
		n++
		if n%every == 0 {
			d.metrics.RecordDispatched(ctx, d.cfg.Desc, n-reported)
			reported = n
			d.log.Info(d.cfg.Desc, logger.Fields(logger.FieldCount, n, "total", total))
		}
		return nil
	})
	d.metrics.RecordDispatched(ctx, d.cfg.Desc, n-reported)
	return n, err
}
