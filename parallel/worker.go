package parallel

import (
	"context"

	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/logger"
)

type worker[I, O any] struct {
	id    int
	stage Stage[I, O]
	in    queue[Indexed[I]]
	out   queue[Indexed[O]]
	log   *logger.Logger
}

// run transforms items until it sees a sentinel, then forwards exactly one
// sentinel. On a transform error it returns without forwarding.
func (w *worker[I, O]) run(ctx context.Context) error {
	hooks, _ := w.stage.(WorkerHooks)
	if hooks != nil {
		if err := hooks.OnWorkerStart(ctx, w.id); err != nil {
			return err
		}
	}

	for {
		item, err := w.in.get(ctx, nil)
		if err != nil {
			return err
		}

		if item.IsSentinel() {
			if hooks != nil {
				if err := hooks.OnWorkerStop(ctx, w.id); err != nil {
					return err
				}
			}
			w.log.Debug("worker done")
			return w.out.put(ctx, Sentinel[O]())
		}

		result, err := transform(ctx, w.stage, item.Payload)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Error("transform failed", logger.Fields(logger.FieldIndex, item.Index, logger.FieldError, err.Error()))
			return errors.Transform(w.id, item.Index, err)
		}
		if err := w.out.put(ctx, Indexed[O]{Index: item.Index, Payload: result}); err != nil {
			return err
		}
	}
}
