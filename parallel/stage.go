package parallel

import (
	"context"
	"fmt"

	"github.com/kbukum/parallelio/errors"
)

// Stage is the user side of a run: the transform applied by workers and the
// collectors that consume its results.
type Stage[I, O any] interface {
	// Transform runs on a worker goroutine for every dispatched item.
	Transform(ctx context.Context, item I) (O, error)
	// NewCollector is called once per aggregator, on that aggregator's
	// goroutine, before it reads any result.
	NewCollector(ctx context.Context, id int) (Collector[O], error)
}

// Collector consumes results on one aggregator goroutine.
type Collector[O any] interface {
	Collect(ctx context.Context, index int64, result O) error
	// Close finalizes the collector after the last sentinel. It is not
	// called when the run fails.
	Close(ctx context.Context) error
}

// WorkerHooks is optionally implemented by a Stage to set up and tear down
// per-worker state. OnWorkerStop runs after the worker sees its sentinel and
// before it forwards one.
type WorkerHooks interface {
	OnWorkerStart(ctx context.Context, worker int) error
	OnWorkerStop(ctx context.Context, worker int) error
}

// Initializer is optionally implemented by a Stage to run once on the
// calling goroutine before anything is dispatched.
type Initializer interface {
	OnInitialize(ctx context.Context) error
}

// Finalizer is optionally implemented by a Stage to run once on the calling
// goroutine after every worker and aggregator has returned. err is the
// outcome of the run.
type Finalizer interface {
	OnFinalize(ctx context.Context, err error) error
}

// transform calls s.Transform and turns a panic into an INTERNAL_ERROR.
func transform[I, O any](ctx context.Context, s Stage[I, O], item I) (out O, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Internal(fmt.Errorf("transform panicked: %v", r))
		}
	}()
	return s.Transform(ctx, item)
}

// StageFunc builds a Stage from a transform and a collector factory.
func StageFunc[I, O any](
	transform func(ctx context.Context, item I) (O, error),
	newCollector func(ctx context.Context, id int) (Collector[O], error),
) Stage[I, O] {
	return &funcStage[I, O]{transform: transform, newCollector: newCollector}
}

type funcStage[I, O any] struct {
	transform    func(ctx context.Context, item I) (O, error)
	newCollector func(ctx context.Context, id int) (Collector[O], error)
}

func (s *funcStage[I, O]) Transform(ctx context.Context, item I) (O, error) {
	return s.transform(ctx, item)
}

func (s *funcStage[I, O]) NewCollector(ctx context.Context, id int) (Collector[O], error) {
	return s.newCollector(ctx, id)
}
