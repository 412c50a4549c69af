package parallel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/kbukum/parallelio/logger"
)

// ledger counts the sentinels still expected by all aggregators of a run.
// Whichever aggregator takes the last one closes done so the others stop
// waiting on an empty queue.
type ledger struct {
	remaining atomic.Int64
	consumed  atomic.Int64
	done      chan struct{}
	once      sync.Once
}

func newLedger(workers int) *ledger {
	l := &ledger{done: make(chan struct{})}
	l.remaining.Store(int64(workers))
	if workers == 0 {
		l.finish()
	}
	return l
}

// take records one sentinel and reports whether it was the last.
func (l *ledger) take() bool {
	l.consumed.Add(1)
	if l.remaining.Add(-1) == 0 {
		l.finish()
		return true
	}
	return false
}

func (l *ledger) finish() { l.once.Do(func() { close(l.done) }) }

func (l *ledger) finished() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

type aggregator[I, O any] struct {
	id        int
	stage     Stage[I, O]
	out       queue[Indexed[O]]
	ledger    *ledger
	collected *atomic.Int64
	log       *logger.Logger
}

func (a *aggregator[I, O]) run(ctx context.Context) error {
	col, err := a.stage.NewCollector(ctx, a.id)
	if err != nil {
		return err
	}

	for {
		item, err := a.out.get(ctx, a.ledger.done)
		if errors.Is(err, errStopped) {
			// Another aggregator took the last sentinel. Results always
			// precede their worker's sentinel in the queue, so none remain.
			break
		}
		if err != nil {
			return err
		}

		if item.IsSentinel() {
			if a.ledger.take() {
				a.log.Debug("last sentinel received")
				break
			}
			continue
		}
		a.collected.Add(1)
		if err := col.Collect(ctx, item.Index, item.Payload); err != nil {
			return err
		}
	}

	return col.Close(ctx)
}
