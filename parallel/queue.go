package parallel

import (
	"context"
	"errors"
	"sync"
)

// errStopped is returned by get when the stop channel closes first.
var errStopped = errors.New("queue: consumer stopped")

// queue is a FIFO shared by goroutines. A positive capacity gives a
// buffered channel with blocking put; otherwise put never blocks.
type queue[T any] interface {
	put(ctx context.Context, v T) error
	// get blocks until a value is available, ctx is done, or stop closes.
	get(ctx context.Context, stop <-chan struct{}) (T, error)
}

func newQueue[T any](capacity int) queue[T] {
	if capacity > 0 {
		return &boundedQueue[T]{ch: make(chan T, capacity)}
	}
	return &unboundedQueue[T]{signal: make(chan struct{}, 1)}
}

type boundedQueue[T any] struct {
	ch chan T
}

func (q *boundedQueue[T]) put(ctx context.Context, v T) error {
	select {
	case q.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *boundedQueue[T]) get(ctx context.Context, stop <-chan struct{}) (T, error) {
	var zero T
	select {
	case v := <-q.ch:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-stop:
		return zero, errStopped
	}
}

type unboundedQueue[T any] struct {
	mu     sync.Mutex
	items  []T
	signal chan struct{}
}

func (q *unboundedQueue[T]) put(ctx context.Context, v T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
	q.notify()
	return nil
}

func (q *unboundedQueue[T]) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *unboundedQueue[T]) tryGet() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) > 0 {
		q.notify()
	}
	return v, true
}

func (q *unboundedQueue[T]) get(ctx context.Context, stop <-chan struct{}) (T, error) {
	var zero T
	for {
		if v, ok := q.tryGet(); ok {
			return v, nil
		}
		select {
		case <-q.signal:
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-stop:
			return zero, errStopped
		}
	}
}
