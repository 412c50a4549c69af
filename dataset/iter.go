package dataset

import "context"

// Slice is an in-memory Sequence.
type Slice[T any] []T

func (s Slice[T]) Len() int { return len(s) }

func (s Slice[T]) At(_ context.Context, i int) (T, error) { return s[i], nil }

// FromSlice returns an iterator over items.
func FromSlice[T any](items []T) Iterator[T] {
	return SequenceIter[T](Slice[T](items))
}

// SequenceIter walks seq from position 0 to Len()-1.
func SequenceIter[T any](seq Sequence[T]) Iterator[T] {
	return &seqIter[T]{seq: seq}
}

type seqIter[T any] struct {
	seq Sequence[T]
	pos int
}

func (it *seqIter[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if it.pos >= it.seq.Len() {
		return zero, false, nil
	}
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	v, err := it.seq.At(ctx, it.pos)
	if err != nil {
		return zero, false, err
	}
	it.pos++
	return v, true, nil
}

func (it *seqIter[T]) Close() error { return nil }

// FromFunc adapts a next function into an Iterator. closer may be nil.
func FromFunc[T any](next func(ctx context.Context) (T, bool, error), closer func() error) Iterator[T] {
	return &funcIter[T]{next: next, closer: closer}
}

type funcIter[T any] struct {
	next   func(ctx context.Context) (T, bool, error)
	closer func() error
	done   bool
}

func (it *funcIter[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if it.done {
		return zero, false, nil
	}
	v, ok, err := it.next(ctx)
	if err != nil || !ok {
		it.done = true
		return zero, false, err
	}
	return v, true, nil
}

func (it *funcIter[T]) Close() error {
	if it.closer == nil {
		return nil
	}
	c := it.closer
	it.closer = nil
	return c()
}

// Chain yields every value of each iterator in turn and closes them all.
func Chain[T any](iters ...Iterator[T]) Iterator[T] {
	return &chainIter[T]{iters: iters}
}

type chainIter[T any] struct {
	iters []Iterator[T]
	pos   int
}

func (it *chainIter[T]) Next(ctx context.Context) (T, bool, error) {
	for it.pos < len(it.iters) {
		v, ok, err := it.iters[it.pos].Next(ctx)
		if err != nil {
			var zero T
			return zero, false, err
		}
		if ok {
			return v, true, nil
		}
		it.pos++
	}
	var zero T
	return zero, false, nil
}

func (it *chainIter[T]) Close() error {
	var first error
	for _, sub := range it.iters {
		if err := sub.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
