package parallel

import (
	"context"
	"math/rand/v2"

	"github.com/kbukum/parallelio/dataset"
)

// Source supplies the items of a run: either a finite sequence read by
// position, or an iterator of unknown length.
type Source[T any] struct {
	seq  dataset.Sequence[T]
	iter dataset.Iterator[T]
}

// FromSlice returns a finite source over items.
func FromSlice[T any](items []T) Source[T] {
	return Source[T]{seq: dataset.Slice[T](items)}
}

// FromSequence returns a finite source over seq.
func FromSequence[T any](seq dataset.Sequence[T]) Source[T] {
	return Source[T]{seq: seq}
}

// FromIterator returns an unbounded source. The run closes it once dispatch
// ends.
func FromIterator[T any](it dataset.Iterator[T]) Source[T] {
	return Source[T]{iter: it}
}

// Len returns the number of items, or -1 for an iterator source.
func (s Source[T]) Len() int {
	if s.seq != nil {
		return s.seq.Len()
	}
	return -1
}

// Finite reports whether the source has a known length.
func (s Source[T]) Finite() bool { return s.seq != nil }

// walk calls emit for every item in dispatch order. Finite sources are
// visited in a uniformly random order when shuffle is set; each item keeps
// its original position as its index.
func (s Source[T]) walk(ctx context.Context, shuffle bool, seed uint64, emit func(Indexed[T]) error) error {
	if s.seq == nil {
		return s.walkIterator(ctx, emit)
	}

	n := s.seq.Len()
	order := identity(n)
	if shuffle {
		permute(order, seed)
	}
	for _, i := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		item, err := s.seq.At(ctx, i)
		if err != nil {
			return err
		}
		if err := emit(Indexed[T]{Index: int64(i), Payload: item}); err != nil {
			return err
		}
	}
	return nil
}

func (s Source[T]) walkIterator(ctx context.Context, emit func(Indexed[T]) error) error {
	defer s.iter.Close()
	for i := int64(0); ; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		item, ok, err := s.iter.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := emit(Indexed[T]{Index: i, Payload: item}); err != nil {
			return err
		}
	}
}

func identity(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

func permute(order []int, seed uint64) {
	var r *rand.Rand
	if seed == 0 {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	} else {
		r = rand.New(rand.NewPCG(seed, seed))
	}
	r.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
}
