package dataset

import "context"

// Iterator provides pull-based sequential access to a stream of values.
type Iterator[T any] interface {
	// Next returns the next value. Returns (zero, false, nil) when exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the iterator.
	Close() error
}

// Sequence is a finite collection with random access by position.
type Sequence[T any] interface {
	Len() int
	At(ctx context.Context, i int) (T, error)
}

// Dataset is a readable collection of records.
type Dataset interface {
	// Iter returns a fresh iterator over every record. The caller must Close it.
	Iter(ctx context.Context) Iterator[any]
	// Close releases the handle on the underlying storage.
	Close() error
}

// RandomAccess is a Dataset that can also be read by position.
type RandomAccess interface {
	Dataset
	Sequence[any]
}

// Streamed builds a Dataset from an iterator factory.
func Streamed(open func(ctx context.Context) Iterator[any], closer func() error) Dataset {
	return &streamed{open: open, closer: closer}
}

type streamed struct {
	open   func(ctx context.Context) Iterator[any]
	closer func() error
}

func (d *streamed) Iter(ctx context.Context) Iterator[any] { return d.open(ctx) }

func (d *streamed) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer()
}

// Indexed builds a RandomAccess dataset over seq.
func Indexed(seq Sequence[any], closer func() error) RandomAccess {
	return &indexed{Sequence: seq, closer: closer}
}

type indexed struct {
	Sequence[any]
	closer func() error
}

func (d *indexed) Iter(_ context.Context) Iterator[any] {
	return SequenceIter[any](d.Sequence)
}

func (d *indexed) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer()
}
