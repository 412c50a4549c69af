package dataset

import "context"

// Take yields at most n values.
func Take[T any](it Iterator[T], n int) Iterator[T] {
	taken := 0
	return FromFunc(func(ctx context.Context) (T, bool, error) {
		if taken >= n {
			var zero T
			return zero, false, nil
		}
		taken++
		return it.Next(ctx)
	}, it.Close)
}

// Collect drains it into a slice and closes it.
func Collect[T any](ctx context.Context, it Iterator[T]) ([]T, error) {
	defer it.Close()
	var out []T
	for {
		v, ok, err := it.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

// ForEach calls fn for every value and closes it.
func ForEach[T any](ctx context.Context, it Iterator[T], fn func(context.Context, T) error) error {
	defer it.Close()
	for {
		v, ok, err := it.Next(ctx)
		if err != nil || !ok {
			return err
		}
		if err := fn(ctx, v); err != nil {
			return err
		}
	}
}
