package main

import (
	"context"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/kbukum/parallelio/dataset"
	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/parallel"
)

// openInput builds the run source. Paths yield one item per JSON value,
// file after file; otherwise the source is the integers 0..Range-1. A
// positive Limit caps the number of items.
func openInput(cfg InputConfig) (parallel.Source[any], error) {
	if len(cfg.Paths) == 0 {
		n := cfg.Range
		if cfg.Limit > 0 {
			n = min(n, cfg.Limit)
		}
		items := make([]any, n)
		for i := range items {
			items[i] = int64(i)
		}
		return parallel.FromSlice(items), nil
	}

	files := make([]dataset.Iterator[any], 0, len(cfg.Paths))
	for _, path := range cfg.Paths {
		f, err := os.Open(path)
		if err != nil {
			for _, it := range files {
				_ = it.Close()
			}
			if os.IsNotExist(err) {
				return parallel.Source[any]{}, errors.NotFound("input", path)
			}
			return parallel.Source[any]{}, errors.InvalidInput("input.paths", err.Error())
		}
		files = append(files, jsonLines(f))
	}
	it := dataset.Chain(files...)
	if cfg.Limit > 0 {
		it = dataset.Take(it, cfg.Limit)
	}
	return parallel.FromIterator(it), nil
}

// jsonLines decodes consecutive JSON values from r and closes it when
// iteration ends.
func jsonLines(r io.ReadCloser) dataset.Iterator[any] {
	dec := json.NewDecoder(r)
	var line int64
	return dataset.FromFunc(func(context.Context) (any, bool, error) {
		var v any
		if err := dec.Decode(&v); err != nil {
			if err == io.EOF {
				return nil, false, nil
			}
			return nil, false, errors.InvalidInput("input", err.Error()).WithDetail("item", line)
		}
		line++
		return v, true, nil
	}, r.Close)
}
