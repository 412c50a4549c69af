package main

import (
	"context"
	"math"

	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/writer"
)

// transforms are the hooks selectable by name.
var transforms = map[string]writer.Hook[any, TransformConfig]{
	"identity":  identity,
	"drop_even": dropEven,
	"explode":   explode,
	"columns":   columns,
}

func identity(_ context.Context, item any, _ TransformConfig) (any, error) {
	return item, nil
}

// dropEven drops items whose number is even. Maps are judged by args.Field.
func dropEven(_ context.Context, item any, args TransformConfig) (any, error) {
	v := item
	if m, ok := item.(map[string]any); ok {
		v = m[args.Field]
	}
	n, ok := number(v)
	if !ok {
		return nil, errors.InvalidInput(args.Field, "not a number")
	}
	if math.Mod(n, 2) == 0 {
		return nil, nil
	}
	return item, nil
}

// explode emits the elements of a list, or args.Repeat copies of anything
// else.
func explode(_ context.Context, item any, args TransformConfig) (any, error) {
	if list, ok := item.([]any); ok {
		return writer.Records(list), nil
	}
	out := make(writer.Records, args.Repeat)
	for i := range out {
		out[i] = item
	}
	return out, nil
}

// columns turns scalars into a single-field record keyed by args.Field.
func columns(_ context.Context, item any, args TransformConfig) (any, error) {
	if m, ok := item.(map[string]any); ok {
		return m, nil
	}
	return map[string]any{args.Field: item}, nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
