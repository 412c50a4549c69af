package columnar

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/sink"
)

func arrowType(t sink.FieldType) (arrow.DataType, error) {
	switch t {
	case sink.TypeInt64:
		return arrow.PrimitiveTypes.Int64, nil
	case sink.TypeFloat64:
		return arrow.PrimitiveTypes.Float64, nil
	case sink.TypeString:
		return arrow.BinaryTypes.String, nil
	case sink.TypeBool:
		return arrow.FixedWidthTypes.Boolean, nil
	case sink.TypeBinary:
		return arrow.BinaryTypes.Binary, nil
	case sink.TypeInt64List:
		return arrow.ListOf(arrow.PrimitiveTypes.Int64), nil
	case sink.TypeFloat64List:
		return arrow.ListOf(arrow.PrimitiveTypes.Float64), nil
	case sink.TypeStringList:
		return arrow.ListOf(arrow.BinaryTypes.String), nil
	}
	return nil, errors.Configuration("columnar: unsupported field type %q", t)
}

// ArrowSchema converts a sink schema to an Arrow schema.
func ArrowSchema(s sink.Schema) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(s.Fields))
	for i, f := range s.Fields {
		dt, err := arrowType(f.Type)
		if err != nil {
			return nil, err
		}
		fields[i] = arrow.Field{Name: f.Name, Type: dt, Nullable: f.Nullable}
	}
	return arrow.NewSchema(fields, nil), nil
}

// buildRecord assembles equally long columns into one record. The caller
// releases it.
func buildRecord(mem memory.Allocator, schema *arrow.Schema, columns [][]any) (arrow.Record, error) {
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i, col := range columns {
		field := schema.Field(i)
		for r, v := range col {
			if v == nil {
				b.Field(i).AppendNull()
				continue
			}
			if err := appendValue(b.Field(i), v); err != nil {
				return nil, errors.InvalidInput(field.Name, fmt.Sprintf("row %d: %v", r, err))
			}
		}
	}
	return b.NewRecord(), nil
}

func appendValue(b array.Builder, v any) error {
	switch fb := b.(type) {
	case *array.Int64Builder:
		n, err := toInt64(v)
		if err != nil {
			return err
		}
		fb.Append(n)
	case *array.Float64Builder:
		f, err := toFloat64(v)
		if err != nil {
			return err
		}
		fb.Append(f)
	case *array.StringBuilder:
		switch s := v.(type) {
		case string:
			fb.Append(s)
		case []byte:
			fb.Append(string(s))
		default:
			return fmt.Errorf("cannot store %T as string", v)
		}
	case *array.BooleanBuilder:
		t, ok := v.(bool)
		if !ok {
			return fmt.Errorf("cannot store %T as bool", v)
		}
		fb.Append(t)
	case *array.BinaryBuilder:
		switch p := v.(type) {
		case []byte:
			fb.Append(p)
		case string:
			fb.Append([]byte(p))
		default:
			return fmt.Errorf("cannot store %T as binary", v)
		}
	case *array.ListBuilder:
		items, err := toList(v)
		if err != nil {
			return err
		}
		fb.Append(true)
		for _, item := range items {
			if item == nil {
				fb.ValueBuilder().AppendNull()
				continue
			}
			if err := appendValue(fb.ValueBuilder(), item); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unsupported builder %T", b)
	}
	return nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", n)
		}
		return int64(n), nil
	case float32:
		return toInt64(float64(n))
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt64 || n < math.MinInt64 {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int64(n), nil
	}
	return 0, fmt.Errorf("cannot store %T as int64", v)
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	}
	i, err := toInt64(v)
	if err != nil {
		return 0, fmt.Errorf("cannot store %T as float64", v)
	}
	return float64(i), nil
}

func toList(v any) ([]any, error) {
	switch l := v.(type) {
	case []any:
		return l, nil
	case []int64:
		return anySlice(l), nil
	case []int:
		return anySlice(l), nil
	case []float64:
		return anySlice(l), nil
	case []float32:
		return anySlice(l), nil
	case []string:
		return anySlice(l), nil
	}
	return nil, fmt.Errorf("cannot store %T as list", v)
}

func anySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// rows converts a record into one map per row, keyed by field name.
func rows(rec arrow.Record) ([]any, error) {
	n := int(rec.NumRows())
	out := make([]any, n)
	for r := 0; r < n; r++ {
		out[r] = make(map[string]any, rec.NumCols())
	}
	for c, col := range rec.Columns() {
		name := rec.ColumnName(c)
		for r := 0; r < n; r++ {
			v, err := value(col, r)
			if err != nil {
				return nil, errors.InvalidInput(name, err.Error())
			}
			out[r].(map[string]any)[name] = v
		}
	}
	return out, nil
}

func value(arr arrow.Array, i int) (any, error) {
	if arr.IsNull(i) {
		return nil, nil
	}
	switch a := arr.(type) {
	case *array.Int64:
		return a.Value(i), nil
	case *array.Float64:
		return a.Value(i), nil
	case *array.String:
		return a.Value(i), nil
	case *array.LargeString:
		return a.Value(i), nil
	case *array.Boolean:
		return a.Value(i), nil
	case *array.Binary:
		return append([]byte(nil), a.Value(i)...), nil
	case *array.List:
		start, end := a.ValueOffsets(i)
		values := a.ListValues()
		out := make([]any, 0, end-start)
		for j := start; j < end; j++ {
			v, err := value(values, int(j))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported column type %s", arr.DataType())
}
