package columnar

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kbukum/parallelio/dataset"
	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/sink"
)

var fields = []sink.Field{
	{Name: "id", Type: sink.TypeInt64},
	{Name: "score", Type: sink.TypeFloat64},
	{Name: "label", Type: sink.TypeString, Nullable: true},
	{Name: "ok", Type: sink.TypeBool},
	{Name: "tags", Type: sink.TypeStringList},
	{Name: "vec", Type: sink.TypeFloat64List},
}

func config(b sink.Backend, dir string) sink.Config {
	return sink.Config{
		Backend:  b,
		Target:   filepath.Join(dir, "out."+b.String()),
		Columnar: sink.ColumnarOptions{Fields: fields},
	}
}

func batch(ids ...int) [][]any {
	cols := make([][]any, len(fields))
	for _, id := range ids {
		var label any = "row"
		if id%2 == 1 {
			label = nil
		}
		cols[0] = append(cols[0], float64(id))
		cols[1] = append(cols[1], float64(id)/2)
		cols[2] = append(cols[2], label)
		cols[3] = append(cols[3], id%2 == 0)
		cols[4] = append(cols[4], []any{"t", "u"})
		cols[5] = append(cols[5], []float64{float64(id), 1})
	}
	return cols
}

func wantRow(id int) map[string]any {
	var label any = "row"
	if id%2 == 1 {
		label = nil
	}
	return map[string]any{
		"id":    int64(id),
		"score": float64(id) / 2,
		"label": label,
		"ok":    id%2 == 0,
		"tags":  []any{"t", "u"},
		"vec":   []any{float64(id), float64(1)},
	}
}

func TestRoundTrip(t *testing.T) {
	for _, b := range []sink.Backend{sink.BackendArrowStream, sink.BackendArrowFile, sink.BackendParquet} {
		t.Run(b.String(), func(t *testing.T) {
			ctx := context.Background()
			cfg := config(b, t.TempDir())

			s, err := sink.Open(ctx, cfg, nil, nil)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			cw := s.(sink.ColumnWriter)
			names := cw.Schema().Names()
			if err := cw.WriteColumns(ctx, names, batch(0, 1)); err != nil {
				t.Fatalf("WriteColumns: %v", err)
			}
			if err := cw.WriteColumns(ctx, names, batch(2)); err != nil {
				t.Fatalf("WriteColumns: %v", err)
			}
			if err := s.Close(ctx); err != nil {
				t.Fatalf("Close: %v", err)
			}
			if err := s.Close(ctx); err != nil {
				t.Fatalf("second Close: %v", err)
			}

			ds, err := sink.Load(ctx, sink.ReadConfig{Config: cfg}, nil, nil)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			defer ds.Close()
			got, err := dataset.Collect(ctx, ds.Iter(ctx))
			if err != nil {
				t.Fatalf("Collect: %v", err)
			}
			want := []any{wantRow(0), wantRow(1), wantRow(2)}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("got %v\nwant %v", got, want)
			}
		})
	}
}

func TestArrowFileRandomAccess(t *testing.T) {
	ctx := context.Background()
	cfg := config(sink.BackendArrowFile, t.TempDir())
	s, err := sink.Open(ctx, cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	names := s.(sink.ColumnWriter).Schema().Names()
	for _, ids := range [][]int{{0, 1}, {2, 3, 4}} {
		if err := s.(sink.ColumnWriter).WriteColumns(ctx, names, batch(ids...)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Close(ctx); err != nil {
		t.Fatal(err)
	}

	ds, err := sink.Load(ctx, sink.ReadConfig{Config: cfg}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ds.Close()
	ra, ok := ds.(dataset.RandomAccess)
	if !ok {
		t.Fatalf("dataset is %T, want RandomAccess", ds)
	}
	if ra.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", ra.Len())
	}
	for _, i := range []int{4, 0, 2, 3} {
		v, err := ra.At(ctx, i)
		if err != nil {
			t.Fatalf("At(%d): %v", i, err)
		}
		if !reflect.DeepEqual(v, wantRow(i)) {
			t.Errorf("At(%d) = %v", i, v)
		}
	}
	if _, err := ra.At(ctx, 5); err == nil {
		t.Error("expected error past the end")
	}
}

func TestWriteColumnsRejects(t *testing.T) {
	ctx := context.Background()
	s, err := sink.Open(ctx, config(sink.BackendArrowStream, t.TempDir()), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close(ctx)
	cw := s.(sink.ColumnWriter)

	tests := []struct {
		name    string
		names   []string
		columns [][]any
	}{
		{"wrong order", []string{"score", "id", "label", "ok", "tags", "vec"}, batch(0)},
		{"ragged", cw.Schema().Names(), append(batch(0)[:5], []any{})},
		{"bad type", cw.Schema().Names(), func() [][]any { c := batch(0); c[0][0] = "x"; return c }()},
		{"fractional int", cw.Schema().Names(), func() [][]any { c := batch(0); c[0][0] = 1.5; return c }()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := cw.WriteColumns(ctx, tt.names, tt.columns); !errors.IsSink(err) {
				t.Errorf("WriteColumns = %v, want SINK_ERROR", err)
			}
		})
	}
}

func TestSchemaRequired(t *testing.T) {
	cfg := config(sink.BackendParquet, t.TempDir())
	cfg.Columnar.Fields = nil
	if _, err := sink.Open(context.Background(), cfg, nil, nil); !errors.IsConfiguration(err) {
		t.Errorf("Open without fields = %v, want CONFIGURATION_ERROR", err)
	}
}

func TestLoadMissing(t *testing.T) {
	cfg := config(sink.BackendParquet, t.TempDir())
	_, err := sink.Load(context.Background(), sink.ReadConfig{Config: cfg}, nil, nil)
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("Load = %v, want NOT_FOUND", err)
	}
}

func TestParquetReadsToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := config(sink.BackendParquet, t.TempDir())
	s, err := sink.Open(ctx, cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	names := s.(sink.ColumnWriter).Schema().Names()
	for _, ids := range [][]int{{0, 1}, {2}, {3, 4}} {
		if err := s.(sink.ColumnWriter).WriteColumns(ctx, names, batch(ids...)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Close(ctx); err != nil {
		t.Fatal(err)
	}

	for _, size := range []int{0, 1, 2, 64} {
		t.Run(fmt.Sprintf("batch_%d", size), func(t *testing.T) {
			ds, err := sink.Load(ctx, sink.ReadConfig{Config: cfg, BatchSize: size}, nil, nil)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			defer ds.Close()

			for pass := 0; pass < 2; pass++ {
				n := 0
				err := dataset.ForEach(ctx, ds.Iter(ctx), func(_ context.Context, v any) error {
					if !reflect.DeepEqual(v, wantRow(n)) {
						t.Errorf("pass %d row %d = %v", pass, n, v)
					}
					n++
					return nil
				})
				if err != nil {
					t.Fatalf("pass %d: ForEach: %v", pass, err)
				}
				if n != 5 {
					t.Errorf("pass %d: read %d rows, want 5", pass, n)
				}
			}
		})
	}
}
