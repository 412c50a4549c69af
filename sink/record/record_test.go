package record

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kbukum/parallelio/dataset"
	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/sink"
)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name        string
		compression string
	}{
		{"gzip", "gzip"},
		{"zstd", "zstd"},
		{"none", "none"},
		{"default", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "out", "data.rec")
			cfg := sink.Config{Backend: sink.BackendRecord, Target: path, Record: sink.RecordOptions{Compression: tt.compression}}

			s, err := sink.Open(ctx, cfg, nil, nil)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			w := s.(sink.ListWriter)
			if err := w.WriteBatch(ctx, []any{1, "two"}); err != nil {
				t.Fatalf("WriteBatch: %v", err)
			}
			if err := w.WriteBatch(ctx, []any{map[string]any{"n": 3}}); err != nil {
				t.Fatalf("WriteBatch: %v", err)
			}
			if err := s.Close(ctx); err != nil {
				t.Fatalf("Close: %v", err)
			}
			if err := s.Close(ctx); err != nil {
				t.Fatalf("second Close: %v", err)
			}

			ds, err := sink.Load(ctx, sink.ReadConfig{Config: sink.Config{Backend: sink.BackendRecord, Target: path}}, nil, nil)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			got, err := dataset.Collect(ctx, ds.Iter(ctx))
			if err != nil {
				t.Fatalf("Collect: %v", err)
			}
			want := []any{float64(1), "two", map[string]any{"n": float64(3)}}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("got %v, want %v", got, want)
			}
		})
	}
}

func TestLoadRaw(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "raw.rec")
	s, err := sink.Open(ctx, sink.Config{Backend: sink.BackendRecord, Target: path}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.(sink.ListWriter).WriteBatch(ctx, []any{[]byte("opaque")}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatal(err)
	}

	ds, err := sink.Load(ctx, sink.ReadConfig{Config: sink.Config{Backend: sink.BackendRecord, Target: path}, Raw: true}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := dataset.Collect(ctx, ds.Iter(ctx))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || string(got[0].([]byte)) != "opaque" {
		t.Errorf("got %v", got)
	}
}

func TestWriteAfterClose(t *testing.T) {
	ctx := context.Background()
	s, err := sink.Open(ctx, sink.Config{Backend: sink.BackendRecord, Target: filepath.Join(t.TempDir(), "x.rec")}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Close(ctx)
	err = s.(sink.ListWriter).WriteBatch(ctx, []any{1})
	if !errors.IsSink(err) {
		t.Errorf("WriteBatch after Close = %v, want SINK_ERROR", err)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := sink.Load(context.Background(), sink.ReadConfig{Config: sink.Config{Backend: sink.BackendRecord, Target: filepath.Join(t.TempDir(), "missing")}}, nil, nil)
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("Load(missing) = %v, want NOT_FOUND", err)
	}
}

func TestTargetRequired(t *testing.T) {
	_, err := sink.Open(context.Background(), sink.Config{Backend: sink.BackendRecord}, nil, nil)
	if !errors.IsConfiguration(err) {
		t.Errorf("Open without target = %v, want CONFIGURATION_ERROR", err)
	}
}

func TestFailedBatchWritesNothing(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "partial.rec")
	s, err := sink.Open(ctx, sink.Config{Backend: sink.BackendRecord, Target: path}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	w := s.(sink.ListWriter)
	if err := w.WriteBatch(ctx, []any{"kept"}); err != nil {
		t.Fatal(err)
	}
	err = w.WriteBatch(ctx, []any{"a", "b", make(chan int), "c"})
	if !errors.IsSink(err) {
		t.Fatalf("WriteBatch with unencodable value = %v, want SINK_ERROR", err)
	}
	if got := s.(*Sink).count; got != 1 {
		t.Errorf("count = %d, want 1", got)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatal(err)
	}

	ds, err := sink.Load(ctx, sink.ReadConfig{Config: sink.Config{Backend: sink.BackendRecord, Target: path}}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := dataset.Collect(ctx, ds.Iter(ctx))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []any{"kept"}) {
		t.Errorf("got %v, want [kept]", got)
	}
}
