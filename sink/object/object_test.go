package object

import (
	"context"
	"reflect"
	"testing"

	"github.com/kbukum/parallelio/dataset"
	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/sink"
	"github.com/kbukum/parallelio/storage"
	"github.com/kbukum/parallelio/storage/local"
)

func config(dir string) sink.Config {
	return sink.Config{
		Backend: sink.BackendObject,
		Target:  "runs/latest",
		Object:  sink.ObjectOptions{Storage: storage.Config{Provider: storage.ProviderLocal, BasePath: dir}},
	}
}

func write(t *testing.T, cfg sink.Config, batches ...[]any) {
	t.Helper()
	ctx := context.Background()
	s, err := sink.Open(ctx, cfg, nil, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, b := range batches {
		if err := s.(sink.ListWriter).WriteBatch(ctx, b); err != nil {
			t.Fatalf("WriteBatch: %v", err)
		}
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestSegmentsAndManifest(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := config(dir)
	write(t, cfg, []any{1, 2}, []any{3}, []any{"four"})

	st, err := local.NewStorage(dir)
	if err != nil {
		t.Fatal(err)
	}
	objs, err := st.List(ctx, "runs/latest/")
	if err != nil {
		t.Fatal(err)
	}
	var paths []string
	for _, o := range objs {
		paths = append(paths, o.Path)
	}
	want := []string{
		"runs/latest/" + ManifestName,
		"runs/latest/part-00000000.seg",
		"runs/latest/part-00000001.seg",
		"runs/latest/part-00000002.seg",
	}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("objects = %v, want %v", paths, want)
	}

	ds, err := sink.Load(ctx, sink.ReadConfig{Config: cfg}, nil, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := dataset.Collect(ctx, ds.Iter(ctx))
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if !reflect.DeepEqual(got, []any{float64(1), float64(2), float64(3), "four"}) {
		t.Errorf("loaded %v", got)
	}
}

func TestReopenRemovesStaleSegments(t *testing.T) {
	ctx := context.Background()
	cfg := config(t.TempDir())
	write(t, cfg, []any{1}, []any{2}, []any{3})
	write(t, cfg, []any{"only"})

	ds, err := sink.Load(ctx, sink.ReadConfig{Config: cfg}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := dataset.Collect(ctx, ds.Iter(ctx))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []any{"only"}) {
		t.Errorf("loaded %v, want [only]", got)
	}
}

func TestInjectedStorage(t *testing.T) {
	ctx := context.Background()
	st, err := local.NewStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cfg := sink.Config{Backend: sink.BackendObject, Target: "p", Object: sink.ObjectOptions{Compression: "zstd"}}
	s, err := sink.Open(ctx, cfg, st, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.(sink.ListWriter).WriteBatch(ctx, []any{[]byte("raw")}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatal(err)
	}

	ds, err := sink.Load(ctx, sink.ReadConfig{Config: cfg, Raw: true}, st, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := dataset.Collect(ctx, ds.Iter(ctx))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || string(got[0].([]byte)) != "raw" {
		t.Errorf("loaded %v", got)
	}
}

func TestLoadUnfinished(t *testing.T) {
	_, err := sink.Load(context.Background(), sink.ReadConfig{Config: config(t.TempDir())}, nil, nil)
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("Load = %v, want NOT_FOUND", err)
	}
}
