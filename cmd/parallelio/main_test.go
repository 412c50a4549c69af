package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/kbukum/parallelio/dataset"
	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/sink"
	"github.com/kbukum/parallelio/sink/memory"
	"github.com/kbukum/parallelio/writer"
)

func TestRunRangeDropEven(t *testing.T) {
	name := t.Name()
	t.Cleanup(func() { memory.Drop(name) })

	err := run(context.Background(), []string{
		"--range", "10", "--transform", "drop_even",
		"--backend", "memory_raw", "--target", name,
		"--workers", "3", "--batch-size", "2",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	st := memory.Named(name)
	var got []int64
	for _, v := range st.Values() {
		got = append(got, v.(int64))
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	if want := []int64{1, 3, 5, 7, 9}; !reflect.DeepEqual(got, want) {
		t.Errorf("values = %v, want %v", got, want)
	}
	if st.Closes() != 1 {
		t.Errorf("Closes() = %d, want 1", st.Closes())
	}
}

func TestRunJSONLinesToSQLite(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.jsonl")
	lines := "{\"id\": 1, \"tags\": [\"a\"]}\n{\"id\": 2}\n[1, 2, 3]\n\"text\"\n"
	if err := os.WriteFile(input, []byte(lines), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	db := filepath.Join(dir, "out.db")

	err := run(context.Background(), []string{
		"--input", input, "--transform", "explode",
		"--backend", "sqlite", "--target", db, "--workers", "0",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	ctx := context.Background()
	ds, err := sink.Load(ctx, sink.ReadConfig{Config: sink.Config{Backend: sink.BackendSQLite, Target: db}}, nil, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer ds.Close()
	// Two maps and a string repeat twice; the list explodes into three.
	if n := ds.(dataset.RandomAccess).Len(); n != 9 {
		t.Errorf("Len() = %d, want 9", n)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(error) bool
	}{
		{"unknown transform", []string{"--range", "3", "--transform", "nope", "--backend", "memory"}, errors.IsConfiguration},
		{"unknown backend", []string{"--range", "3", "--backend", "tape"}, errors.IsConfiguration},
		{"missing config file", []string{"--config", "/does/not/exist.yml", "--backend", "memory"}, errors.IsConfiguration},
		{"missing input", []string{"--input", "/does/not/exist.jsonl", "--backend", "memory"}, func(err error) bool {
			return errors.HasCode(err, errors.ErrCodeNotFound)
		}},
		{"bad flag", []string{"--no-such-flag"}, func(err error) bool { return err != nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), tt.args)
			if !tt.check(err) {
				t.Errorf("run(%v) = %v", tt.args, err)
			}
		})
	}
}

func TestTransforms(t *testing.T) {
	ctx := context.Background()
	args := TransformConfig{Field: "n", Repeat: 3}
	tests := []struct {
		name      string
		transform string
		item      any
		want      any
		wantErr   bool
	}{
		{"identity", "identity", "x", "x", false},
		{"drop even int", "drop_even", int64(4), nil, false},
		{"keep odd float", "drop_even", float64(3), float64(3), false},
		{"drop even field", "drop_even", map[string]any{"n": float64(2)}, nil, false},
		{"drop_even rejects text", "drop_even", "x", nil, true},
		{"explode list", "explode", []any{1, 2}, writer.Records{1, 2}, false},
		{"explode scalar", "explode", "x", writer.Records{"x", "x", "x"}, false},
		{"columns scalar", "columns", int64(7), map[string]any{"n": int64(7)}, false},
		{"columns map", "columns", map[string]any{"a": 1}, map[string]any{"a": 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := transforms[tt.transform](ctx, tt.item, args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestRunInputsChainedWithLimit(t *testing.T) {
	dir := t.TempDir()
	var inputs []string
	for i, lines := range []string{"1\n2\n", "3\n4\n"} {
		path := filepath.Join(dir, fmt.Sprintf("part%d.jsonl", i))
		if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
			t.Fatalf("write input: %v", err)
		}
		inputs = append(inputs, path)
	}

	tests := []struct {
		name  string
		limit string
		want  []float64
	}{
		{"all", "0", []float64{1, 2, 3, 4}},
		{"across files", "3", []float64{1, 2, 3}},
		{"first file", "1", []float64{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := t.Name()
			t.Cleanup(func() { memory.Drop(name) })

			err := run(context.Background(), []string{
				"--input", strings.Join(inputs, ","), "--limit", tt.limit,
				"--backend", "memory_raw", "--target", name, "--workers", "2",
			})
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			var got []float64
			for _, v := range memory.Named(name).Values() {
				got = append(got, v.(float64))
			}
			sort.Float64s(got)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("values = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRangeLimit(t *testing.T) {
	src, err := openInput(InputConfig{Range: 10, Limit: 4})
	if err != nil {
		t.Fatal(err)
	}
	if src.Len() != 4 {
		t.Errorf("Len() = %d, want 4", src.Len())
	}
}

func TestLoadConfigVersion(t *testing.T) {
	cfg, showVersion, err := loadConfig([]string{"--version", "--backend", "memory"})
	if err != nil || !showVersion || cfg != nil {
		t.Errorf("loadConfig(--version) = %v, %v, %v", cfg, showVersion, err)
	}

	cfg, showVersion, err = loadConfig([]string{"--range", "3", "--backend", "memory"})
	if err != nil || showVersion {
		t.Fatalf("loadConfig = %v, %v", showVersion, err)
	}
	if cfg.Input.Range != 3 || cfg.Sink.Backend != sink.BackendMemory {
		t.Errorf("flags not applied: %+v %+v", cfg.Input, cfg.Sink)
	}
}

func TestRunVersion(t *testing.T) {
	if err := run(context.Background(), []string{"--version"}); err != nil {
		t.Errorf("run(--version) = %v, want nil", err)
	}
}
