package parallel

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/parallelio/dataset"
	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/logger"
)

// recorder is a Stage whose collectors share one result log.
type recorder struct {
	transform func(ctx context.Context, v int) (int, error)

	mu         sync.Mutex
	results    map[int64]int
	collectors int
	closes     int

	initialized, finalized atomic.Int32
	starts, stops          atomic.Int32
	finalErr               error
}

func newRecorder(transform func(ctx context.Context, v int) (int, error)) *recorder {
	if transform == nil {
		transform = func(_ context.Context, v int) (int, error) { return v * 2, nil }
	}
	return &recorder{transform: transform, results: map[int64]int{}}
}

func (r *recorder) Transform(ctx context.Context, v int) (int, error) { return r.transform(ctx, v) }

func (r *recorder) NewCollector(context.Context, int) (Collector[int], error) {
	r.mu.Lock()
	r.collectors++
	r.mu.Unlock()
	return &recordingCollector{r: r}, nil
}

func (r *recorder) OnInitialize(context.Context) error { r.initialized.Add(1); return nil }

func (r *recorder) OnFinalize(_ context.Context, err error) error {
	r.finalized.Add(1)
	r.finalErr = err
	return nil
}

func (r *recorder) OnWorkerStart(context.Context, int) error { r.starts.Add(1); return nil }
func (r *recorder) OnWorkerStop(context.Context, int) error  { r.stops.Add(1); return nil }

type recordingCollector struct{ r *recorder }

func (c *recordingCollector) Collect(_ context.Context, index int64, v int) error {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	if _, dup := c.r.results[index]; dup {
		return fmt.Errorf("index %d collected twice", index)
	}
	c.r.results[index] = v
	return nil
}

func (c *recordingCollector) Close(context.Context) error {
	c.r.mu.Lock()
	c.r.closes++
	c.r.mu.Unlock()
	return nil
}

func ints(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func testConfig(workers, post int) Config {
	cfg := DefaultConfig()
	cfg.Workers = workers
	cfg.PostWorkers = post
	cfg.InputQueueSize = 4
	cfg.OutputQueueSize = 4
	return cfg
}

func TestApplyAllItemsReachCollectors(t *testing.T) {
	items := ints(100)
	for workers := 0; workers <= 4; workers++ {
		for _, post := range []int{1, 3} {
			t.Run(fmt.Sprintf("workers=%d/post=%d", workers, post), func(t *testing.T) {
				rec := newRecorder(nil)
				stats, err := Apply(context.Background(), FromSlice(items), testConfig(workers, post), rec, logger.Nop())
				if err != nil {
					t.Fatalf("Apply: %v", err)
				}
				if len(rec.results) != len(items) {
					t.Fatalf("collected %d results, want %d", len(rec.results), len(items))
				}
				for i, v := range items {
					if rec.results[int64(i)] != v*2 {
						t.Errorf("index %d = %d, want %d", i, rec.results[int64(i)], v*2)
					}
				}
				if stats.Dispatched != 100 || stats.Collected != 100 {
					t.Errorf("unexpected stats %+v", stats)
				}
				wantCollectors := post
				if workers == 0 {
					wantCollectors = 1
				}
				if rec.collectors != wantCollectors || rec.closes != wantCollectors {
					t.Errorf("collectors=%d closes=%d, want %d", rec.collectors, rec.closes, wantCollectors)
				}
				if stats.Sentinels != int64(workers) {
					t.Errorf("sentinels consumed = %d, want %d", stats.Sentinels, workers)
				}
				if stats.RunID == "" {
					t.Error("expected run id")
				}
			})
		}
	}
}

func TestApplyEmptyInput(t *testing.T) {
	rec := newRecorder(nil)
	stats, err := Apply(context.Background(), FromSlice[int](nil), testConfig(3, 1), rec, logger.Nop())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if stats.Sentinels != 3 {
		t.Errorf("sentinels = %d, want 3", stats.Sentinels)
	}
	if len(rec.results) != 0 {
		t.Errorf("expected no results, got %v", rec.results)
	}
	if rec.closes != 1 {
		t.Errorf("Close called %d times, want 1", rec.closes)
	}
}

func TestApplyHooks(t *testing.T) {
	for _, workers := range []int{0, 3} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			rec := newRecorder(nil)
			if _, err := Apply(context.Background(), FromSlice(ints(10)), testConfig(workers, 1), rec, logger.Nop()); err != nil {
				t.Fatalf("Apply: %v", err)
			}
			wantWorkers := int32(max(workers, 1))
			if rec.starts.Load() != wantWorkers || rec.stops.Load() != wantWorkers {
				t.Errorf("starts=%d stops=%d, want %d", rec.starts.Load(), rec.stops.Load(), wantWorkers)
			}
			if rec.initialized.Load() != 1 || rec.finalized.Load() != 1 {
				t.Errorf("initialize=%d finalize=%d", rec.initialized.Load(), rec.finalized.Load())
			}
		})
	}
}

func TestApplyTransformError(t *testing.T) {
	boom := fmt.Errorf("boom")
	for _, workers := range []int{0, 1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			rec := newRecorder(func(_ context.Context, v int) (int, error) {
				if v == 37 {
					return 0, boom
				}
				return v, nil
			})
			cfg := testConfig(workers, 2)
			cfg.InputQueueSize, cfg.OutputQueueSize = 1, 1

			done := make(chan error, 1)
			go func() {
				_, err := Apply(context.Background(), FromSlice(ints(500)), cfg, rec, logger.Nop())
				done <- err
			}()

			select {
			case err := <-done:
				if !errors.IsTransform(err) {
					t.Fatalf("expected TRANSFORM_ERROR, got %v", err)
				}
				if !errors.Is(err, boom) {
					t.Error("expected transform cause to be preserved")
				}
				appErr, _ := errors.AsAppError(err)
				if appErr.Details["index"] != int64(37) {
					t.Errorf("expected failing index in details, got %v", appErr.Details)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("run hung after a transform error")
			}
			if rec.closes != 0 {
				t.Errorf("collectors must not be finalized on failure, got %d closes", rec.closes)
			}
			if rec.finalized.Load() != 1 || rec.finalErr == nil {
				t.Error("OnFinalize must observe the run error")
			}
		})
	}
}

func TestApplyTransformPanic(t *testing.T) {
	for _, workers := range []int{0, 3} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			rec := newRecorder(func(_ context.Context, v int) (int, error) {
				if v == 5 {
					panic("bad item")
				}
				return v, nil
			})
			_, err := Apply(context.Background(), FromSlice(ints(20)), testConfig(workers, 1), rec, logger.Nop())
			if !errors.IsTransform(err) {
				t.Fatalf("expected TRANSFORM_ERROR, got %v", err)
			}
			appErr, _ := errors.AsAppError(err)
			if !errors.HasCode(appErr.Cause, errors.ErrCodeInternal) {
				t.Errorf("expected INTERNAL_ERROR cause, got %v", appErr.Cause)
			}
			if rec.closes != 0 {
				t.Errorf("collectors must not be finalized on failure, got %d closes", rec.closes)
			}
		})
	}
}

func TestApplyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var once sync.Once
	rec := newRecorder(func(ctx context.Context, v int) (int, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return 0, ctx.Err()
	})

	done := make(chan error, 1)
	go func() {
		_, err := Apply(ctx, FromSlice(ints(50)), testConfig(2, 1), rec, logger.Nop())
		done <- err
	}()
	<-started
	cancel()

	select {
	case err := <-done:
		if !errors.IsCanceled(err) {
			t.Fatalf("expected CANCELED, got %v", err)
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled in chain, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}

func TestApplySyncCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := newRecorder(func(_ context.Context, v int) (int, error) {
		if v == 3 {
			cancel()
		}
		return v, nil
	})
	cfg := testConfig(0, 1)
	cfg.Shuffle = false

	_, err := Apply(ctx, FromSlice(ints(100)), cfg, rec, logger.Nop())
	if !errors.IsCanceled(err) {
		t.Fatalf("expected CANCELED, got %v", err)
	}
	if n := len(rec.results); n != 4 {
		t.Errorf("collected %d items, want 4", n)
	}
	if rec.closes != 0 {
		t.Errorf("collector closed %d times after cancel, want 0", rec.closes)
	}
}

func TestApplyIteratorSource(t *testing.T) {
	closed := false
	base := dataset.FromSlice(ints(25))
	it := dataset.FromFunc(base.Next, func() error { closed = true; return nil })

	rec := newRecorder(nil)
	cfg := testConfig(3, 2)
	cfg.InputQueueSize, cfg.OutputQueueSize = 0, 0
	stats, err := Apply(context.Background(), FromIterator(it), cfg, rec, logger.Nop())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if stats.Dispatched != 25 || len(rec.results) != 25 {
		t.Errorf("dispatched=%d collected=%d", stats.Dispatched, len(rec.results))
	}
	for i := int64(0); i < 25; i++ {
		if rec.results[i] != int(i)*2 {
			t.Errorf("index %d = %d", i, rec.results[i])
		}
	}
	if !closed {
		t.Error("iterator source must be closed after dispatch")
	}
}

func TestApplyInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = -1
	_, err := Apply(context.Background(), FromSlice(ints(1)), cfg, newRecorder(nil), nil)
	if !errors.IsConfiguration(err) {
		t.Errorf("expected CONFIGURATION_ERROR, got %v", err)
	}
}

func TestApplySyncMatchesParallel(t *testing.T) {
	items := ints(64)
	run := func(workers int) map[int64]int {
		rec := newRecorder(nil)
		if _, err := Apply(context.Background(), FromSlice(items), testConfig(workers, 1), rec, logger.Nop()); err != nil {
			t.Fatalf("Apply(workers=%d): %v", workers, err)
		}
		return rec.results
	}
	syncRes, parRes := run(0), run(4)
	if len(syncRes) != len(parRes) {
		t.Fatalf("sync=%d parallel=%d", len(syncRes), len(parRes))
	}
	for k, v := range syncRes {
		if parRes[k] != v {
			t.Errorf("index %d: sync=%d parallel=%d", k, v, parRes[k])
		}
	}
}

func TestShufflePreservesMultiset(t *testing.T) {
	items := []string{"a", "b", "b", "c", "d", "d", "d", "e"}
	src := FromSlice(items)
	for _, seed := range []uint64{0, 1, 42} {
		var order []int64
		var got []string
		err := src.walk(context.Background(), true, seed, func(it Indexed[string]) error {
			order = append(order, it.Index)
			got = append(got, it.Payload)
			if items[it.Index] != it.Payload {
				t.Errorf("index %d carries %q, want %q", it.Index, it.Payload, items[it.Index])
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		slices.Sort(got)
		want := slices.Clone(items)
		slices.Sort(want)
		if !slices.Equal(got, want) {
			t.Errorf("seed %d: multiset changed: %v", seed, got)
		}
		slices.Sort(order)
		for i, idx := range order {
			if idx != int64(i) {
				t.Fatalf("seed %d: indices not a permutation: %v", seed, order)
			}
		}
	}
}

func TestShuffleSeedDeterministic(t *testing.T) {
	a, b := identity(50), identity(50)
	permute(a, 7)
	permute(b, 7)
	if !slices.Equal(a, b) {
		t.Error("same seed must give the same order")
	}
	if slices.Equal(a, identity(50)) {
		t.Error("expected a non-identity permutation")
	}
}

func TestSentinel(t *testing.T) {
	s := Sentinel[int]()
	if !s.IsSentinel() || s.Index != SentinelIndex {
		t.Errorf("unexpected sentinel %+v", s)
	}
	if (Indexed[int]{Index: -1}).IsSentinel() {
		t.Error("a plain item with index -1 is not a sentinel")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Workers != 4 || cfg.PostWorkers != 1 || cfg.InputQueueSize != 200 || cfg.OutputQueueSize != 100 || !cfg.Shuffle {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	var empty Config
	empty.ApplyDefaults()
	if empty.PostWorkers != 1 || empty.Desc != "parallel" {
		t.Errorf("ApplyDefaults = %+v", empty)
	}
	tests := []struct {
		total int
		every int
		want  int
	}{
		{1000, 0, 100},
		{5, 0, 1},
		{-1, 0, 10000},
		{1000, 7, 7},
	}
	for _, tt := range tests {
		c := Config{ProgressEvery: tt.every}
		if got := c.progressEvery(tt.total); got != tt.want {
			t.Errorf("progressEvery(%d) with %d = %d, want %d", tt.total, tt.every, got, tt.want)
		}
	}
}
