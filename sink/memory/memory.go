// Package memory implements the memory and memory_raw backends. Both append
// batches to a Store; memory keeps each record encoded by the codec package,
// memory_raw keeps the value itself.
package memory

import (
	"context"
	"sync"

	"github.com/kbukum/parallelio/codec"
	"github.com/kbukum/parallelio/dataset"
	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/logger"
	"github.com/kbukum/parallelio/sink"
)

func init() {
	for _, b := range []sink.Backend{sink.BackendMemory, sink.BackendMemoryRaw} {
		sink.RegisterFactory(b, open)
		sink.RegisterReader(b, load)
	}
}

// Store is an in-process buffer that records what reached it.
type Store struct {
	mu      sync.Mutex
	values  []any
	batches []int
	closes  int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

var (
	namedMu sync.Mutex
	named   = make(map[string]*Store)
)

// Named returns the process-wide store registered under name, creating it on
// first use. Sinks opened without a *Store use Named(cfg.Target).
func Named(name string) *Store {
	namedMu.Lock()
	defer namedMu.Unlock()
	s, ok := named[name]
	if !ok {
		s = NewStore()
		named[name] = s
	}
	return s
}

// Drop forgets the named store.
func Drop(name string) {
	namedMu.Lock()
	defer namedMu.Unlock()
	delete(named, name)
}

func (s *Store) append(values []any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = append(s.values, values...)
	s.batches = append(s.batches, len(values))
}

// Values returns a copy of every stored record in arrival order.
func (s *Store) Values() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]any(nil), s.values...)
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

// Batches returns the size of every batch written, in order.
func (s *Store) Batches() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.batches...)
}

// Closes returns how many times a sink over this store was closed.
func (s *Store) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

func (s *Store) at(i int) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.values) {
		return nil, errors.NotFound("record", sink.Key(int64(i)))
	}
	return s.values[i], nil
}

// Sink appends batches to a Store.
type Sink struct {
	backend sink.Backend
	store   *Store
	log     *logger.Logger
}

var _ sink.ListWriter = (*Sink)(nil)

func storeFor(target string, backendCfg any) (*Store, error) {
	switch v := backendCfg.(type) {
	case nil:
		return Named(target), nil
	case *Store:
		return v, nil
	default:
		return nil, errors.Configuration("memory: unexpected backend config %T", backendCfg)
	}
}

func open(_ context.Context, cfg sink.Config, backendCfg any, log *logger.Logger) (sink.Sink, error) {
	st, err := storeFor(cfg.Target, backendCfg)
	if err != nil {
		return nil, err
	}
	return &Sink{backend: cfg.Backend, store: st, log: log}, nil
}

// New opens a sink of backend b over st.
func New(b sink.Backend, st *Store) *Sink {
	return &Sink{backend: b, store: st, log: logger.Nop()}
}

func (s *Sink) Backend() sink.Backend { return s.backend }

// Store returns the backing store.
func (s *Sink) Store() *Store { return s.store }

func (s *Sink) WriteBatch(_ context.Context, values []any) error {
	if s.backend == sink.BackendMemoryRaw {
		s.store.append(values)
		return nil
	}
	encoded := make([]any, len(values))
	for i, v := range values {
		b, err := codec.Marshal(v)
		if err != nil {
			return errors.Sink(s.backend.String(), "write", err)
		}
		encoded[i] = b
	}
	s.store.append(encoded)
	return nil
}

func (s *Sink) Close(context.Context) error {
	s.store.mu.Lock()
	s.store.closes++
	s.store.mu.Unlock()
	s.log.Debug("memory sink closed", logger.Fields(logger.FieldCount, s.store.Len()))
	return nil
}

type sequence struct {
	store  *Store
	decode func(any) (any, error)
}

func (q *sequence) Len() int { return q.store.Len() }

func (q *sequence) At(ctx context.Context, i int) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err := q.store.at(i)
	if err != nil {
		return nil, err
	}
	return q.decode(v)
}

func load(_ context.Context, cfg sink.ReadConfig, backendCfg any, _ *logger.Logger) (dataset.Dataset, error) {
	st, err := storeFor(cfg.Target, backendCfg)
	if err != nil {
		return nil, err
	}
	decode := func(v any) (any, error) { return v, nil }
	if cfg.Backend == sink.BackendMemory {
		parse := !cfg.Raw
		decode = func(v any) (any, error) {
			b, ok := v.([]byte)
			if !ok {
				return v, nil
			}
			return codec.Decode(b, parse)
		}
	}
	return dataset.Indexed(&sequence{store: st, decode: decode}, nil), nil
}
