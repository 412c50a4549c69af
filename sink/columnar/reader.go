package columnar

import (
	"context"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/kbukum/parallelio/dataset"
	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/logger"
	"github.com/kbukum/parallelio/sink"
)

// batchSource yields records in file order. A record is valid until the
// next call.
type batchSource interface {
	next(ctx context.Context) (arrow.Record, bool, error)
	close() error
}

func checkTarget(cfg sink.ReadConfig) error {
	if _, err := os.Stat(cfg.Target); err != nil {
		if os.IsNotExist(err) {
			return errors.NotFound(cfg.Backend.String()+" file", cfg.Target)
		}
		return errors.Sink(cfg.Backend.String(), "load", err)
	}
	return nil
}

// streamed builds a dataset whose iterators open a fresh batch source.
func streamed(b sink.Backend, open func(ctx context.Context) (batchSource, error)) dataset.Dataset {
	return dataset.Streamed(func(ctx context.Context) dataset.Iterator[any] {
		it := &rowIter{backend: b}
		return dataset.FromFunc(func(ctx context.Context) (any, bool, error) {
			if it.src == nil {
				src, err := open(ctx)
				if err != nil {
					return nil, false, errors.Sink(b.String(), "read", err)
				}
				it.src = src
			}
			return it.next(ctx)
		}, it.close)
	}, nil)
}

type rowIter struct {
	backend sink.Backend
	src     batchSource
	pending []any
}

func (it *rowIter) next(ctx context.Context) (any, bool, error) {
	for len(it.pending) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		rec, ok, err := it.src.next(ctx)
		if err != nil {
			return nil, false, errors.Sink(it.backend.String(), "read", err)
		}
		if !ok {
			return nil, false, nil
		}
		if it.pending, err = rows(rec); err != nil {
			return nil, false, err
		}
	}
	v := it.pending[0]
	it.pending = it.pending[1:]
	return v, true, nil
}

func (it *rowIter) close() error {
	if it.src == nil {
		return nil
	}
	return it.src.close()
}

type ipcStream struct {
	f *os.File
	r *ipc.Reader
}

func (s *ipcStream) next(context.Context) (arrow.Record, bool, error) {
	if s.r.Next() {
		return s.r.Record(), true, nil
	}
	return nil, false, s.r.Err()
}

func (s *ipcStream) close() error {
	s.r.Release()
	return s.f.Close()
}

func loadStream(_ context.Context, cfg sink.ReadConfig, _ any, _ *logger.Logger) (dataset.Dataset, error) {
	if err := checkTarget(cfg); err != nil {
		return nil, err
	}
	path := cfg.Target
	return streamed(cfg.Backend, func(context.Context) (batchSource, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		r, err := ipc.NewReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		return &ipcStream{f: f, r: r}, nil
	}), nil
}

type parquetSource struct {
	pf *file.Reader
	rr pqarrow.RecordReader
}

func (s *parquetSource) next(context.Context) (arrow.Record, bool, error) {
	if s.rr.Next() {
		return s.rr.Record(), true, nil
	}
	if err := s.rr.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, false, err
	}
	return nil, false, nil
}

func (s *parquetSource) close() error {
	s.rr.Release()
	return s.pf.Close()
}

func loadParquet(_ context.Context, cfg sink.ReadConfig, _ any, _ *logger.Logger) (dataset.Dataset, error) {
	if err := checkTarget(cfg); err != nil {
		return nil, err
	}
	path, batch := cfg.Target, int64(cfg.BatchSize)
	return streamed(cfg.Backend, func(ctx context.Context) (batchSource, error) {
		pf, err := file.OpenParquetFile(path, false)
		if err != nil {
			return nil, err
		}
		fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: batch}, memory.NewGoAllocator())
		if err != nil {
			_ = pf.Close()
			return nil, err
		}
		rr, err := fr.GetRecordReader(ctx, nil, nil)
		if err != nil {
			_ = pf.Close()
			return nil, err
		}
		return &parquetSource{pf: pf, rr: rr}, nil
	}), nil
}

// fileSequence reads rows of an Arrow IPC file by position.
type fileSequence struct {
	mu      sync.Mutex
	f       *os.File
	r       *ipc.FileReader
	offsets []int
	total   int
}

func (s *fileSequence) Len() int { return s.total }

func (s *fileSequence) At(ctx context.Context, i int) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if i < 0 || i >= s.total {
		return nil, errors.NotFound("row", sink.Key(int64(i)))
	}
	b := sort.SearchInts(s.offsets, i+1) - 1

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.r.Record(b)
	if err != nil {
		return nil, errors.Sink(sink.BackendArrowFile.String(), "read", err)
	}
	row := i - s.offsets[b]
	out := make(map[string]any, rec.NumCols())
	for c, col := range rec.Columns() {
		v, err := value(col, row)
		if err != nil {
			return nil, errors.InvalidInput(rec.ColumnName(c), err.Error())
		}
		out[rec.ColumnName(c)] = v
	}
	return out, nil
}

func (s *fileSequence) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.r.Close()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}

func loadFile(_ context.Context, cfg sink.ReadConfig, _ any, _ *logger.Logger) (dataset.Dataset, error) {
	if err := checkTarget(cfg); err != nil {
		return nil, err
	}
	f, err := os.Open(cfg.Target)
	if err != nil {
		return nil, errors.Sink(cfg.Backend.String(), "load", err)
	}
	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		_ = f.Close()
		return nil, errors.Sink(cfg.Backend.String(), "load", err)
	}

	seq := &fileSequence{f: f, r: r}
	for b := 0; b < r.NumRecords(); b++ {
		rec, err := r.Record(b)
		if err != nil {
			_ = seq.close()
			return nil, errors.Sink(cfg.Backend.String(), "load", err)
		}
		seq.offsets = append(seq.offsets, seq.total)
		seq.total += int(rec.NumRows())
	}
	return dataset.Indexed(seq, seq.close), nil
}
