// Package record implements the record backend: an append-only file of
// codec-encoded records, framed and compressed by the frame package.
package record

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/kbukum/parallelio/codec"
	"github.com/kbukum/parallelio/dataset"
	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/logger"
	"github.com/kbukum/parallelio/sink"
	"github.com/kbukum/parallelio/sink/frame"
)

func init() {
	sink.RegisterFactory(sink.BackendRecord, open)
	sink.RegisterReader(sink.BackendRecord, load)
}

// Sink appends records to a file.
type Sink struct {
	path string
	log  *logger.Logger

	mu     sync.Mutex
	file   *os.File
	w      *frame.Writer
	count  int64
	closed bool
}

var _ sink.ListWriter = (*Sink)(nil)

func open(_ context.Context, cfg sink.Config, _ any, log *logger.Logger) (sink.Sink, error) {
	if dir := filepath.Dir(cfg.Target); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Sink(sink.BackendRecord.String(), "open", err)
		}
	}
	f, err := os.Create(cfg.Target)
	if err != nil {
		return nil, errors.Sink(sink.BackendRecord.String(), "open", err)
	}
	w, err := frame.NewWriter(f, cfg.Record.Compression, cfg.Record.Level)
	if err != nil {
		_ = f.Close()
		return nil, errors.Sink(sink.BackendRecord.String(), "open", err)
	}
	log.Debug("record file created", logger.Fields(logger.FieldTarget, cfg.Target, "compression", cfg.Record.Compression))
	return &Sink{path: cfg.Target, log: log, file: f, w: w}, nil
}

func (s *Sink) Backend() sink.Backend { return sink.BackendRecord }

func (s *Sink) WriteBatch(_ context.Context, values []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.Sink(sink.BackendRecord.String(), "write", os.ErrClosed)
	}
	payloads, err := codec.MarshalAll(values)
	if err != nil {
		return errors.Sink(sink.BackendRecord.String(), "write", err)
	}
	for _, b := range payloads {
		if err := s.w.Write(b); err != nil {
			return errors.Sink(sink.BackendRecord.String(), "write", err)
		}
	}
	s.count += int64(len(values))
	if err := s.w.Flush(); err != nil {
		return errors.Sink(sink.BackendRecord.String(), "write", err)
	}
	return nil
}

// Close terminates the compressed stream and closes the file. Safe to call
// multiple times.
func (s *Sink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.w.Close()
	if err == nil {
		err = s.file.Sync()
	}
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Sink(sink.BackendRecord.String(), "close", err)
	}
	s.log.Debug("record file closed", logger.Fields(logger.FieldTarget, s.path, logger.FieldCount, s.count))
	return nil
}

func load(_ context.Context, cfg sink.ReadConfig, _ any, _ *logger.Logger) (dataset.Dataset, error) {
	if _, err := os.Stat(cfg.Target); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("record file", cfg.Target)
		}
		return nil, errors.Sink(sink.BackendRecord.String(), "load", err)
	}
	path, parse := cfg.Target, !cfg.Raw
	return dataset.Streamed(func(context.Context) dataset.Iterator[any] {
		return newIterator(path, parse)
	}, nil), nil
}

// iterator opens the file lazily on the first Next.
type iterator struct {
	path  string
	parse bool
	file  *os.File
	r     *frame.Reader
	done  bool
}

func newIterator(path string, parse bool) *iterator {
	return &iterator{path: path, parse: parse}
}

func (it *iterator) Next(ctx context.Context) (any, bool, error) {
	if it.done {
		return nil, false, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if it.r == nil {
		f, err := os.Open(it.path)
		if err != nil {
			return nil, false, errors.Sink(sink.BackendRecord.String(), "read", err)
		}
		r, err := frame.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, false, errors.Sink(sink.BackendRecord.String(), "read", err)
		}
		it.file, it.r = f, r
	}
	p, err := it.r.Next()
	if err == io.EOF {
		it.done = true
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Sink(sink.BackendRecord.String(), "read", err)
	}
	v, err := codec.Decode(p, it.parse)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (it *iterator) Close() error {
	it.done = true
	if it.file == nil {
		return nil
	}
	_ = it.r.Close()
	err := it.file.Close()
	it.file, it.r = nil, nil
	return err
}
