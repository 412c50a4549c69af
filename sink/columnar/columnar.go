// Package columnar implements the arrow_stream, arrow_file and parquet
// backends. Batches arrive as columns in schema order and are written as one
// Arrow record each.
package columnar

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/logger"
	"github.com/kbukum/parallelio/sink"
)

func init() {
	sink.RegisterFactory(sink.BackendArrowStream, open)
	sink.RegisterFactory(sink.BackendArrowFile, open)
	sink.RegisterFactory(sink.BackendParquet, open)

	sink.RegisterReader(sink.BackendArrowStream, loadStream)
	sink.RegisterReader(sink.BackendArrowFile, loadFile)
	sink.RegisterReader(sink.BackendParquet, loadParquet)
}

// recordWriter is satisfied by the ipc stream, ipc file and pqarrow writers.
type recordWriter interface {
	Write(rec arrow.Record) error
	Close() error
}

// Sink writes column batches to a file.
type Sink struct {
	backend sink.Backend
	schema  sink.Schema
	arrow   *arrow.Schema
	mem     memory.Allocator
	path    string
	log     *logger.Logger

	mu     sync.Mutex
	file   *os.File
	w      recordWriter
	rows   int64
	closed bool
}

var _ sink.ColumnWriter = (*Sink)(nil)

func codec(name string) compress.Compression {
	switch name {
	case "zstd":
		return compress.Codecs.Zstd
	case "gzip":
		return compress.Codecs.Gzip
	case "none":
		return compress.Codecs.Uncompressed
	default:
		return compress.Codecs.Snappy
	}
}

func newWriter(b sink.Backend, f io.Writer, schema *arrow.Schema, opts sink.ColumnarOptions, mem memory.Allocator) (recordWriter, error) {
	switch b {
	case sink.BackendArrowStream:
		return ipc.NewWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(mem)), nil
	case sink.BackendArrowFile:
		return ipc.NewFileWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	default:
		props := parquet.NewWriterProperties(
			parquet.WithCompression(codec(opts.Compression)),
			parquet.WithMaxRowGroupLength(opts.RowGroupSize),
			parquet.WithAllocator(mem),
		)
		return pqarrow.NewFileWriter(schema, f, props, pqarrow.DefaultWriterProps())
	}
}

func open(_ context.Context, cfg sink.Config, _ any, log *logger.Logger) (sink.Sink, error) {
	schema := cfg.Columnar.Schema()
	as, err := ArrowSchema(schema)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(cfg.Target); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Sink(cfg.Backend.String(), "open", err)
		}
	}
	f, err := os.Create(cfg.Target)
	if err != nil {
		return nil, errors.Sink(cfg.Backend.String(), "open", err)
	}
	mem := memory.NewGoAllocator()
	w, err := newWriter(cfg.Backend, f, as, cfg.Columnar, mem)
	if err != nil {
		_ = f.Close()
		return nil, errors.Sink(cfg.Backend.String(), "open", err)
	}
	log.Debug("columnar file created", logger.Fields(logger.FieldTarget, cfg.Target, "fields", len(schema.Fields)))
	return &Sink{
		backend: cfg.Backend,
		schema:  schema,
		arrow:   as,
		mem:     mem,
		path:    cfg.Target,
		log:     log,
		file:    f,
		w:       w,
	}, nil
}

func (s *Sink) Backend() sink.Backend { return s.backend }

func (s *Sink) Schema() sink.Schema { return s.schema }

func (s *Sink) WriteColumns(_ context.Context, names []string, columns [][]any) error {
	if !slices.Equal(names, s.schema.Names()) || len(columns) != len(names) {
		return errors.Sink(s.backend.String(), "write", errors.InvalidInput("columns", "do not match the schema"))
	}
	for _, col := range columns[1:] {
		if len(col) != len(columns[0]) {
			return errors.Sink(s.backend.String(), "write", errors.InvalidInput("columns", "have different lengths"))
		}
	}

	rec, err := buildRecord(s.mem, s.arrow, columns)
	if err != nil {
		return errors.Sink(s.backend.String(), "write", err)
	}
	defer rec.Release()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.Sink(s.backend.String(), "write", os.ErrClosed)
	}
	if err := s.w.Write(rec); err != nil {
		return errors.Sink(s.backend.String(), "write", err)
	}
	s.rows += rec.NumRows()
	return nil
}

// Close writes the file footer and closes the file. Safe to call multiple
// times.
func (s *Sink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.w.Close()
	if cerr := s.file.Close(); err == nil && !errors.Is(cerr, os.ErrClosed) {
		err = cerr
	}
	if err != nil {
		return errors.Sink(s.backend.String(), "close", err)
	}
	s.log.Debug("columnar file closed", logger.Fields(logger.FieldTarget, s.path, logger.FieldCount, s.rows))
	return nil
}
