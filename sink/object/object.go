// Package object implements the object backend. Every batch becomes one
// compressed segment object under the configured prefix, and a manifest is
// written on Close. Objects are stored through the storage package, on the
// local filesystem or in S3.
package object

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kbukum/parallelio/codec"
	"github.com/kbukum/parallelio/dataset"
	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/logger"
	"github.com/kbukum/parallelio/sink"
	"github.com/kbukum/parallelio/sink/frame"
	"github.com/kbukum/parallelio/storage"
	_ "github.com/kbukum/parallelio/storage/local"
	_ "github.com/kbukum/parallelio/storage/s3"
)

// ManifestName is the object written under the prefix when a sink closes.
const ManifestName = "_MANIFEST"

const segmentPrefix = "part-"

func init() {
	sink.RegisterFactory(sink.BackendObject, open)
	sink.RegisterReader(sink.BackendObject, load)
}

// Manifest summarizes a finished target.
type Manifest struct {
	Segments int64  `json:"segments"`
	Records  int64  `json:"records"`
	Codec    string `json:"codec"`
}

// Sink uploads each batch as a segment.
type Sink struct {
	store  storage.Storage
	prefix string
	codec  string
	log    *logger.Logger

	segments atomic.Int64
	records  atomic.Int64

	mu     sync.Mutex
	closed bool
}

var _ sink.ListWriter = (*Sink)(nil)

func storeFor(ctx context.Context, cfg sink.Config, backendCfg any, log *logger.Logger) (storage.Storage, error) {
	if st, ok := backendCfg.(storage.Storage); ok {
		return st, nil
	}
	return storage.New(ctx, cfg.Object.Storage, backendCfg, log)
}

func segmentPath(prefix string, n int64) string {
	return fmt.Sprintf("%s/%s%08d.seg", prefix, segmentPrefix, n)
}

func manifestPath(prefix string) string {
	return prefix + "/" + ManifestName
}

func open(ctx context.Context, cfg sink.Config, backendCfg any, log *logger.Logger) (sink.Sink, error) {
	st, err := storeFor(ctx, cfg, backendCfg, log)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimSuffix(cfg.Target, "/")

	stale, err := st.List(ctx, prefix+"/")
	if err != nil {
		return nil, errors.Sink(sink.BackendObject.String(), "open", err)
	}
	for _, obj := range stale {
		if err := st.Delete(ctx, obj.Path); err != nil {
			return nil, errors.Sink(sink.BackendObject.String(), "open", err)
		}
	}
	if len(stale) > 0 {
		log.Info("removed previous objects", logger.Fields(logger.FieldTarget, prefix, logger.FieldCount, len(stale)))
	}
	return &Sink{store: st, prefix: prefix, codec: cfg.Object.Compression, log: log}, nil
}

func (s *Sink) Backend() sink.Backend { return sink.BackendObject }

func (s *Sink) WriteBatch(ctx context.Context, values []any) error {
	encoded, err := codec.MarshalAll(values)
	if err != nil {
		return errors.Sink(sink.BackendObject.String(), "write", err)
	}
	data, err := frame.Encode(encoded, s.codec, 0)
	if err != nil {
		return errors.Sink(sink.BackendObject.String(), "write", err)
	}
	n := s.segments.Add(1) - 1
	if err := s.store.Upload(ctx, segmentPath(s.prefix, n), bytes.NewReader(data)); err != nil {
		return errors.Sink(sink.BackendObject.String(), "write", err)
	}
	s.records.Add(int64(len(values)))
	return nil
}

// Close writes the manifest. Safe to call multiple times.
func (s *Sink) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	m := Manifest{Segments: s.segments.Load(), Records: s.records.Load(), Codec: s.codec}
	b, err := codec.Marshal(m)
	if err != nil {
		return errors.Sink(sink.BackendObject.String(), "close", err)
	}
	if err := s.store.Upload(ctx, manifestPath(s.prefix), bytes.NewReader(b)); err != nil {
		return errors.Sink(sink.BackendObject.String(), "close", err)
	}
	s.log.Debug("object sink closed", logger.Fields(logger.FieldTarget, s.prefix, "segments", m.Segments, logger.FieldCount, m.Records))
	return nil
}

func load(ctx context.Context, cfg sink.ReadConfig, backendCfg any, log *logger.Logger) (dataset.Dataset, error) {
	st, err := storeFor(ctx, cfg.Config, backendCfg, log)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimSuffix(cfg.Target, "/")
	ok, err := st.Exists(ctx, manifestPath(prefix))
	if err != nil {
		return nil, errors.Sink(sink.BackendObject.String(), "load", err)
	}
	if !ok {
		return nil, errors.NotFound("object manifest", manifestPath(prefix))
	}
	parse := !cfg.Raw
	return dataset.Streamed(func(ctx context.Context) dataset.Iterator[any] {
		return &iterator{store: st, prefix: prefix, parse: parse}
	}, nil), nil
}

// iterator lists segments on the first Next and downloads them one at a time.
type iterator struct {
	store  storage.Storage
	prefix string
	parse  bool

	paths   []string
	listed  bool
	pending [][]byte
}

func (it *iterator) Next(ctx context.Context) (any, bool, error) {
	if !it.listed {
		objs, err := it.store.List(ctx, it.prefix+"/"+segmentPrefix)
		if err != nil {
			return nil, false, errors.Sink(sink.BackendObject.String(), "list", err)
		}
		for _, o := range objs {
			it.paths = append(it.paths, o.Path)
		}
		it.listed = true
	}
	for len(it.pending) == 0 {
		if len(it.paths) == 0 {
			return nil, false, nil
		}
		frames, err := it.fetch(ctx, it.paths[0])
		if err != nil {
			return nil, false, err
		}
		it.paths = it.paths[1:]
		it.pending = frames
	}
	p := it.pending[0]
	it.pending = it.pending[1:]
	v, err := codec.Decode(p, it.parse)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (it *iterator) fetch(ctx context.Context, path string) ([][]byte, error) {
	rc, err := it.store.Download(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Sink(sink.BackendObject.String(), "read", err)
	}
	frames, err := frame.ReadAll(data)
	if err != nil {
		return nil, errors.Sink(sink.BackendObject.String(), "read", err)
	}
	return frames, nil
}

func (it *iterator) Close() error {
	it.paths, it.pending = nil, nil
	it.listed = true
	return nil
}
