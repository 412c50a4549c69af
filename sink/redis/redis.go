// Package redis implements the redis backend. Records are stored as string
// keys under the configured namespace (sink.Config.Target) and the record
// count under the namespaced sink.SummaryKey.
//
// A pre-built *redis.Client may be passed as the backend config; it is not
// closed by the sink.
package redis

import (
	"context"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/parallelio/codec"
	"github.com/kbukum/parallelio/dataset"
	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/logger"
	"github.com/kbukum/parallelio/sink"
)

func init() {
	sink.RegisterFactory(sink.BackendRedis, open)
	sink.RegisterReader(sink.BackendRedis, load)
}

// Sink writes key/value batches through pipelines.
type Sink struct {
	rdb    *goredis.Client
	owned  bool
	prefix string
	ttl    time.Duration
	log    *logger.Logger

	mu     sync.Mutex
	closed bool
}

var (
	_ sink.KVWriter      = (*Sink)(nil)
	_ sink.SummaryWriter = (*Sink)(nil)
	_ sink.Pinger        = (*Sink)(nil)
)

func open(ctx context.Context, cfg sink.Config, backendCfg any, log *logger.Logger) (sink.Sink, error) {
	rdb, owned, err := clientFor(cfg.Redis, backendCfg, log)
	if err != nil {
		return nil, err
	}
	s := &Sink{rdb: rdb, owned: owned, prefix: cfg.Target, ttl: sink.ParseDuration(cfg.Redis.TTL), log: log}
	if err := s.Ping(ctx); err != nil {
		_ = s.Close(ctx)
		return nil, errors.ConnectionFailed("redis", err)
	}
	return s, nil
}

func (s *Sink) Backend() sink.Backend { return sink.BackendRedis }

func (s *Sink) PutBatch(ctx context.Context, keys []string, values []any) error {
	if len(keys) != len(values) {
		return errors.Sink(sink.BackendRedis.String(), "put", errors.InvalidInput("keys", "length differs from values"))
	}
	encoded := make([][]byte, len(values))
	for i, v := range values {
		b, err := codec.Marshal(v)
		if err != nil {
			return errors.Sink(sink.BackendRedis.String(), "put", err)
		}
		encoded[i] = b
	}
	_, err := s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for i, k := range keys {
			p.Set(ctx, s.prefix+k, encoded[i], s.ttl)
		}
		return nil
	})
	if err != nil {
		return errors.Sink(sink.BackendRedis.String(), "put", err)
	}
	return nil
}

func (s *Sink) PutSummary(ctx context.Context, total int64) error {
	if err := s.rdb.Set(ctx, s.prefix+sink.SummaryKey, sink.EncodeSummary(total), s.ttl).Err(); err != nil {
		return errors.Sink(sink.BackendRedis.String(), "summary", err)
	}
	return nil
}

// Ping verifies the connection is alive.
func (s *Sink) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close releases the client when the sink created it. Safe to call multiple
// times.
func (s *Sink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if !s.owned {
		return nil
	}
	s.log.Debug("closing redis connection")
	if err := s.rdb.Close(); err != nil {
		return errors.Sink(sink.BackendRedis.String(), "close", err)
	}
	return nil
}

func load(ctx context.Context, cfg sink.ReadConfig, backendCfg any, log *logger.Logger) (dataset.Dataset, error) {
	rdb, owned, err := clientFor(cfg.Redis, backendCfg, log)
	if err != nil {
		return nil, err
	}
	closer := func() error {
		if owned {
			return rdb.Close()
		}
		return nil
	}
	prefix := cfg.Target
	get := func(ctx context.Context, key string) ([]byte, error) {
		b, err := rdb.Get(ctx, prefix+key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return nil, errors.NotFound("key", prefix+key)
		}
		if err != nil {
			return nil, errors.Sink(sink.BackendRedis.String(), "get", err)
		}
		return b, nil
	}
	ds, err := sink.LoadKV(ctx, get, cfg.Raw, closer)
	if err != nil {
		_ = closer()
		return nil, err
	}
	return ds, nil
}
