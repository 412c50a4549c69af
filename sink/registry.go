package sink

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/parallelio/dataset"
	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/logger"
	"github.com/kbukum/parallelio/resilience"
)

// Factory opens a backend. backendCfg carries an optional pre-built client
// understood by the backend, such as a *redis.Client.
type Factory func(ctx context.Context, cfg Config, backendCfg any, log *logger.Logger) (Sink, error)

// ReaderFactory opens a finished target for reading.
type ReaderFactory func(ctx context.Context, cfg ReadConfig, backendCfg any, log *logger.Logger) (dataset.Dataset, error)

var (
	mu        sync.RWMutex
	factories = make(map[Backend]Factory)
	readers   = make(map[Backend]ReaderFactory)
)

// RegisterFactory makes a backend available to Open. Backend packages call
// it from init.
func RegisterFactory(b Backend, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[b] = f
}

// RegisterReader makes a backend available to Load.
func RegisterReader(b Backend, f ReaderFactory) {
	mu.Lock()
	defer mu.Unlock()
	readers[b] = f
}

// Registered lists the backends with a writer factory.
func Registered() []Backend {
	mu.RLock()
	defer mu.RUnlock()
	var out []Backend
	for _, b := range Backends() {
		if _, ok := factories[b]; ok {
			out = append(out, b)
		}
	}
	return out
}

// Open validates cfg and opens the selected backend. The returned sink
// implements the writer interface matching its Capability.Shape.
func Open(ctx context.Context, cfg Config, backendCfg any, log *logger.Logger) (Sink, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mu.RLock()
	f, ok := factories[cfg.Backend]
	mu.RUnlock()
	if !ok {
		return nil, errors.Configuration("sink: backend %q not registered", cfg.Backend)
	}

	if log == nil {
		log = logger.Nop()
	}
	l := log.WithComponent("sink." + cfg.Backend.String())
	l.Debug("opening sink", logger.Fields(logger.FieldBackend, cfg.Backend.String(), logger.FieldTarget, cfg.Target))

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Retry.MaxAttempts
	retry.InitialBackoff = ParseDuration(cfg.Retry.InitialBackoff)
	retry.MaxBackoff = ParseDuration(cfg.Retry.MaxBackoff)
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		l.Warn("open failed, retrying", logger.Fields(
			"attempt", attempt,
			logger.FieldError, err.Error(),
			"backoff", backoff.String(),
		))
	}
	s, err := resilience.Retry(ctx, retry, func() (Sink, error) {
		return f(ctx, cfg, backendCfg, l)
	})
	if err != nil {
		return nil, err
	}
	if err := CheckShape(s); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	return s, nil
}

// CheckShape verifies that s implements the writer its backend's shape needs.
func CheckShape(s Sink) error {
	b := s.Backend()
	var ok bool
	switch b.Capability().Shape {
	case ShapeKV:
		_, ok = s.(KVWriter)
	case ShapeList:
		_, ok = s.(ListWriter)
	case ShapeColumnar:
		_, ok = s.(ColumnWriter)
	}
	if !ok {
		return errors.Configuration("sink: %s does not implement the %s writer", b, b.Capability().Shape)
	}
	if b.Capability().Summary {
		if _, ok := s.(SummaryWriter); !ok {
			return errors.Configuration("sink: %s does not implement the summary writer", b)
		}
	}
	return nil
}

// Load opens a finished target as a dataset.
func Load(ctx context.Context, cfg ReadConfig, backendCfg any, log *logger.Logger) (dataset.Dataset, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mu.RLock()
	f, ok := readers[cfg.Backend]
	mu.RUnlock()
	if !ok {
		return nil, errors.Configuration("sink: no reader registered for backend %q", cfg.Backend)
	}

	if log == nil {
		log = logger.Nop()
	}
	l := log.WithComponent("sink." + cfg.Backend.String())
	l.Debug("loading target", logger.Fields(logger.FieldBackend, cfg.Backend.String(), logger.FieldTarget, cfg.Target))
	return f(ctx, cfg, backendCfg, l)
}
