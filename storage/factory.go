package storage

import (
	"context"
	"sync"

	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/logger"
)

// Factory creates a Storage from the shared config. providerCfg carries an
// optional pre-built client understood by the provider.
type Factory func(ctx context.Context, cfg Config, providerCfg any, log *logger.Logger) (Storage, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory makes a provider available to New. Provider packages call
// it from init.
func RegisterFactory(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// New creates the Storage selected by cfg.Provider.
func New(ctx context.Context, cfg Config, providerCfg any, log *logger.Logger) (Storage, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factoriesMu.RLock()
	f, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, errors.Configuration("storage: provider %q not registered", cfg.Provider)
	}

	if log == nil {
		log = logger.Nop()
	}
	l := log.WithComponent("storage")
	l.Debug("initializing storage", logger.Fields("provider", cfg.Provider))
	return f(ctx, cfg, providerCfg, l)
}
