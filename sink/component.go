package sink

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/parallelio/component"
	"github.com/kbukum/parallelio/logger"
)

// Pinger is implemented by sinks backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Component opens a sink on Start and closes it on Stop.
type Component struct {
	cfg        Config
	backendCfg any
	log        *logger.Logger

	mu     sync.RWMutex
	sink   Sink
	closer *Closer
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a lifecycle-managed sink.
func NewComponent(cfg Config, backendCfg any, log *logger.Logger) *Component {
	if log == nil {
		log = logger.Nop()
	}
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, backendCfg: backendCfg, log: log}
}

func (c *Component) Name() string { return "sink." + c.cfg.Backend.String() }

func (c *Component) Start(ctx context.Context) error {
	s, err := Open(ctx, c.cfg, c.backendCfg, c.log)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.sink = s
	c.closer = Once(s)
	c.mu.Unlock()
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.mu.RLock()
	closer := c.closer
	c.mu.RUnlock()
	if closer == nil {
		return nil
	}
	return closer.Close(ctx)
}

func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	s := c.Sink()
	if s == nil {
		h.Status = component.StatusUnhealthy
		h.Message = "not opened"
		return h
	}
	if p, ok := s.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			h.Status = component.StatusUnhealthy
			h.Message = err.Error()
		}
	}
	return h
}

func (c *Component) Describe() component.Description {
	capb := c.cfg.Backend.Capability()
	return component.Description{
		Name:    "Sink",
		Type:    "sink",
		Details: fmt.Sprintf("%s target=%q shape=%s batch=%d", c.cfg.Backend, c.cfg.Target, capb.Shape, capb.DefaultBatchSize),
	}
}

// Sink returns the opened sink, or nil before Start.
func (c *Component) Sink() Sink {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sink
}

// Closer returns the closer shared with Stop, or nil before Start.
func (c *Component) Closer() *Closer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closer
}
