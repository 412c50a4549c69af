package observability

import (
	"context"
	"errors"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/parallelio/component"
	"github.com/kbukum/parallelio/logger"
)

// Component installs the telemetry providers on Start and flushes them on Stop.
type Component struct {
	serviceName string
	cfg         Config
	log         *logger.Logger
	tp          *sdktrace.TracerProvider
	mp          *sdkmetric.MeterProvider
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates the telemetry component. It does nothing when
// cfg.Enabled is false.
func NewComponent(serviceName string, cfg Config, log *logger.Logger) *Component {
	return &Component{serviceName: serviceName, cfg: cfg, log: log.WithComponent("telemetry")}
}

func (c *Component) Name() string { return "telemetry" }

func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}
	tp, err := InitTracer(ctx, c.serviceName, c.cfg)
	if err != nil {
		return err
	}
	c.tp = tp
	mp, err := InitMeter(ctx, c.serviceName, c.cfg)
	if err != nil {
		return err
	}
	c.mp = mp
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	var errs []error
	if c.mp != nil {
		errs = append(errs, c.mp.Shutdown(ctx))
		c.mp = nil
	}
	if c.tp != nil {
		errs = append(errs, c.tp.Shutdown(ctx))
		c.tp = nil
	}
	if err := errors.Join(errs...); err != nil {
		c.log.Warn("telemetry shutdown incomplete", logger.ErrorFields("shutdown", err))
		return err
	}
	return nil
}

func (c *Component) Health(context.Context) component.Health {
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

func (c *Component) Describe() component.Description {
	details := "disabled"
	if c.cfg.Enabled {
		details = fmt.Sprintf("otlp http %s sample=%.2f", c.cfg.Endpoint, c.cfg.SampleRate)
	}
	return component.Description{Name: "Telemetry", Type: "telemetry", Details: details}
}
