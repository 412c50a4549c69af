package main

import (
	"github.com/kbukum/parallelio/config"
	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/observability"
	"github.com/kbukum/parallelio/parallel"
	"github.com/kbukum/parallelio/sink"
	"github.com/kbukum/parallelio/version"
	"github.com/kbukum/parallelio/writer"
)

// Config is the configuration of one parallelio run.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Input         InputConfig          `yaml:"input" mapstructure:"input"`
	Transform     TransformConfig      `yaml:"transform" mapstructure:"transform"`
	Parallel      parallel.Config      `yaml:"parallel" mapstructure:"parallel"`
	Sink          sink.Config          `yaml:"sink" mapstructure:"sink"`
	Write         writer.Config        `yaml:"write" mapstructure:"write"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// InputConfig selects the items to process: JSON lines files read in
// order, or the integers 0..Range-1 when Paths is empty.
type InputConfig struct {
	Paths []string `yaml:"paths" mapstructure:"paths"`
	Range int      `yaml:"range" mapstructure:"range"`
	Limit int      `yaml:"limit" mapstructure:"limit"`
}

// TransformConfig names a built-in transform and its arguments.
type TransformConfig struct {
	Name   string `yaml:"name" mapstructure:"name"`
	Field  string `yaml:"field" mapstructure:"field"`
	Repeat int    `yaml:"repeat" mapstructure:"repeat"`
}

func defaultConfig() Config {
	cfg := Config{Parallel: parallel.DefaultConfig()}
	cfg.Name = serviceName
	cfg.Version = version.Get().Short()
	cfg.Observability.Version = cfg.Version
	return cfg
}

func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Transform.Name == "" {
		c.Transform.Name = "identity"
	}
	if c.Transform.Field == "" {
		c.Transform.Field = "value"
	}
	if c.Transform.Repeat <= 0 {
		c.Transform.Repeat = 2
	}
	c.Parallel.ApplyDefaults()
	c.Sink.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if len(c.Input.Paths) == 0 && c.Input.Range < 0 {
		return errors.Configuration("input.range must not be negative")
	}
	if c.Input.Limit < 0 {
		return errors.Configuration("input.limit must not be negative")
	}
	if _, ok := transforms[c.Transform.Name]; !ok {
		return errors.Configuration("unknown transform %q", c.Transform.Name)
	}
	if err := c.Parallel.Validate(); err != nil {
		return err
	}
	if err := c.Sink.Validate(); err != nil {
		return err
	}
	if err := c.Write.Validate(); err != nil {
		return err
	}
	return c.Observability.Validate()
}
