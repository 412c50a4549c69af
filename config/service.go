package config

import (
	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/logger"
)

// ServiceConfig is the base configuration of a parallelio program.
// Programs embed it in their own config structs:
//
//	type JobConfig struct {
//		config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//		Sink sink.Config `yaml:"sink" mapstructure:"sink"`
//	}
type ServiceConfig struct {
	BaseConfig `yaml:",inline" mapstructure:",squash"`
	Logging    logger.Config `yaml:"logging" mapstructure:"logging"`
}

// GetServiceConfig returns c. It is promoted to embedding structs.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
}

// ApplyDefaults applies base and logging defaults.
func (c *ServiceConfig) ApplyDefaults() {
	c.BaseConfig.ApplyDefaults()
	if c.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
}

// Validate validates base and logging configuration.
func (c *ServiceConfig) Validate() error {
	if err := c.BaseConfig.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return errors.Configuration("invalid logging config").WithCause(err)
	}
	return nil
}
