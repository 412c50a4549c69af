package parallel

import (
	"github.com/kbukum/parallelio/validation"
)

// Config controls the shape of a run.
type Config struct {
	// Workers is the number of transform goroutines. Zero runs the stage
	// inline without queues.
	Workers int `yaml:"workers" mapstructure:"workers" validate:"gte=0"`
	// PostWorkers is the number of aggregator goroutines.
	PostWorkers int `yaml:"post_workers" mapstructure:"post_workers" validate:"gte=1"`
	// InputQueueSize bounds the dispatcher-to-worker queue; <= 0 is unbounded.
	InputQueueSize int `yaml:"input_queue_size" mapstructure:"input_queue_size"`
	// OutputQueueSize bounds the worker-to-aggregator queue; <= 0 is unbounded.
	OutputQueueSize int `yaml:"output_queue_size" mapstructure:"output_queue_size"`
	// Shuffle permutes the dispatch order of finite sources.
	Shuffle bool `yaml:"shuffle" mapstructure:"shuffle"`
	// Desc labels progress logs and metrics.
	Desc string `yaml:"desc" mapstructure:"desc"`
	// ProgressEvery logs progress every n dispatched items. Zero picks a
	// default from the source size.
	ProgressEvery int `yaml:"progress_every" mapstructure:"progress_every" validate:"gte=0"`
	// Seed makes Shuffle deterministic. Zero draws a random seed.
	Seed uint64 `yaml:"seed" mapstructure:"seed"`
}

// DefaultConfig returns the stock run shape.
func DefaultConfig() Config {
	return Config{
		Workers:         4,
		PostWorkers:     1,
		InputQueueSize:  200,
		OutputQueueSize: 100,
		Shuffle:         true,
		Desc:            "parallel",
	}
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.PostWorkers <= 0 {
		c.PostWorkers = 1
	}
	if c.Desc == "" {
		c.Desc = "parallel"
	}
}

// Validate reports a CONFIGURATION_ERROR for out-of-range values.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

const (
	defaultIteratorProgress = 10000
	progressFraction        = 10
)

func (c *Config) progressEvery(total int) int {
	if c.ProgressEvery > 0 {
		return c.ProgressEvery
	}
	if total < 0 {
		return defaultIteratorProgress
	}
	return max(total/progressFraction, 1)
}
