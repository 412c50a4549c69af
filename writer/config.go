package writer

import (
	"github.com/kbukum/parallelio/validation"
)

// Config tunes batching.
type Config struct {
	// BatchSize is the number of records per flush. Zero uses the backend's
	// default, reduced to half the source length for short finite sources.
	// A positive value is used as is and is never reduced.
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size" validate:"gte=0"`
}

// Validate reports a CONFIGURATION_ERROR for a negative batch size.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// ResolveBatchSize picks the batch size of a run. A positive configured
// value wins. Otherwise the backend hint is used, halved to length/2 when the
// source has a known length no larger than the hint. The result is at least 1.
func ResolveBatchSize(configured, hint, length int) int {
	size := configured
	if size <= 0 {
		size = hint
		if length >= 0 && size >= length {
			size = length / 2
		}
	}
	return max(size, 1)
}
