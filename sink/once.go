package sink

import (
	"context"
	"sync"
)

// Closer closes a sink at most once.
type Closer struct {
	sink Sink
	once sync.Once
}

// Once wraps s so that only the first Close reaches the backend. Later calls
// return nil.
func Once(s Sink) *Closer {
	return &Closer{sink: s}
}

// Close closes the wrapped sink on the first call.
func (c *Closer) Close(ctx context.Context) error {
	var err error
	c.once.Do(func() { err = c.sink.Close(ctx) })
	return err
}

// Sink returns the wrapped sink.
func (c *Closer) Sink() Sink { return c.sink }
