// Package resilience retries operations that fail with a retryable error.
//
// Sinks use it to reconnect while opening a remote backend:
//
//	s, err := resilience.Retry(ctx, cfg, func() (sink.Sink, error) {
//		return factory(ctx, sinkCfg, backendCfg, log)
//	})
//
// Only errors marked retryable (CONNECTION_FAILED, TIMEOUT) are retried by
// default. Batch writes are never retried.
package resilience
