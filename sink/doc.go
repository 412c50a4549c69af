// Package sink is the storage boundary of parallelio. A Sink receives whole
// batches from the writer and hands them to a storage library; it never
// implements storage itself.
//
// Every backend is a member of the closed Backend enum. Its Capability tells
// the writer which batch shape to produce (key-value pairs, a plain list of
// records, or named columns), the batch size to use when none is configured,
// and whether a summary record must be written after the last batch.
//
// Backends live in sub-packages and register a writer factory, and usually a
// reader factory, from init. Importing sink/all registers all of them:
//
//	import _ "github.com/kbukum/parallelio/sink/all"
//
//	s, err := sink.Open(ctx, sink.Config{Backend: sink.BackendRedis, Target: "ds:"}, nil, log)
//
// Load reads a finished target back as a dataset.Dataset.
package sink
