// Package parallel runs a per-item transform over a dataset with a pool of
// worker goroutines and hands the results to one or more aggregators.
//
// A run is laid out as
//
//	Source -> dispatcher -> input queue -> workers -> output queue -> aggregators
//
// The dispatcher numbers every item, pushes it on the bounded input queue and
// finally pushes one end-of-stream sentinel per worker. Each worker forwards
// exactly one sentinel when it sees one, and the aggregators finish once all
// of them have been counted. Results reach the aggregators in no particular
// order; the index carried with each result identifies it.
//
// A transform error stops the run: the failing worker returns a
// TRANSFORM_ERROR, the shared context is cancelled, and Apply returns without
// finalizing any collector.
//
// With Workers == 0 the same stage runs inline on the calling goroutine.
package parallel
