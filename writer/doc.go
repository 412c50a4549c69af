// Package writer runs a parallel transform whose results are batched into a
// sink.
//
// A Writer owns one opened sink. Write dispatches the source through
// parallel.Apply; every aggregator gets its own collector that buffers
// emitted records under generated keys ("input0", "input1", ...) and flushes
// a batch whenever the buffer reaches the batch size. The batch takes the
// shape the backend advertises: key/value pairs, a plain list, or columns
// pivoted over the configured schema.
//
// The hook's return value decides what is stored: nil drops the item,
// Records or []any emit one record per element, anything else is one record.
//
//	w, err := writer.Open(ctx, sink.Config{Backend: sink.BackendRedis, Target: "ds:"}, nil, writer.Config{}, log)
//	if err != nil {
//		return err
//	}
//	res, err := writer.Write(ctx, w, parallel.FromSlice(items), hook, args, parallel.DefaultConfig())
//
// After the last aggregator finishes, key/value backends receive the record
// count under sink.SummaryKey and the sink is closed exactly once.
package writer
