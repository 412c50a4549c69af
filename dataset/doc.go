// Package dataset defines the read side of parallelio: pull-based iterators,
// random-access sequences and the Dataset handle returned by sink readers.
//
// Iterators are lazy; no work happens until Next is called. A finite,
// indexable collection additionally implements Sequence so the dispatcher can
// shuffle it and progress can be reported against its length.
//
//	ds, err := sink.Load(ctx, readCfg, nil, log)
//	if err != nil {
//	    return err
//	}
//	defer ds.Close()
//	records, err := dataset.Collect(ctx, ds.Iter(ctx))
package dataset
