// Package storage is the object store behind the segment sink: a flat
// namespace of paths holding opaque bytes, backed by the local filesystem or
// by S3 (and S3-compatible services).
//
// Providers register themselves through RegisterFactory; import the provider
// package for its side effect before calling New:
//
//	import _ "github.com/kbukum/parallelio/storage/local"
//
//	store, err := storage.New(storage.Config{Provider: "local", BasePath: dir}, nil, log)
//
// # Configuration
//
//	object:
//	  storage:
//	    provider: "s3"
//	    bucket: "datasets"
//	    region: "eu-west-1"
package storage
