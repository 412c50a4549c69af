package sink

import (
	"strings"

	"github.com/kbukum/parallelio/errors"
)

// Backend identifies a storage adapter.
type Backend string

const (
	BackendRecord      Backend = "record"
	BackendSQLite      Backend = "sqlite"
	BackendRedis       Backend = "redis"
	BackendMemory      Backend = "memory"
	BackendMemoryRaw   Backend = "memory_raw"
	BackendKafka       Backend = "kafka"
	BackendObject      Backend = "object"
	BackendArrowStream Backend = "arrow_stream"
	BackendArrowFile   Backend = "arrow_file"
	BackendParquet     Backend = "parquet"
)

// Kind is the family of store a backend writes to.
type Kind string

const (
	KindLog      Kind = "append_log"
	KindKV       Kind = "key_value"
	KindBuffer   Kind = "in_memory"
	KindObject   Kind = "object_store"
	KindColumnar Kind = "columnar"
)

// Shape is the form a flushed batch takes.
type Shape int

const (
	// ShapeKV batches are parallel key and value slices.
	ShapeKV Shape = iota + 1
	// ShapeList batches are the values alone, in arrival order.
	ShapeList
	// ShapeColumnar batches are one slice per schema field.
	ShapeColumnar
)

func (s Shape) String() string {
	switch s {
	case ShapeKV:
		return "kv"
	case ShapeList:
		return "list"
	case ShapeColumnar:
		return "columnar"
	default:
		return "unknown"
	}
}

// Capability describes what a backend expects from the writer.
type Capability struct {
	Kind  Kind
	Shape Shape
	// DefaultBatchSize is used when no batch size is configured.
	DefaultBatchSize int
	// Summary reports whether the backend stores the record count under
	// SummaryKey after the last batch.
	Summary bool
}

var capabilities = map[Backend]Capability{
	BackendRecord:      {Kind: KindLog, Shape: ShapeList, DefaultBatchSize: 2000},
	BackendKafka:       {Kind: KindLog, Shape: ShapeKV, DefaultBatchSize: 2000},
	BackendSQLite:      {Kind: KindKV, Shape: ShapeKV, DefaultBatchSize: 100000, Summary: true},
	BackendRedis:       {Kind: KindKV, Shape: ShapeKV, DefaultBatchSize: 100000, Summary: true},
	BackendMemory:      {Kind: KindBuffer, Shape: ShapeList, DefaultBatchSize: 100000},
	BackendMemoryRaw:   {Kind: KindBuffer, Shape: ShapeList, DefaultBatchSize: 100000},
	BackendObject:      {Kind: KindObject, Shape: ShapeList, DefaultBatchSize: 2000},
	BackendArrowStream: {Kind: KindColumnar, Shape: ShapeColumnar, DefaultBatchSize: 1024},
	BackendArrowFile:   {Kind: KindColumnar, Shape: ShapeColumnar, DefaultBatchSize: 1024},
	BackendParquet:     {Kind: KindColumnar, Shape: ShapeColumnar, DefaultBatchSize: 1024},
}

// Backends lists every supported backend.
func Backends() []Backend {
	return []Backend{
		BackendRecord, BackendSQLite, BackendRedis, BackendMemory, BackendMemoryRaw,
		BackendKafka, BackendObject, BackendArrowStream, BackendArrowFile, BackendParquet,
	}
}

// ParseBackend maps a configuration string onto a Backend.
func ParseBackend(s string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := capabilities[b]; !ok {
		return "", errors.Configuration("unsupported backend %q", s)
	}
	return b, nil
}

func (b Backend) String() string { return string(b) }

// Valid reports whether b is a supported backend.
func (b Backend) Valid() bool {
	_, ok := capabilities[b]
	return ok
}

// Capability returns the backend's descriptor; the zero Capability for an
// unsupported backend.
func (b Backend) Capability() Capability {
	return capabilities[b]
}
