package parallel

// Indexed pairs a payload with the index assigned to it at dispatch.
type Indexed[T any] struct {
	Index   int64
	Payload T
	end     bool
}

// SentinelIndex is the Index carried by end-of-stream markers.
const SentinelIndex int64 = -1

// Sentinel returns the end-of-stream marker.
func Sentinel[T any]() Indexed[T] {
	return Indexed[T]{Index: SentinelIndex, end: true}
}

// IsSentinel reports whether it marks the end of the stream.
func (it Indexed[T]) IsSentinel() bool { return it.end }
