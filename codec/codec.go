// Package codec encodes records for byte-oriented sinks.
//
// Records are stored as JSON documents. A record that is already a []byte is
// stored untouched, so callers can write pre-encoded payloads; on the read
// side such payloads come back as []byte whenever they are not valid JSON.
package codec

import (
	json "github.com/goccy/go-json"

	"github.com/kbukum/parallelio/errors"
)

// Marshal encodes a record.
func Marshal(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.InvalidInput("record", "not JSON encodable").WithCause(err)
	}
	return data, nil
}

// Unmarshal decodes a stored record into its native value: maps decode to
// map[string]any, arrays to []any and numbers to float64. Payloads that are
// not JSON are returned as the raw bytes.
func Unmarshal(data []byte) (any, error) {
	if !json.Valid(data) {
		return data, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.InvalidInput("record", "corrupt JSON payload").WithCause(err)
	}
	return v, nil
}

// Decode returns the native value when parse is set, and a private copy of
// the stored bytes otherwise.
func Decode(data []byte, parse bool) (any, error) {
	if parse {
		return Unmarshal(data)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// MarshalAll encodes each record in values.
func MarshalAll(values []any) ([][]byte, error) {
	out := make([][]byte, len(values))
	for i, v := range values {
		b, err := Marshal(v)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}
