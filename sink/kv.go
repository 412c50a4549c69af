package sink

import (
	"context"
	"strconv"
	"strings"

	"github.com/kbukum/parallelio/codec"
	"github.com/kbukum/parallelio/dataset"
	"github.com/kbukum/parallelio/errors"
)

// KVGetter fetches the stored bytes of key. A missing key is reported with
// an errors.NotFound error.
type KVGetter func(ctx context.Context, key string) ([]byte, error)

// LoadKV reads SummaryKey and exposes Key(0)..Key(total-1) as a random-access
// dataset. Records are decoded by the codec package unless raw is set.
func LoadKV(ctx context.Context, get KVGetter, raw bool, closer func() error) (dataset.RandomAccess, error) {
	b, err := get(ctx, SummaryKey)
	if err != nil {
		return nil, err
	}
	total, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil || total < 0 {
		return nil, errors.InvalidInput(SummaryKey, "not a record count: "+string(b))
	}
	return dataset.Indexed(&kvSequence{get: get, total: int(total), parse: !raw}, closer), nil
}

// EncodeSummary encodes a record count for SummaryKey.
func EncodeSummary(total int64) []byte {
	return strconv.AppendInt(nil, total, 10)
}

type kvSequence struct {
	get   KVGetter
	total int
	parse bool
}

func (s *kvSequence) Len() int { return s.total }

func (s *kvSequence) At(ctx context.Context, i int) (any, error) {
	if i < 0 || i >= s.total {
		return nil, errors.NotFound("record", Key(int64(i)))
	}
	b, err := s.get(ctx, Key(int64(i)))
	if err != nil {
		return nil, err
	}
	return codec.Decode(b, s.parse)
}
