// Package kafka implements the kafka backend: an append-only log where each
// record becomes one message keyed by its generated key on the topic named
// by sink.Config.Target. The backend has no reader.
package kafka

import (
	"context"
	"fmt"
	"sync"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/parallelio/codec"
	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/logger"
	"github.com/kbukum/parallelio/sink"
)

func init() {
	sink.RegisterFactory(sink.BackendKafka, open)
}

// MessageWriter is the part of *kafka.Writer the sink uses. A MessageWriter
// passed as the backend config replaces the writer built from options; it
// must already target the topic.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

var contentType = kafkago.Header{Key: "content-type", Value: []byte("application/json")}

// Sink publishes batches as messages.
type Sink struct {
	w     MessageWriter
	topic string
	log   *logger.Logger

	mu     sync.Mutex
	closed bool
	sent   int64
}

var _ sink.KVWriter = (*Sink)(nil)

func open(_ context.Context, cfg sink.Config, backendCfg any, log *logger.Logger) (sink.Sink, error) {
	s := &Sink{topic: cfg.Target, log: log}
	switch v := backendCfg.(type) {
	case nil:
		w, err := newWriter(cfg, log)
		if err != nil {
			return nil, err
		}
		s.w = w
	case MessageWriter:
		s.w = v
	default:
		return nil, errors.Configuration("kafka: unexpected backend config %T", backendCfg)
	}
	return s, nil
}

func newWriter(cfg sink.Config, log *logger.Logger) (*kafkago.Writer, error) {
	opts := cfg.Kafka
	transport, err := newTransport(opts)
	if err != nil {
		return nil, errors.Configuration("kafka transport: %v", err)
	}
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(opts.Brokers...),
		Topic:        cfg.Target,
		Transport:    transport,
		Balancer:     &kafkago.Hash{},
		BatchSize:    cfg.Backend.Capability().DefaultBatchSize,
		BatchTimeout: sink.ParseDuration(opts.BatchTimeout),
		RequiredAcks: kafkago.RequiredAcks(opts.RequiredAcks),
		Compression:  compression(opts.Compression),
		WriteTimeout: sink.ParseDuration(opts.WriteTimeout),
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error("writer: " + fmt.Sprintf(msg, args...))
		}),
	}
	log.Info("kafka writer initialized", logger.Fields(
		"brokers", opts.Brokers,
		"topic", cfg.Target,
		"compression", opts.Compression,
	))
	return w, nil
}

func (s *Sink) Backend() sink.Backend { return sink.BackendKafka }

func (s *Sink) PutBatch(ctx context.Context, keys []string, values []any) error {
	if len(keys) != len(values) {
		return errors.Sink(sink.BackendKafka.String(), "put", errors.InvalidInput("keys", "length differs from values"))
	}
	msgs := make([]kafkago.Message, len(keys))
	for i, k := range keys {
		b, err := codec.Marshal(values[i])
		if err != nil {
			return errors.Sink(sink.BackendKafka.String(), "put", err)
		}
		msgs[i] = kafkago.Message{Key: []byte(k), Value: b, Headers: []kafkago.Header{contentType}}
	}
	if err := s.w.WriteMessages(ctx, msgs...); err != nil {
		return errors.Sink(sink.BackendKafka.String(), "put", err)
	}
	s.mu.Lock()
	s.sent += int64(len(msgs))
	s.mu.Unlock()
	return nil
}

// Close flushes pending messages and closes the writer. Safe to call
// multiple times.
func (s *Sink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.log.Info("kafka sink closing", logger.Fields("topic", s.topic, logger.FieldCount, s.sent))
	if err := s.w.Close(); err != nil {
		return errors.Sink(sink.BackendKafka.String(), "close", err)
	}
	return nil
}
