package kafka

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/kbukum/parallelio/sink"
)

// newTransport builds a kafka-go transport with optional TLS and SASL.
func newTransport(opts sink.KafkaOptions) (*kafkago.Transport, error) {
	transport := &kafkago.Transport{
		IdleTimeout: sink.ParseDuration(opts.IdleTimeout),
		MetadataTTL: sink.ParseDuration(opts.MetadataTTL),
	}
	if opts.EnableTLS {
		tc, err := buildTLSConfig(opts)
		if err != nil {
			return nil, fmt.Errorf("TLS config: %w", err)
		}
		transport.TLS = tc
	}
	if opts.EnableSASL {
		m, err := buildSASLMechanism(opts)
		if err != nil {
			return nil, fmt.Errorf("SASL config: %w", err)
		}
		transport.SASL = m
	}
	return transport, nil
}

func buildTLSConfig(opts sink.KafkaOptions) (*tls.Config, error) {
	tc := &tls.Config{
		InsecureSkipVerify: opts.TLSSkipVerify,
		MinVersion:         tls.VersionTLS12,
	}
	if opts.TLSCAFile != "" {
		caCert, err := os.ReadFile(opts.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("parse CA certificate")
		}
		tc.RootCAs = pool
	}
	if opts.TLSCertFile != "" && opts.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(opts.TLSCertFile, opts.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tc.Certificates = []tls.Certificate{cert}
	}
	return tc, nil
}

func buildSASLMechanism(opts sink.KafkaOptions) (sasl.Mechanism, error) {
	switch opts.SASLMechanism {
	case "PLAIN":
		return plain.Mechanism{Username: opts.Username, Password: opts.Password}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, opts.Username, opts.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, opts.Username, opts.Password)
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %s", opts.SASLMechanism)
	}
}

// compression maps a codec name onto kafka-go; unknown names fall back to
// snappy.
func compression(name string) kafkago.Compression {
	switch name {
	case "gzip":
		return kafkago.Gzip
	case "lz4":
		return kafkago.Lz4
	case "zstd":
		return kafkago.Zstd
	case "none":
		return 0
	default:
		return kafkago.Snappy
	}
}
