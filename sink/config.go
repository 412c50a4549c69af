package sink

import (
	"time"

	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/storage"
	"github.com/kbukum/parallelio/validation"
)

// Config selects a backend and carries its options. Only the options block of
// the selected backend is read.
type Config struct {
	Backend Backend `yaml:"backend" mapstructure:"backend"`

	// Target names the destination: a file path for record, sqlite and the
	// columnar backends, a key namespace for redis, a topic for kafka, a key
	// prefix for object and a store name for the memory backends.
	Target string `yaml:"target" mapstructure:"target"`

	Record   RecordOptions   `yaml:"record" mapstructure:"record"`
	SQLite   SQLiteOptions   `yaml:"sqlite" mapstructure:"sqlite"`
	Redis    RedisOptions    `yaml:"redis" mapstructure:"redis"`
	Kafka    KafkaOptions    `yaml:"kafka" mapstructure:"kafka"`
	Object   ObjectOptions   `yaml:"object" mapstructure:"object"`
	Columnar ColumnarOptions `yaml:"columnar" mapstructure:"columnar"`

	// Retry governs reconnect attempts while opening the backend.
	Retry RetryOptions `yaml:"retry" mapstructure:"retry"`
}

// RetryOptions configure how Open retries a backend that fails with a
// retryable error such as CONNECTION_FAILED. Writes are never retried.
type RetryOptions struct {
	// MaxAttempts counts the first attempt; 1 disables retries.
	MaxAttempts    int    `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=0"`
	InitialBackoff string `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     string `yaml:"max_backoff" mapstructure:"max_backoff"`
}

// RecordOptions configure the record backend.
type RecordOptions struct {
	// Compression is "gzip", "zstd" or "none".
	Compression string `yaml:"compression" mapstructure:"compression" validate:"omitempty,oneof=gzip zstd none"`
	Level       int    `yaml:"level" mapstructure:"level"`
}

// SQLiteOptions configure the sqlite backend.
type SQLiteOptions struct {
	Table string `yaml:"table" mapstructure:"table"`
	// LogLevel is the gorm log level: silent, error, warn or info.
	LogLevel           string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=silent error warn info"`
	SlowQueryThreshold string `yaml:"slow_query_threshold" mapstructure:"slow_query_threshold"`
	JournalMode        string `yaml:"journal_mode" mapstructure:"journal_mode" validate:"omitempty,oneof=DELETE TRUNCATE PERSIST MEMORY WAL OFF"`
}

// RedisOptions configure the redis backend.
type RedisOptions struct {
	Addr         string `yaml:"addr" mapstructure:"addr"`
	Username     string `yaml:"username" mapstructure:"username"`
	Password     string `yaml:"password" mapstructure:"password"`
	DB           int    `yaml:"db" mapstructure:"db" validate:"gte=0"`
	PoolSize     int    `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int    `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	MaxRetries   int    `yaml:"max_retries" mapstructure:"max_retries"`
	DialTimeout  string `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  string `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout" mapstructure:"write_timeout"`
	// TTL expires written keys; empty keeps them forever.
	TTL string `yaml:"ttl" mapstructure:"ttl"`
}

// KafkaOptions configure the kafka backend. Target is the topic.
type KafkaOptions struct {
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`

	EnableTLS     bool   `yaml:"enable_tls" mapstructure:"enable_tls"`
	TLSSkipVerify bool   `yaml:"tls_skip_verify" mapstructure:"tls_skip_verify"`
	TLSCAFile     string `yaml:"tls_ca_file" mapstructure:"tls_ca_file"`
	TLSCertFile   string `yaml:"tls_cert_file" mapstructure:"tls_cert_file"`
	TLSKeyFile    string `yaml:"tls_key_file" mapstructure:"tls_key_file"`

	EnableSASL    bool   `yaml:"enable_sasl" mapstructure:"enable_sasl"`
	SASLMechanism string `yaml:"sasl_mechanism" mapstructure:"sasl_mechanism" validate:"omitempty,oneof=PLAIN SCRAM-SHA-256 SCRAM-SHA-512"`
	Username      string `yaml:"username" mapstructure:"username"`
	Password      string `yaml:"password" mapstructure:"password"`

	Compression  string `yaml:"compression" mapstructure:"compression" validate:"omitempty,oneof=none gzip snappy lz4 zstd"`
	BatchTimeout string `yaml:"batch_timeout" mapstructure:"batch_timeout"`
	WriteTimeout string `yaml:"write_timeout" mapstructure:"write_timeout"`
	RequiredAcks int    `yaml:"required_acks" mapstructure:"required_acks" validate:"gte=-1,lte=1"`
	IdleTimeout  string `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MetadataTTL  string `yaml:"metadata_ttl" mapstructure:"metadata_ttl"`
}

// ObjectOptions configure the object backend. Target is the key prefix under
// which segments are written.
type ObjectOptions struct {
	Storage storage.Config `yaml:"storage" mapstructure:"storage"`
	// Compression is "gzip", "zstd" or "none".
	Compression string `yaml:"compression" mapstructure:"compression" validate:"omitempty,oneof=gzip zstd none"`
}

// ColumnarOptions configure the arrow and parquet backends.
type ColumnarOptions struct {
	Fields []Field `yaml:"fields" mapstructure:"fields" validate:"dive"`
	// Compression applies to parquet column chunks: snappy, zstd, gzip or none.
	Compression  string `yaml:"compression" mapstructure:"compression" validate:"omitempty,oneof=snappy zstd gzip none"`
	RowGroupSize int64  `yaml:"row_group_size" mapstructure:"row_group_size" validate:"gte=0"`
}

// Schema returns the declared columnar schema.
func (o ColumnarOptions) Schema() Schema {
	return Schema{Fields: o.Fields}
}

// Default option values.
const (
	DefaultRecordCompression  = "gzip"
	DefaultSQLiteTable        = "records"
	DefaultSQLiteLogLevel     = "warn"
	DefaultSlowQueryThreshold = "200ms"
	DefaultRedisAddr          = "localhost:6379"
	DefaultKafkaCompression   = "snappy"
	DefaultParquetCompression = "snappy"
	DefaultRowGroupSize       = 64 * 1024
)

// ApplyDefaults fills in zero-valued options of every backend.
func (c *Config) ApplyDefaults() {
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 1
	}
	if c.Retry.InitialBackoff == "" {
		c.Retry.InitialBackoff = "200ms"
	}
	if c.Retry.MaxBackoff == "" {
		c.Retry.MaxBackoff = "5s"
	}

	if c.Record.Compression == "" {
		c.Record.Compression = DefaultRecordCompression
	}

	if c.SQLite.Table == "" {
		c.SQLite.Table = DefaultSQLiteTable
	}
	if c.SQLite.LogLevel == "" {
		c.SQLite.LogLevel = DefaultSQLiteLogLevel
	}
	if c.SQLite.SlowQueryThreshold == "" {
		c.SQLite.SlowQueryThreshold = DefaultSlowQueryThreshold
	}

	r := &c.Redis
	if r.Addr == "" {
		r.Addr = DefaultRedisAddr
	}
	if r.PoolSize <= 0 {
		r.PoolSize = 10
	}
	if r.MinIdleConns <= 0 {
		r.MinIdleConns = 2
	}
	if r.MaxRetries <= 0 {
		r.MaxRetries = 3
	}
	if r.DialTimeout == "" {
		r.DialTimeout = "5s"
	}
	if r.ReadTimeout == "" {
		r.ReadTimeout = "3s"
	}
	if r.WriteTimeout == "" {
		r.WriteTimeout = "3s"
	}

	k := &c.Kafka
	if len(k.Brokers) == 0 {
		k.Brokers = []string{"localhost:9092"}
	}
	if k.Compression == "" {
		k.Compression = DefaultKafkaCompression
	}
	if k.BatchTimeout == "" {
		k.BatchTimeout = "1s"
	}
	if k.WriteTimeout == "" {
		k.WriteTimeout = "10s"
	}
	if k.RequiredAcks == 0 {
		k.RequiredAcks = -1
	}
	if k.IdleTimeout == "" {
		k.IdleTimeout = "30s"
	}
	if k.MetadataTTL == "" {
		k.MetadataTTL = "6s"
	}
	if k.EnableSASL && k.SASLMechanism == "" {
		k.SASLMechanism = "PLAIN"
	}

	c.Object.Storage.ApplyDefaults()
	if c.Object.Compression == "" {
		c.Object.Compression = DefaultRecordCompression
	}

	if c.Columnar.Compression == "" {
		c.Columnar.Compression = DefaultParquetCompression
	}
	if c.Columnar.RowGroupSize == 0 {
		c.Columnar.RowGroupSize = DefaultRowGroupSize
	}
}

// Validate checks the backend and the options it reads.
func (c *Config) Validate() error {
	if _, err := ParseBackend(string(c.Backend)); err != nil {
		return err
	}
	if err := validation.Validate(c); err != nil {
		return err
	}

	v := validation.New()
	switch c.Backend {
	case BackendRecord, BackendSQLite, BackendArrowStream, BackendArrowFile, BackendParquet:
		v.Required("target", c.Target)
	case BackendKafka:
		v.Required("target", c.Target)
		v.Check(len(c.Kafka.Brokers) > 0, "kafka.brokers", "is required")
		v.Check(!c.Kafka.EnableSASL || c.Kafka.Username != "", "kafka.username", "is required with SASL")
		checkDurations(v, "kafka", map[string]string{
			"batch_timeout": c.Kafka.BatchTimeout,
			"write_timeout": c.Kafka.WriteTimeout,
			"idle_timeout":  c.Kafka.IdleTimeout,
			"metadata_ttl":  c.Kafka.MetadataTTL,
		})
	case BackendRedis:
		v.Required("redis.addr", c.Redis.Addr)
		checkDurations(v, "redis", map[string]string{
			"dial_timeout":  c.Redis.DialTimeout,
			"read_timeout":  c.Redis.ReadTimeout,
			"write_timeout": c.Redis.WriteTimeout,
			"ttl":           c.Redis.TTL,
		})
	case BackendObject:
		v.Required("target", c.Target)
	}
	checkDurations(v, "retry", map[string]string{
		"initial_backoff": c.Retry.InitialBackoff,
		"max_backoff":     c.Retry.MaxBackoff,
	})
	if c.Backend == BackendSQLite {
		checkDurations(v, "sqlite", map[string]string{"slow_query_threshold": c.SQLite.SlowQueryThreshold})
	}
	if c.Backend.Capability().Shape == ShapeColumnar {
		if err := c.Columnar.Schema().Validate(); err != nil {
			return err
		}
	}
	return v.Err()
}

func checkDurations(v *validation.Validator, prefix string, values map[string]string) {
	for name, val := range values {
		if val == "" {
			continue
		}
		if _, err := time.ParseDuration(val); err != nil {
			v.AddError(prefix+"."+name, "invalid duration "+val)
		}
	}
}

// ParseDuration parses a duration string, returning zero on empty or
// malformed input. Config.Validate rejects malformed values beforehand.
func ParseDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// ReadConfig selects a stored target to read back.
type ReadConfig struct {
	Config `yaml:",inline" mapstructure:",squash"`

	// Raw yields the stored bytes instead of decoding records into native
	// values. Columnar backends always yield rows as map[string]any.
	Raw bool `yaml:"raw" mapstructure:"raw"`

	// BatchSize is the number of rows decoded at a time by columnar readers.
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size" validate:"gte=0"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *ReadConfig) ApplyDefaults() {
	c.Config.ApplyDefaults()
	if c.BatchSize == 0 {
		c.BatchSize = c.Backend.Capability().DefaultBatchSize
	}
}

// Validate checks the read configuration. Kafka targets cannot be read.
func (c *ReadConfig) Validate() error {
	if c.Backend == BackendKafka {
		return errors.Configuration("backend %s has no reader", c.Backend)
	}
	if c.BatchSize < 0 {
		return errors.Configuration("batch_size must be >= 0")
	}
	return c.Config.Validate()
}
