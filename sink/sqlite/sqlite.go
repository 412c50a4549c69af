// Package sqlite implements the sqlite backend: an embedded key-value table
// managed through gorm. Each record is a row keyed by its generated key, and
// the record count is stored under sink.SummaryKey.
package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kbukum/parallelio/codec"
	"github.com/kbukum/parallelio/dataset"
	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/logger"
	"github.com/kbukum/parallelio/sink"
)

// insertChunk keeps each INSERT under SQLite's bound-parameter limit.
const insertChunk = 400

func init() {
	sink.RegisterFactory(sink.BackendSQLite, open)
	sink.RegisterReader(sink.BackendSQLite, load)
}

// Entry is one stored row.
type Entry struct {
	Key   string `gorm:"column:record_key;primaryKey"`
	Value []byte `gorm:"column:record_value"`
}

// Sink writes key/value batches into a table.
type Sink struct {
	db    *gorm.DB
	table string
	log   *logger.Logger

	mu     sync.Mutex
	closed bool
}

var (
	_ sink.KVWriter      = (*Sink)(nil)
	_ sink.SummaryWriter = (*Sink)(nil)
)

func connect(ctx context.Context, cfg sink.Config, log *logger.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: newGormLogger(log, sink.ParseDuration(cfg.SQLite.SlowQueryThreshold), parseLogLevel(cfg.SQLite.LogLevel)),
	}
	db, err := gorm.Open(sqlite.Open(cfg.Target), gormCfg)
	if err != nil {
		return nil, errors.ConnectionFailed("sqlite", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.ConnectionFailed("sqlite", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, errors.ConnectionFailed("sqlite", err)
	}
	if cfg.SQLite.JournalMode != "" {
		if err := db.WithContext(ctx).Exec("PRAGMA journal_mode = " + cfg.SQLite.JournalMode).Error; err != nil {
			_ = sqlDB.Close()
			return nil, errors.Sink(sink.BackendSQLite.String(), "open", err)
		}
	}
	return db, nil
}

func open(ctx context.Context, cfg sink.Config, _ any, log *logger.Logger) (sink.Sink, error) {
	if dir := filepath.Dir(cfg.Target); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Sink(sink.BackendSQLite.String(), "open", err)
		}
	}
	db, err := connect(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Table(cfg.SQLite.Table).AutoMigrate(&Entry{}); err != nil {
		closeDB(db)
		return nil, errors.Sink(sink.BackendSQLite.String(), "migrate", err)
	}
	log.Info("sqlite sink opened", logger.Fields(logger.FieldTarget, cfg.Target, "table", cfg.SQLite.Table))
	return &Sink{db: db, table: cfg.SQLite.Table, log: log}, nil
}

func (s *Sink) Backend() sink.Backend { return sink.BackendSQLite }

func (s *Sink) PutBatch(ctx context.Context, keys []string, values []any) error {
	if len(keys) != len(values) {
		return errors.Sink(sink.BackendSQLite.String(), "put", errors.InvalidInput("keys", "length differs from values"))
	}
	rows := make([]Entry, len(keys))
	for i, k := range keys {
		b, err := codec.Marshal(values[i])
		if err != nil {
			return errors.Sink(sink.BackendSQLite.String(), "put", err)
		}
		rows[i] = Entry{Key: k, Value: b}
	}
	return s.upsert(ctx, "put", rows)
}

func (s *Sink) PutSummary(ctx context.Context, total int64) error {
	return s.upsert(ctx, "summary", []Entry{{Key: sink.SummaryKey, Value: sink.EncodeSummary(total)}})
}

func (s *Sink) upsert(ctx context.Context, op string, rows []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.Sink(sink.BackendSQLite.String(), op, os.ErrClosed)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Table(s.table).
			Clauses(clause.OnConflict{UpdateAll: true}).
			CreateInBatches(rows, insertChunk).Error
	})
	if err != nil {
		return errors.Sink(sink.BackendSQLite.String(), op, err)
	}
	return nil
}

// Close closes the database. Safe to call multiple times.
func (s *Sink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.Close()
	}
	if err != nil {
		return errors.Sink(sink.BackendSQLite.String(), "close", err)
	}
	s.log.Debug("sqlite sink closed")
	return nil
}

// Ping checks the database handle.
func (s *Sink) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func load(ctx context.Context, cfg sink.ReadConfig, _ any, log *logger.Logger) (dataset.Dataset, error) {
	if _, err := os.Stat(cfg.Target); err != nil {
		return nil, errors.NotFound("sqlite database", cfg.Target)
	}
	db, err := connect(ctx, cfg.Config, log)
	if err != nil {
		return nil, err
	}
	table := cfg.SQLite.Table
	get := func(ctx context.Context, key string) ([]byte, error) {
		var e Entry
		err := db.WithContext(ctx).Table(table).Where("record_key = ?", key).Take(&e).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("key", key)
		}
		if err != nil {
			return nil, errors.Sink(sink.BackendSQLite.String(), "get", err)
		}
		return e.Value, nil
	}
	closer := func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	ds, err := sink.LoadKV(ctx, get, cfg.Raw, closer)
	if err != nil {
		_ = closer()
		return nil, err
	}
	return ds, nil
}
