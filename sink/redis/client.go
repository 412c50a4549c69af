package redis

import (
	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/logger"
	"github.com/kbukum/parallelio/sink"
)

// newClient builds a go-redis client from the backend options.
func newClient(opts sink.RedisOptions, log *logger.Logger) *goredis.Client {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
		MaxRetries:   opts.MaxRetries,
		DialTimeout:  sink.ParseDuration(opts.DialTimeout),
		ReadTimeout:  sink.ParseDuration(opts.ReadTimeout),
		WriteTimeout: sink.ParseDuration(opts.WriteTimeout),
	})
	log.Info("redis client created", logger.Fields("addr", opts.Addr, "db", opts.DB, "pool_size", opts.PoolSize))
	return rdb
}

// clientFor returns the injected client, or a new one it owns.
func clientFor(opts sink.RedisOptions, backendCfg any, log *logger.Logger) (rdb *goredis.Client, owned bool, err error) {
	switch v := backendCfg.(type) {
	case nil:
		return newClient(opts, log), true, nil
	case *goredis.Client:
		return v, false, nil
	default:
		return nil, false, errors.Configuration("redis: unexpected backend config %T", backendCfg)
	}
}
