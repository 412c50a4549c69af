// Package config loads parallelio configuration from YAML files, .env files
// and environment variables using Viper.
//
// Files are located by a Resolver: an explicit path wins, otherwise the
// standard locations for the service are searched. Environment variables
// prefixed with the upper-cased service name override file values, with
// underscores standing for nesting:
//
//	PARALLELIO_PARALLEL_WORKERS=8   ->  parallel.workers: 8
//	PARALLELIO_SINK_BACKEND=redis   ->  sink.backend: redis
//
// # Usage
//
//	var cfg Config
//	if err := config.LoadConfig("parallelio", &cfg, config.WithConfigFile(path)); err != nil {
//	    return err
//	}
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
