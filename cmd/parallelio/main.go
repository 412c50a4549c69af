// Command parallelio transforms a JSON lines file, or an integer range, in
// parallel and writes the results to a configured sink.
//
//	parallelio --config config.yml --input data.jsonl --transform drop_even
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/kbukum/parallelio/bootstrap"
	"github.com/kbukum/parallelio/config"
	"github.com/kbukum/parallelio/logger"
	"github.com/kbukum/parallelio/observability"
	"github.com/kbukum/parallelio/sink"
	_ "github.com/kbukum/parallelio/sink/all"
	"github.com/kbukum/parallelio/version"
	"github.com/kbukum/parallelio/writer"
)

const serviceName = "parallelio"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		logger.NewFromEnv(serviceName).WithError(err).Error("run failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, showVersion, err := loadConfig(args)
	if err != nil {
		return err
	}
	if showVersion {
		fmt.Println(serviceName, version.Get())
		return nil
	}
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	return execute(ctx, app, nil)
}

// loadConfig reads the config file and environment, then applies flag
// overrides. It reports showVersion without loading anything when --version
// is set.
func loadConfig(args []string) (cfg *Config, showVersion bool, err error) {
	fs := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	configFile := fs.StringP("config", "c", "", "config file (yaml, json or toml)")
	envFile := fs.String("env-file", "", "dotenv file loaded before binding environment variables")
	inputs := fs.StringSliceP("input", "i", nil, "JSON lines input files, read in order")
	limit := fs.Int("limit", -1, "stop after N input items, 0 reads everything")
	rng := fs.Int("range", -1, "process the integers 0..N-1 instead of a file")
	transform := fs.StringP("transform", "t", "", "built-in transform: identity, drop_even, explode, columns")
	backend := fs.StringP("backend", "b", "", "sink backend")
	target := fs.String("target", "", "sink target")
	workers := fs.IntP("workers", "w", -1, "worker goroutines, 0 runs inline")
	batch := fs.Int("batch-size", -1, "records per flush, 0 uses the backend default")
	printVersion := fs.BoolP("version", "v", false, "print the version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}
	if *printVersion {
		return nil, true, nil
	}

	loaded := defaultConfig()
	cfg = &loaded
	var opts []config.LoaderOption
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}
	if *envFile != "" {
		opts = append(opts, config.WithEnvFile(*envFile))
	}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, false, err
	}

	if len(*inputs) > 0 {
		cfg.Input.Paths = *inputs
	}
	if *rng >= 0 {
		cfg.Input.Paths, cfg.Input.Range = nil, *rng
	}
	if *limit >= 0 {
		cfg.Input.Limit = *limit
	}
	if *transform != "" {
		cfg.Transform.Name = *transform
	}
	if *backend != "" {
		cfg.Sink.Backend = sink.Backend(*backend)
	}
	if *target != "" {
		cfg.Sink.Target = *target
	}
	if *workers >= 0 {
		cfg.Parallel.Workers = *workers
	}
	if *batch >= 0 {
		cfg.Write.BatchSize = *batch
	}
	return cfg, false, nil
}

// execute registers the telemetry and sink components and runs the job.
// backendCfg is handed to the sink factory.
func execute(ctx context.Context, app *bootstrap.App[*Config], backendCfg any) error {
	cfg := app.Cfg
	telemetry := observability.NewComponent(app.Name, cfg.Observability, app.Logger)
	if err := app.RegisterComponent(telemetry); err != nil {
		return err
	}
	sinkComp := sink.NewComponent(cfg.Sink, backendCfg, app.Logger)
	if err := app.RegisterComponent(sinkComp); err != nil {
		return err
	}

	return app.RunTask(ctx, func(ctx context.Context) error {
		src, err := openInput(cfg.Input)
		if err != nil {
			return err
		}

		var opts []writer.Option
		if cfg.Observability.Enabled {
			m, err := observability.NewPipelineMetrics(observability.Meter())
			if err != nil {
				return err
			}
			opts = append(opts, writer.WithMetrics(m))
		}
		w, err := writer.FromComponent(sinkComp, cfg.Write, app.Logger, opts...)
		if err != nil {
			return err
		}

		hook := transforms[cfg.Transform.Name]
		res, err := writer.Write(ctx, w, src, hook, cfg.Transform, cfg.Parallel)
		if err != nil {
			return err
		}
		app.Logger.Info("written", logger.Fields(
			logger.FieldRunID, res.RunID,
			logger.FieldBackend, w.Backend().String(),
			"transform", cfg.Transform.Name,
			"dispatched", res.Dispatched,
			"records", res.Records,
			"batches", res.Batches,
			logger.FieldBatchSize, res.BatchSize,
			logger.FieldDuration, res.Duration.Milliseconds(),
		))
		return nil
	})
}
