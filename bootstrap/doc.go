// Package bootstrap runs a parallelio program: it loads no configuration of
// its own but takes a typed config, builds the logger, starts registered
// components, runs one task and shuts the components down again.
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//		return err
//	}
//	_ = app.RegisterComponent(sink.NewComponent(cfg.Sink, nil, app.Logger))
//	return app.RunTask(ctx, func(ctx context.Context) error {
//		return run(ctx, app)
//	})
//
// SIGINT and SIGTERM cancel the task's context. Components are stopped in
// reverse registration order after the task returns, within the graceful
// timeout.
package bootstrap
