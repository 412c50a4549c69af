// Package logger provides structured logging for parallelio using zerolog.
//
// Loggers are scoped by service and component. Pipeline stages attach their
// own fields (run id, worker id, backend) so a single run can be followed
// across the dispatcher, the workers and the aggregators.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.NewDefault("parallelio").WithComponent("writer")
//	log.Info("batch flushed", logger.Fields("size", 1024))
package logger
