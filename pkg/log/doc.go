// Package log provides the logging abstraction configured by the
// initialization coordinator.
//
// This package defines a Logger interface that can be implemented by any
// logging library, a zerolog-backed implementation whose output can be
// reconfigured in place with Setup, and a no-op logger for testing.
//
// # Usage
//
// The coordinator builds loggers through a Factory:
//
//	var f log.Factory = log.ZerologFactory{}
//	logger, err := f.NewLogger(cfg, hub.Default())
//	if err != nil {
//	    return err
//	}
//	if err := logger.Setup(*cfg); err != nil {
//	    return err
//	}
//	logger.Info("ready", log.String("service", cfg.ServiceName))
//
// Or use the no-op logger for testing:
//
//	logger := log.NewNoopLogger()
//
// # Event Handlers
//
// FieldsHook and LevelCounterHook are zerolog hooks installed on the
// configured logger as process-wide event handlers.
package log
