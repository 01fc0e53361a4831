// Package foundation initializes process-wide configuration and logging
// exactly once.
//
// Concurrent callers share a single initialization. Later calls return the
// same config and logger without locking. A failed initialization is
// remembered until it is forced again or reset.
//
// # Basic Usage
//
//	cfg, logger, err := foundation.Initialize(ctx, foundation.Deps{})
//	if err != nil {
//	    return err
//	}
//	logger.Info("started", log.String("service", cfg.ServiceName))
//
// Zero Deps fields use the process defaults: the environment config factory,
// the zerolog logger factory, the default hub and the default lock manager.
//
// # Supplying a Config
//
//	cfg := foundation.DefaultConfig()
//	cfg.ServiceName = "billing"
//	_, logger, err := foundation.Initialize(ctx, foundation.Deps{}, foundation.WithConfig(&cfg))
//
// Passing [WithForce] discards the previous outcome and runs a fresh
// initialization. [UpdateConfigIfDefault] replaces an auto-derived config
// without re-initializing.
//
// # Waiting
//
// [WaitForCompletion] blocks until the running initialization resolves. It
// returns true for failures as well; inspect [State] to tell them apart.
//
// # Testing
//
// Call [ResetForTesting] between tests to discard the process-wide coordinator.
package foundation
