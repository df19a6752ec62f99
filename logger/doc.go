// Package logger provides structured logging built on zerolog.
//
// The worker client logs to stderr by default so the caller's stdout stays
// clean for report output. Component-tagged child loggers keep the
// supervisor, transport, and resilience layers distinguishable:
//
//	log := logger.New(&cfg, "workerlink").WithComponent("supervisor")
//	log.Info("worker started", logger.Fields(logger.FieldWorkerPID, pid))
package logger
