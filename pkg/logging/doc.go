// Package logging provides the structured logging system used across steward.
//
// It is a thin layer over Go's standard slog package. Every entry carries a
// subsystem identifier so that logs from the controller, the sync executor,
// the source watchers and the HTTP server can be filtered apart:
//
//	logging.Init(logging.LevelInfo, logging.FormatText, os.Stderr)
//
//	logging.Info("SyncExecutor", "applied %d resources in wave %d", n, wave)
//	logging.Error("GitSource", err, "fetch of revision %s failed", rev)
//
// Text output is the default; JSON output is available for log shippers via
// the --log-format flag on the serve command.
package logging
