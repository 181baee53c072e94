// Package logging provides structured logging for the discovery engine.
//
// This package wraps zap with convenience functions for the logging
// patterns used throughout the probers and the orchestrator. Logging is
// silent by default so CLI output stays clean; it is enabled through the
// environment.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: wire-level detail (raw SSDP datagrams, probe attempts, TXT parsing)
//   - Info: normal operations (sessions started, devices reconciled)
//   - Warn: non-fatal issues (description fetch failures, malformed records)
//   - Error: failures that end a prober or a session
//
// # Configuration
//
// Verbosity comes from SCREENSCOUT_LOG_LEVEL ("debug", "info", "warn",
// "error"); unset means no output at all. When SCREENSCOUT_LOG_FILE names
// a path, JSON logs are additionally written there with size-based
// rotation, which keeps long-running bridge servers from filling disks.
//
// Initialize once at process startup:
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Device reconciled",
//	    zap.String("addr", "192.168.1.100"),
//	    zap.String("method", "ssdp"),
//	    zap.String("name", "Living Room TV"),
//	)
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap
// logger handles synchronization automatically.
package logging
