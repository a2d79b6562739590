// Package logging provides structured logging for hcat.
//
// This package wraps a global zap logger with convenience functions. It is
// silent until Initialize is called with a level or HCAT_LOG_LEVEL is set,
// so CLI output is never interleaved with log lines by accident.
//
// # Log Levels
//
//   - Debug: probe cells, AT transactions with hex dumps, port open/close
//   - Info: state changes, HTTP requests, websocket clients
//   - Warn: link desync, skipped post-change echo, mDNS failures
//   - Error: startup failures
//
// # Specialized Logging
//
//	logging.LogProbeCell("Modern", 38400, "None", true)
//	logging.LogTransaction("RoleGet", cmd, resp, wait, true)
//	logging.LogStateChange("Detected", "LinkInvalidated", "post-change echo failed")
//
// # Configuration
//
//	if err := logging.Initialize(cfg.LogLevel); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// All functions are safe for concurrent use.
package logging
