// Package logging provides structured logging for wakelight.
//
// It wraps log/slog so every component logs the same way.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (trace, debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # trace, debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// LOG_DEBUG=true and LOG_TRACE=true override the level.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("connected", "session", id)
//	logger.Error("send failed", "error", err)
//
// Never log the connection password, the access token or the API key.
package logging
