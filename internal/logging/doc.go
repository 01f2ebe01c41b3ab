// Package logging provides structured logging for the tapp client.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used throughout the client. Logging is silent by default; a host
// turns it on by setting TAPP_LOG_LEVEL or by calling Initialize.
//
// # Log Levels
//
//   - Debug: request/response traces, surface messages
//   - Info: bootstrap phase transitions
//   - Warn: dropped fire-and-forget work (fingerprint, impression, events)
//   - Error: failures delivered to callers
//
// # Structured Logging
//
//	logging.Info("Link resolved",
//	    zap.String("url", "https://tapp.so/abc"),
//	    zap.Bool("first_session", true),
//	)
//
// Secrets never go to the log in full; use Redact.
package logging
