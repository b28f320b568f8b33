// Package logging provides structured logging for the unit supervisor.
//
// This package wraps Go's standard log/slog package so that every
// component logs with the same default fields (service, version).
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	safetyLog := logger.Component("safety")
//	safetyLog.Warn("weather record stale", "age", age)
//
// Components never import this package directly; they accept a small
// Logger interface that *Logger satisfies.
package logging
