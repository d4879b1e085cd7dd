// Package logging provides structured logging for the music gateway.
//
// It wraps log/slog so every component logs with the same default fields
// (service, version) and the same level filtering.
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
//	logger.Info("listening", "port", cfg.Server.Port)
//	zoneLog := logger.With("component", "zone")
//
// Backend response bodies can contain account names and stream URLs; log
// them at debug level only.
package logging
