// Package logging provides structured logging for GrowWiz.
//
// It wraps log/slog so every component logs with the same handler, level
// and default fields (service, version).
//
// Configuration:
//
//	logging:
//	  level: "info"        # debug, info, warn, error
//	  format: "json"       # json, text
//	  output: "stdout"     # stdout, stderr, file
//	  file_path: "./data/growwiz.log"
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Component("automation").Info("cycle applied", "transitions", 2)
//
// Never log secrets, tokens or password hashes.
package logging
