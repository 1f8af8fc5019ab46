// Package logger provides structured logging for rtdbkit using zerolog.
//
// It supports JSON and console output, level configuration and
// component-scoped loggers with map-based structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("eventsource")
//	log.Info("stream opened", logger.Fields("endpoint", url))
package logger
