// Package logger provides structured logging for the eureka client
// using zerolog.
//
// It supports JSON and console output, log level configuration, and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logger:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.NewDefault("eureka")
//	log.Info("registered", logger.Fields("app", "jqservice"))
package logger
