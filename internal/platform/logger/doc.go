// Package logger provides structured logging for the worker.
//
// It uses Go's standard library log/slog package to implement structured
// JSON logging with configurable log levels, plus context helpers that
// carry a job-scoped logger through handler call chains.
package logger
