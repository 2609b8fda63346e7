// Package events defines the append-only event log entries the worker
// emits while processing jobs.
//
// Events are the system's observable record: every batch outcome, retry,
// dead-letter move, and fallback writes one. Components emit through the
// Sink interface without knowing where entries land, which keeps the
// engines decoupled from the persistence layer.
//
// The primary components are:
// - Event: a single log entry with a type, payload, and user scope
// - Sink: interface for components that record emitted events
package events
