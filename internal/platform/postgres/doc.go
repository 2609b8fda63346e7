// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces (repositories) defined in the internal/store package,
// plus the Postgres-backed job queue the worker consumes. It handles query
// execution and the mapping between domain entities and database records;
// schema management lives in the embedded goose migrations.
package postgres
