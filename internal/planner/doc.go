// Package planner builds the ranked daily plan. The engine is a pure
// function over a snapshot of tasks, goals, and links: it detects blocked
// tasks, scores the ready ones with configurable weights, and emits a
// versioned payload whose serialization is byte-identical for identical
// inputs. The surrounding service caches the payload and optionally runs
// it through a rewriter, guarded by a JSON schema.
package planner
