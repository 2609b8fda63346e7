// Package sync keeps local tasks and the remote tracker in agreement.
//
// Two engines do the work. PushEngine mirrors local task state out to the
// tracker: it creates remote tasks for unmapped ones, closes done tasks,
// and updates the rest. ReconcileEngine pulls remote state back in: it
// walks every mapped task, applies completions and field edits made on the
// tracker side, and records remote deletions as terminal drift.
//
// Both engines follow the same batch shape. Remote calls run outside any
// transaction and each task is isolated, so one failure marks its own
// mapping and moves on. Every mutation and audit event staged during a run
// is then persisted in a single commit. Only after that commit does a run
// with failed tasks return a BatchError, which tells the job dispatcher to
// retry the whole batch against the already-persisted state.
package sync
