// Package remote provides interfaces and types for interacting with the
// external task tracker. It abstracts the details of the tracker's REST API
// (Todoist), allowing the sync engines to push and reconcile tasks without
// coupling to a specific external service.
package remote
