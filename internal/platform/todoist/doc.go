// Package todoist implements the remote.Tracker interface against the
// Todoist REST v2 API. The client is deliberately thin: it shapes requests,
// sets auth headers, and maps response status classes onto the remote
// package's error taxonomy. Retry policy, event emission, and persistence
// all belong to the sync engines that call it.
package todoist
