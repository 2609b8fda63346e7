// Package store defines interfaces for data persistence operations over
// tasks, goals, links, tracker mappings, inbox items, events, and the plan
// cache. These interfaces abstract the underlying storage mechanism from
// the planning and sync engines, allowing business rules to remain
// independent of specific database technologies or persistence details.
package store
