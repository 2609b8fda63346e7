// Package config handles configuration loading, parsing, and validation
// from environment variables and optional files. It provides type-safe
// access to the settings each component needs (queue timing, retry budgets,
// planner weights, tracker credentials) while keeping configuration details
// separate from business logic.
package config
