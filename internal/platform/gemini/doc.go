// Package gemini implements the planner.Rewriter interface using Google's
// Gemini API. It is an infrastructure adapter: the planner hands it a
// deterministic plan payload, the adapter asks the model to improve the
// natural-language reasons without touching structure, and the caller
// validates whatever comes back. Any failure here degrades to the
// deterministic payload upstream, so this package never retries.
package gemini
