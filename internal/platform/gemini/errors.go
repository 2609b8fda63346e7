package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrInvalidConfig is returned when the rewriter is constructed with
	// unusable configuration.
	ErrInvalidConfig = errors.New("invalid gemini configuration")

	// ErrEmptyPayload is returned when a rewrite is requested for an empty
	// plan payload.
	ErrEmptyPayload = errors.New("plan payload cannot be empty")

	// ErrInvalidResponse is returned when the model answers with something
	// that is not a JSON object.
	ErrInvalidResponse = errors.New("invalid model response")
)
