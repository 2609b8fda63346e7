package remote

import (
	"errors"
	"fmt"
)

// Common errors returned by tracker implementations
var (
	// ErrMissingToken is returned when no API token is configured for the tracker
	ErrMissingToken = errors.New("tracker API token not configured")

	// ErrRequestRejected is returned when the tracker rejects a request outright,
	// typically a 4xx response; retrying the same request will not help
	ErrRequestRejected = errors.New("tracker rejected request")

	// ErrTrackerUnavailable is returned for transport failures and 5xx responses
	// that might resolve on retry
	ErrTrackerUnavailable = errors.New("tracker unavailable")
)

// TransientError reports an unsuccessful tracker response. The sync engines
// absorb it per task and escalate after the batch commits, so one bad task
// never blocks its peers. It unwraps to ErrRequestRejected for 4xx statuses
// and ErrTrackerUnavailable for everything else, keeping errors.Is checks
// working across the boundary.
type TransientError struct {
	// StatusCode is the HTTP status the tracker answered with.
	StatusCode int

	// Excerpt is a bounded slice of the response body for diagnostics.
	Excerpt string
}

// Error implements the error interface.
func (e *TransientError) Error() string {
	if e.Excerpt == "" {
		return fmt.Sprintf("tracker returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("tracker returned status %d: %s", e.StatusCode, e.Excerpt)
}

// Unwrap maps the status class onto the package sentinels.
func (e *TransientError) Unwrap() error {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return ErrRequestRejected
	}
	return ErrTrackerUnavailable
}
