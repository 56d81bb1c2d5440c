package domain

import "errors"

// Sentinel errors for domain error conditions.
// Use errors.Is() for matching - never compare error strings.
var (
	// Routing errors
	ErrEndpointNotFound = errors.New("unknown endpoint key")
	ErrInstanceNotFound = errors.New("instance not found")

	// Instance state errors
	ErrInstanceNotConnected = errors.New("instance is not connected")

	// Authorization errors
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("permission denied")

	// Validation errors
	ErrInvalidInput     = errors.New("invalid input")
	ErrInstanceRequired = errors.New("instance name is required for this endpoint")

	// Quota errors
	ErrQuotaExceeded = errors.New("quota exceeded")

	// Upstream errors
	ErrUpstreamValidation  = errors.New("upstream rejected the request")
	ErrUpstreamTimeout     = errors.New("upstream call timed out")
	ErrUpstreamUnavailable = errors.New("upstream temporarily unavailable")
	ErrCircuitOpen         = errors.New("upstream circuit open")

	// Store errors
	ErrStoreUnavailable = errors.New("backing store unavailable")

	// Configuration errors
	ErrConfigRequired = errors.New("required configuration key missing")
)

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUpstreamTimeout) ||
		errors.Is(err, ErrUpstreamUnavailable) ||
		errors.Is(err, ErrCircuitOpen) ||
		errors.Is(err, ErrStoreUnavailable)
}

// clientErrors enumerates all domain errors that represent caller-side issues.
var clientErrors = []error{
	ErrEndpointNotFound,
	ErrInstanceNotFound,
	ErrInstanceNotConnected,
	ErrUnauthorized,
	ErrForbidden,
	ErrInvalidInput,
	ErrInstanceRequired,
	ErrQuotaExceeded,
	ErrUpstreamValidation,
}

// IsClientError returns true if the error represents a caller-side issue
// that will not succeed on retry without caller-side changes.
func IsClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsFailFast returns true for errors that must reject the request before any
// quota is charged or any upstream call is made.
func IsFailFast(err error) bool {
	return errors.Is(err, ErrEndpointNotFound) ||
		errors.Is(err, ErrInstanceNotFound) ||
		errors.Is(err, ErrInstanceNotConnected) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrInstanceRequired) ||
		errors.Is(err, ErrInvalidInput)
}

// IsNotFound returns true if the error represents a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEndpointNotFound) || errors.Is(err, ErrInstanceNotFound)
}
