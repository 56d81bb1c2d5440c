// Package errmap translates domain errors into the externally-stable error
// codes and HTTP statuses of the response envelope.
package errmap

import (
	"errors"
	"net/http"

	"github.com/relaygate/relaygate/internal/domain"
)

// HTTPError represents an HTTP error response.
type HTTPError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e HTTPError) Error() string {
	return e.Message
}

// httpMapping defines a domain error to HTTP status/code mapping.
type httpMapping struct {
	err        error
	statusCode int
	code       string
}

// httpMappings maps domain errors to HTTP status codes and stable error
// codes. Order matters: first match wins (via errors.Is).
var httpMappings = []httpMapping{
	// Routing
	{domain.ErrEndpointNotFound, http.StatusNotFound, "ENDPOINT_NOT_FOUND"},
	{domain.ErrInstanceNotFound, http.StatusNotFound, "INSTANCE_NOT_FOUND"},

	// Instance state
	{domain.ErrInstanceNotConnected, http.StatusConflict, "INSTANCE_NOT_CONNECTED"},

	// Auth
	{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{domain.ErrForbidden, http.StatusForbidden, "PERMISSION_DENIED"},

	// Validation — 400
	{domain.ErrInstanceRequired, http.StatusBadRequest, "INVALID_ARGUMENT"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "INVALID_ARGUMENT"},

	// Quota — 429
	{domain.ErrQuotaExceeded, http.StatusTooManyRequests, "QUOTA_EXCEEDED"},

	// Upstream
	{domain.ErrUpstreamValidation, http.StatusUnprocessableEntity, "UPSTREAM_REJECTED"},
	{domain.ErrUpstreamTimeout, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT"},
	{domain.ErrUpstreamUnavailable, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"},
	{domain.ErrCircuitOpen, http.StatusServiceUnavailable, "CIRCUIT_OPEN"},

	// Backing stores
	{domain.ErrStoreUnavailable, http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
}

// ToHTTPError converts a domain error to an HTTP error.
func ToHTTPError(err error) HTTPError {
	if err == nil {
		return HTTPError{StatusCode: http.StatusOK}
	}
	for _, m := range httpMappings {
		if errors.Is(err, m.err) {
			return HTTPError{StatusCode: m.statusCode, Code: m.code, Message: err.Error()}
		}
	}
	// Never expose internal error details to clients
	return HTTPError{StatusCode: http.StatusInternalServerError, Code: "INTERNAL", Message: "internal error"}
}

// Code extracts the stable error code for a domain error.
func Code(err error) string {
	return ToHTTPError(err).Code
}

// ToHTTPStatusCode extracts just the HTTP status code for a domain error.
func ToHTTPStatusCode(err error) int {
	return ToHTTPError(err).StatusCode
}

// StatusClass returns the metrics label for an outcome: "2xx" for nil
// errors, otherwise derived from the mapped status code.
func StatusClass(err error) string {
	status := ToHTTPStatusCode(err)
	switch {
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
