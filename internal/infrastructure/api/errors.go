package api

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is any non-2xx answer from the storefront API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    interface{}
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d [%s]: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

var (
	// ErrSessionExpired is returned when a 401 survives the one-shot token refresh.
	ErrSessionExpired = errors.New("your session has expired, please sign in again")

	// ErrInvalidResponse is returned when a 2xx body cannot be decoded.
	ErrInvalidResponse = errors.New("invalid response from server")
)

// StatusCode returns the HTTP status carried by err, 0 when err is not an APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is an HTTP 404 from the API
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsUnauthorized reports whether err is an HTTP 401 from the API
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// MessageOr returns the server-provided message when there is one,
// otherwise fallback.
func MessageOr(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	if errors.Is(err, ErrSessionExpired) {
		return ErrSessionExpired.Error()
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
