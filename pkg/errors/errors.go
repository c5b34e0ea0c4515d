package errors

import (
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error is a classified failure that is not tied to a single HTTP status,
// such as a connection failure or an undecodable response body.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// RemoteError is returned when the remote answered with a non-2xx status,
// either immediately or after retries were exhausted. StatusCode 0 means no
// usable response arrived; Err then holds the transport failure.
type RemoteError struct {
	StatusCode int
	URL        string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode == 0 {
		msg := "remote error: connection failed"
		if e.URL != "" {
			msg += " for " + e.URL
		}
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
		return msg
	}
	if e.URL == "" {
		return fmt.Sprintf("remote error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("remote error: status %d for %s", e.StatusCode, e.URL)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Type classifies the status code.
func (e *RemoteError) Type() ErrorType {
	switch {
	case e.StatusCode == 0:
		return ErrorTypeNetwork
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return ErrorTypeAuth
	case e.StatusCode == http.StatusNotFound:
		return ErrorTypeNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case e.StatusCode >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeUnknown
	}
}

// Retryable reports whether another attempt may succeed.
func (e *RemoteError) Retryable() bool {
	return IsRetryableStatusCode(e.StatusCode)
}

// ManifestParseError wraps a failure to read a broadcast manifest.
type ManifestParseError struct {
	Err error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("manifest parse error: %v", e.Err)
}

func (e *ManifestParseError) Unwrap() error {
	return e.Err
}

// EmptySetError is returned when a selection is asked of an empty list.
type EmptySetError struct {
	Field string
}

func (e *EmptySetError) Error() string {
	if e.Field == "" {
		return "empty set: nothing to select from"
	}
	return fmt.Sprintf("empty set: %s has no entries", e.Field)
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a transient
// failure. Zero stands for a connection that failed before headers arrived.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0:
		return true
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
