// Package errors provides standardized error handling for the content feeds.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Fetch / source errors
const (
	ErrCodeFetchTimeout         ErrorCode = "FETCH_TIMEOUT"
	ErrCodeNetwork              ErrorCode = "NETWORK_ERROR"
	ErrCodeHTTP                 ErrorCode = "HTTP_ERROR"
	ErrCodeShapeValidation      ErrorCode = "SHAPE_VALIDATION_FAILED"
	ErrCodeAllSourcesExhausted  ErrorCode = "ALL_SOURCES_EXHAUSTED"
	ErrCodeSourceDisabled       ErrorCode = "SOURCE_DISABLED"
	ErrCodeCachePersistFailed   ErrorCode = "CACHE_PERSIST_FAILED"
	ErrCodeInvalidRequest       ErrorCode = "INVALID_REQUEST"
	ErrCodeRateLimited          ErrorCode = "RATE_LIMITED"
	ErrCodeUpstream             ErrorCode = "UPSTREAM_ERROR"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
	ErrCodeMethodNotAllowed     ErrorCode = "METHOD_NOT_ALLOWED"
	ErrCodeConfigurationMissing ErrorCode = "CONFIGURATION_MISSING"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error { return e.cause }

// Is matches another *StandardError with the same code, so callers can write
// errors.Is(err, &StandardError{Code: ErrCodeFetchTimeout}).
func (e *StandardError) Is(target error) bool {
	var t *StandardError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata returns the error with k=v added to its metadata.
func (e *StandardError) WithMetadata(k string, v interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[k] = v
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

// NewFetchTimeoutError creates a retryable timeout error.
func NewFetchTimeoutError(url string, timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeFetchTimeout,
		Message:   "Request timed out",
		Details:   fmt.Sprintf("url: %s, timeout: %s", url, timeout),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNetworkError creates a retryable transport-level error.
func NewNetworkError(url string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNetwork,
		Message:   "Network error",
		Details:   fmt.Sprintf("url: %s, error: %v", url, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewHTTPError creates an error for a non-2xx upstream status. Only 5xx is retryable.
func NewHTTPError(url string, status int) *StandardError {
	return &StandardError{
		Code:      ErrCodeHTTP,
		Message:   fmt.Sprintf("Upstream returned HTTP %d", status),
		Details:   fmt.Sprintf("url: %s", url),
		Retryable: status >= 500,
		Metadata:  map[string]interface{}{"status": status},
		Timestamp: time.Now().UTC(),
	}
}

// NewShapeValidationError creates a non-retryable error for a parsed payload that
// lacks the expected structure.
func NewShapeValidationError(source, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeShapeValidation,
		Message:   "Response did not have the expected shape",
		Details:   fmt.Sprintf("source: %s, %s", source, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAllSourcesExhaustedError creates the terminal error of a source chain.
func NewAllSourcesExhaustedError(resource string, tried []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAllSourcesExhausted,
		Message:   "No source produced usable data",
		Details:   fmt.Sprintf("resource: %s, tried: %s", resource, strings.Join(tried, ",")),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRequestError creates a non-retryable caller error.
func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRateLimitedError creates a retryable throttling error.
func NewRateLimitedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimited,
		Message:   "Too many requests",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamError wraps an error reported inside an otherwise successful upstream
// response (for example a Google status other than OK).
func NewUpstreamError(service, status, message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstream,
		Message:   fmt.Sprintf("%s API error", service),
		Details:   message,
		Retryable: false,
		Metadata:  map[string]interface{}{"status": status},
		Timestamp: time.Now().UTC(),
	}
}

// NewCachePersistError wraps a failed durable cache write.
func NewCachePersistError(backend string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCachePersistFailed,
		Message:   "Could not persist cache entry",
		Details:   fmt.Sprintf("backend: %s, error: %v", backend, err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInternalError wraps an unexpected error.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// AsStandardError normalizes any error to a *StandardError.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// CodeOf returns the code of err, or ErrCodeInternal for foreign errors.
func CodeOf(err error) ErrorCode {
	return AsStandardError(err).Code
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeFetchTimeout, ErrCodeNetwork, ErrCodeHTTP, ErrCodeUpstream:
		return "TRANSPORT"
	case ErrCodeShapeValidation:
		return "VALIDATION"
	case ErrCodeAllSourcesExhausted, ErrCodeSourceDisabled:
		return "SOURCE"
	case ErrCodeCachePersistFailed:
		return "CACHE"
	case ErrCodeInvalidRequest, ErrCodeMethodNotAllowed, ErrCodeRateLimited:
		return "REQUEST"
	default:
		return "OTHER"
	}
}

// HTTPStatus maps an error code to the status an HTTP surface should answer with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest, ErrCodeUpstream:
		return http.StatusBadRequest
	case ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeAllSourcesExhausted:
		return http.StatusServiceUnavailable
	case ErrCodeFetchTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeNetwork, ErrCodeHTTP, ErrCodeShapeValidation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
