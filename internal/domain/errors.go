package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates that the request was rate limited.
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates that a provider call did not complete in time.
	ErrTimeout = errors.New("timeout")

	// ErrParse indicates that a provider response could not be interpreted.
	ErrParse = errors.New("parse error")

	// ErrNetwork indicates a transport-level failure or an upstream server error.
	ErrNetwork = errors.New("network error")

	// ErrCacheMiss signals that no valid cache entry exists for a key.
	// It is a control-flow signal, not a failure.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCancelled indicates that an operation was cancelled.
	ErrCancelled = errors.New("cancelled")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError provides details about a not found entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// RateLimitError provides details about a rate limit error.
type RateLimitError struct {
	Source     string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by %s: retry after %s", e.Source, e.RetryAfter)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// TimeoutError reports a provider call that exceeded its deadline.
type TimeoutError struct {
	Source string
	After  time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if e.After > 0 {
		return fmt.Sprintf("%s timed out after %s", e.Source, e.After)
	}
	return fmt.Sprintf("%s timed out", e.Source)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// ParseError reports a provider response that could not be decoded.
type ParseError struct {
	Source string
	Cause  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: unparseable response", e.Source)
	}
	return fmt.Sprintf("%s: unparseable response: %v", e.Source, e.Cause)
}

// Unwrap exposes both the sentinel and the cause.
func (e *ParseError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Cause}
}

// NetworkError reports a transport failure or an upstream 5xx.
type NetworkError struct {
	Source string
	Cause  error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: network error", e.Source)
	}
	return fmt.Sprintf("%s: network error: %v", e.Source, e.Cause)
}

// Unwrap exposes both the sentinel and the cause.
func (e *NetworkError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrNetwork}
	}
	return []error{ErrNetwork, e.Cause}
}

// ExternalAPIError provides details about an external API error.
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *ExternalAPIError) Unwrap() error {
	return e.Cause
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewRateLimitError creates a new RateLimitError.
func NewRateLimitError(source string, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{
		Source:     source,
		RetryAfter: retryAfter,
	}
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(source string, after time.Duration) *TimeoutError {
	return &TimeoutError{
		Source: source,
		After:  after,
	}
}

// NewParseError creates a new ParseError.
func NewParseError(source string, cause error) *ParseError {
	return &ParseError{
		Source: source,
		Cause:  cause,
	}
}

// NewNetworkError creates a new NetworkError.
func NewNetworkError(source string, cause error) *NetworkError {
	return &NetworkError{
		Source: source,
		Cause:  cause,
	}
}

// NewExternalAPIError creates a new ExternalAPIError.
func NewExternalAPIError(source string, statusCode int, message string, cause error) *ExternalAPIError {
	return &ExternalAPIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}
