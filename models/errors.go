package models

import (
	"errors"
	"fmt"
)

// Error codes used in logs, status responses and internal error handling.
const (
	ErrCodeSessionUnavailable = "SESSION_UNAVAILABLE"
	ErrCodeNavigationTimeout  = "NAVIGATION_TIMEOUT"
	ErrCodeNavigation         = "NAVIGATION_FAILED"
	ErrCodeElementNotFound    = "ELEMENT_NOT_FOUND"
	ErrCodeExtraction         = "EXTRACTION_ERROR"
	ErrCodeOverloaded         = "OVERLOADED"
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in JSON responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SearchError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type SearchError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *SearchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// NewSearchError creates a new SearchError.
func NewSearchError(code, message string, err error) *SearchError {
	return &SearchError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *SearchError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// CodeOf returns the code of the first SearchError in err's chain,
// ErrCodeInternal for any other non-nil error, and "" for nil.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var se *SearchError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}
