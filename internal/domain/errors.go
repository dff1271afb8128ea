package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) error {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewValidationError creates a new validation error
func NewValidationError(msg string) error {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: msg,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError() error {
	return &DomainError{
		Code:    ErrCodeUnauthorized,
		Message: "Authentication required",
	}
}

// NewInternalError wraps an unexpected failure
func NewInternalError(msg string, err error) error {
	return &DomainError{
		Code:    ErrCodeInternal,
		Message: msg,
		Err:     err,
	}
}

func hasCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsNotFoundError checks if error is a not found error
func IsNotFoundError(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsValidationError checks if error is a validation error
func IsValidationError(err error) bool { return hasCode(err, ErrCodeValidation) }

// IsUnauthorizedError checks if error is an unauthorized error
func IsUnauthorizedError(err error) bool { return hasCode(err, ErrCodeUnauthorized) }
