package errors

import (
	"errors"
	"fmt"
)

// ShopError is the structured error type for perfshop.
// It carries enough context for logging, API responses and CLI output.
type ShopError struct {
	// Code is the unique error code (e.g., "ERR_402_UNKNOWN_FLAG").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is derived from the code.
	Category Category

	// Severity is derived from the code.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable hint for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *ShopError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *ShopError) Unwrap() error {
	return e.Cause
}

// Is matches another ShopError by code, so errors.Is works against
// sentinel values built with New.
func (e *ShopError) Is(target error) bool {
	if t, ok := target.(*ShopError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *ShopError) WithDetail(key, value string) *ShopError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *ShopError) WithSuggestion(suggestion string) *ShopError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ShopError with the given code and message.
func New(code string, message string, cause error) *ShopError {
	return &ShopError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a ShopError from an existing error.
func Wrap(code string, err error) *ShopError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *ShopError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *ShopError {
	return New(ErrCodeInvalidInput, message, cause)
}

// ChannelError creates a background channel error.
func ChannelError(message string, cause error) *ShopError {
	return New(ErrCodeChannelRejected, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *ShopError {
	return New(ErrCodeInternal, message, cause)
}

// GetCode extracts the error code from a ShopError anywhere in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var se *ShopError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// GetCategory extracts the category from a ShopError anywhere in the chain.
func GetCategory(err error) Category {
	var se *ShopError
	if errors.As(err, &se) {
		return se.Category
	}
	return ""
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return GetCategory(err) == CategoryValidation
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var se *ShopError
	if errors.As(err, &se) {
		return se.Severity == SeverityFatal
	}
	return false
}
