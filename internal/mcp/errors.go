// Package mcp exposes the storefront as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"

	shoperrors "github.com/Aman-CERP/perfshop/internal/errors"
)

// MCP error codes. The -32000 range is implementation defined.
const (
	ErrCodeNotFound    = -32001
	ErrCodeConflict    = -32002
	ErrCodeTimeout     = -32003
	ErrCodeUnavailable = -32004

	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603
)

// MCPError is a protocol error with a JSON-RPC style code.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError creates an error for invalid tool input.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	}

	var se *shoperrors.ShopError
	if !errors.As(err, &se) {
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}

	message := se.Message
	if se.Suggestion != "" {
		message = fmt.Sprintf("%s. %s", se.Message, se.Suggestion)
	}

	switch se.Code {
	case shoperrors.ErrCodeUnknownFlag, shoperrors.ErrCodeUnknownProduct:
		return &MCPError{Code: ErrCodeNotFound, Message: message}
	case shoperrors.ErrCodeOutOfStock:
		return &MCPError{Code: ErrCodeConflict, Message: message}
	}

	switch se.Category {
	case shoperrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case shoperrors.CategoryChannel:
		return &MCPError{Code: ErrCodeUnavailable, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
