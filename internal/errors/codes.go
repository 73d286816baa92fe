// Package errors provides structured error handling for perfshop.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (flag file, telemetry database)
//   - 3XX: Background channel errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and database I/O errors.
	CategoryIO Category = "IO"
	// CategoryChannel indicates background execution channel errors.
	CategoryChannel Category = "CHANNEL"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeFileNotFound  = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFileCorrupt   = "ERR_202_FILE_CORRUPT"
	ErrCodeFileLocked    = "ERR_203_FILE_LOCKED"
	ErrCodeStoreFailed   = "ERR_204_STORE_FAILED"
	ErrCodeCatalogFailed = "ERR_205_CATALOG_FAILED"

	// Channel errors (300-399)
	ErrCodeChannelUnavailable = "ERR_301_CHANNEL_UNAVAILABLE"
	ErrCodeChannelRejected    = "ERR_302_CHANNEL_REJECTED"
	ErrCodeChannelTerminated  = "ERR_303_CHANNEL_TERMINATED"
	ErrCodeChannelFailed      = "ERR_304_CHANNEL_FAILED"
	ErrCodeChannelProtocol    = "ERR_305_CHANNEL_PROTOCOL"

	// Validation errors (400-499)
	ErrCodeInvalidInput    = "ERR_401_INVALID_INPUT"
	ErrCodeUnknownFlag     = "ERR_402_UNKNOWN_FLAG"
	ErrCodeUnknownProduct  = "ERR_403_UNKNOWN_PRODUCT"
	ErrCodeOutOfStock      = "ERR_404_OUT_OF_STOCK"
	ErrCodeInvalidQuantity = "ERR_405_INVALID_QUANTITY"
	ErrCodeUnknownMetric   = "ERR_406_UNKNOWN_METRIC"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeSearchFailed = "ERR_502_SEARCH_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Numeric portion, e.g. "101" from "ERR_101_CONFIG_NOT_FOUND"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryChannel
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCatalogFailed:
		return SeverityFatal
	}

	// The dispatcher absorbs channel failures by falling back locally.
	if categoryFromCode(code) == CategoryChannel {
		return SeverityWarning
	}

	return SeverityError
}
