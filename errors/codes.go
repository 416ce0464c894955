package errors

// ErrorCategory classifies errors by their nature and retry semantics.
type ErrorCategory string

const (
	// CategoryTransient indicates temporary failures where retry may succeed.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	// Examples: invalid input, memory not found.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryResource indicates exhaustion of a limited resource (rate limits).
	CategoryResource ErrorCategory = "resource"

	// CategoryInternal indicates storage failures, corrupted entries or bugs.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	switch c {
	case CategoryTransient, CategoryResource:
		return true
	default:
		return false
	}
}

// ErrorCode identifies specific error types within categories.
type ErrorCode string

const (
	// Transient errors
	ErrCodeTimeout     ErrorCode = "TIMEOUT"     // Operation timed out
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE" // Dependency temporarily unavailable

	// Permanent errors
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"          // No entry under the storage key
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"      // Malformed request or record
	ErrCodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED" // Route exists, verb does not
	ErrCodeCanceled         ErrorCode = "CANCELED"           // Caller went away

	// Resource errors
	ErrCodeRateLimit ErrorCode = "RATE_LIMITED" // Write budget exhausted

	// Internal errors
	ErrCodeStorage    ErrorCode = "STORAGE"    // Storage medium unwritable/unreadable
	ErrCodeCorruption ErrorCode = "CORRUPTION" // Entry body failed to decode
	ErrCodeInternal   ErrorCode = "INTERNAL"   // Unexpected internal error
	ErrCodePanic      ErrorCode = "PANIC"      // Recovered from panic
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeTimeout, ErrCodeUnavailable:
		return CategoryTransient
	case ErrCodeNotFound, ErrCodeInvalidInput, ErrCodeMethodNotAllowed, ErrCodeCanceled:
		return CategoryPermanent
	case ErrCodeRateLimit:
		return CategoryResource
	default:
		return CategoryInternal
	}
}

// DefaultRetryable returns whether this error code is typically retryable.
func (c ErrorCode) DefaultRetryable() bool {
	return c.DefaultCategory().IsRetryable()
}

var codeDescriptions = map[ErrorCode]string{
	ErrCodeTimeout:          "operation timed out",
	ErrCodeUnavailable:      "service temporarily unavailable",
	ErrCodeNotFound:         "memory not found",
	ErrCodeInvalidInput:     "invalid input provided",
	ErrCodeMethodNotAllowed: "method not allowed",
	ErrCodeCanceled:         "operation canceled",
	ErrCodeRateLimit:        "rate limit exceeded",
	ErrCodeStorage:          "storage unavailable",
	ErrCodeCorruption:       "corrupted memory entry",
	ErrCodeInternal:         "internal error",
	ErrCodePanic:            "recovered from panic",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}
