package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches DomainErrors by code and message so wrapped copies of a
// sentinel still satisfy errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyQuery        = NewDomainError(ErrCodeValidation, "query cannot be empty")
	ErrUnknownEngine     = NewDomainError(ErrCodeValidation, "engine id is not configured")
	ErrInvalidScope      = NewDomainError(ErrCodeValidation, "invalid search scope")
	ErrInvalidBatchKind  = NewDomainError(ErrCodeValidation, "invalid batch kind")
	ErrMissingColumn     = NewDomainError(ErrCodeValidation, "missing required column")
	ErrEmptyBatch        = NewDomainError(ErrCodeValidation, "batch file has no rows")
	ErrMissingUploadFile = NewDomainError(ErrCodeValidation, "no file uploaded")
)

// Not found errors
var (
	ErrJobNotFound    = NewDomainError(ErrCodeNotFound, "batch job not found")
	ErrReportNotReady = NewDomainError(ErrCodeNotFound, "batch report not ready")
)

// Upstream errors
var (
	ErrSearchUnavailable = NewDomainError(ErrCodeUpstream, "search api request failed")
)

// ColumnError names a column required by a batch file.
type ColumnError struct {
	Column string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column %q", e.Column)
}

// MissingColumnError returns a validation error naming the absent column.
func MissingColumnError(column string) *DomainError {
	return NewDomainErrorWithCause(ErrCodeValidation, ErrMissingColumn.Message, &ColumnError{Column: column})
}
