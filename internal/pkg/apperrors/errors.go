package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")

	// Authentication errors
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")
	ErrRateLimited      = errors.New("rate limit exceeded")
)

// Catalog errors
var (
	ErrCourseNotFound  = NewCustomError(ErrResourceNotFound, "course not found").WithCode("COURSE_NOT_FOUND")
	ErrSectionNotFound = NewCustomError(ErrResourceNotFound, "section not found").WithCode("SECTION_NOT_FOUND")
	ErrCatalogEmpty    = errors.New("catalog snapshot is not loaded")
)

// Transcript errors
var (
	ErrRecordNotFound    = NewCustomError(ErrResourceNotFound, "transcript record not found").WithCode("RECORD_NOT_FOUND")
	ErrDocumentNotFound  = NewCustomError(ErrResourceNotFound, "document not found").WithCode("DOCUMENT_NOT_FOUND")
	ErrExtractionFailed  = errors.New("transcript extraction failed")
	ErrInvalidTransition = errors.New("invalid transcript status transition")
	ErrRecordNotReady    = NewCustomError(ErrConflict, "transcript record is not processed").WithCode("RECORD_NOT_READY")
)

// Content Errors
var (
	ErrInvalidFormat = errors.New("invalid token format")
)

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// NewValidationError creates a validation error with a message
func NewValidationError(message string) error {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
	}
}

// NewExtractionError wraps the underlying decoder failure as an extraction failure
func NewExtractionError(cause error, message string) *CustomError {
	return &CustomError{
		Err:     ErrExtractionFailed,
		Message: message,
		Details: map[string]interface{}{"cause": cause.Error()},
	}
}

// Is returns whether target matches any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Code    string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}
