package errors

import (
	"errors"
	"fmt"
)

// Error types for different failure classes
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeSchema         ErrorType = "schema"
	ErrorTypeDataQuality    ErrorType = "data_quality"
	ErrorTypeConfiguration  ErrorType = "configuration"
	ErrorTypeInfrastructure ErrorType = "infrastructure"
	ErrorTypeInternal       ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type      ErrorType              `json:"type"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Cause     error                  `json:"-"`
	Retryable bool                   `json:"retryable"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Error constructors
func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:      ErrorTypeValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// NewSchemaError marks a contract break between the source and the pipeline.
// Schema errors abort the run: a missing or renamed column means every
// downstream number would be silently wrong.
func NewSchemaError(code, message string) *AppError {
	return &AppError{
		Type:      ErrorTypeSchema,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// NewDataQualityError marks row-level data that violates quality rules
// badly enough to fail the run. Routine exclusions are counted in run
// reports instead, not raised as errors.
func NewDataQualityError(code, message string) *AppError {
	return &AppError{
		Type:      ErrorTypeDataQuality,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

func NewConfigurationError(code, message string) *AppError {
	return &AppError{
		Type:      ErrorTypeConfiguration,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// NewInfrastructureError marks a failure in an external system the pipeline
// talks to. These are the only errors worth retrying a run for.
func NewInfrastructureError(component, message string) *AppError {
	return &AppError{
		Type:      ErrorTypeInfrastructure,
		Code:      "INFRASTRUCTURE_ERROR",
		Message:   fmt.Sprintf("%s: %s", component, message),
		Retryable: true,
		Details:   map[string]interface{}{"component": component},
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:      ErrorTypeInternal,
		Code:      "INTERNAL_ERROR",
		Message:   message,
		Retryable: true,
	}
}

// Predefined common errors
var (
	ErrInvalidInput = NewValidationError("INVALID_INPUT", "Invalid input provided")
	ErrNoStages     = NewConfigurationError("NO_STAGES", "Pipeline has no stages to run")
)

// Wrap wraps an error with a message using fmt.Errorf with %w
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapWithCode wraps an error and returns an AppError
func WrapWithCode(err error, code, message string) *AppError {
	return &AppError{
		Type:      ErrorTypeInternal,
		Code:      code,
		Message:   message,
		Retryable: true,
		Cause:     err,
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}
