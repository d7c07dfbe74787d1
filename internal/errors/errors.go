package errors

import (
	stderrors "errors"
	"fmt"

	"tumorexpr/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
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

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeConfigInvalid            = "CONFIG_INVALID"
	CodeDatabaseError            = "DATABASE_ERROR"
	CodeNotFound                 = "NOT_FOUND"
	CodeInternalError            = "INTERNAL_ERROR"
	CodeInvalidInput             = "INVALID_INPUT"
	CodeIOError                  = "IO_ERROR"
	CodeSchemaError              = "SCHEMA_ERROR"
	CodeMissingColumn            = "MISSING_COLUMN"
	CodeInsufficientGroups       = "INSUFFICIENT_GROUPS"
	CodeInsufficientData         = "INSUFFICIENT_DATA"
	CodeDegenerateStratification = "DEGENERATE_STRATIFICATION"
	CodeConvergence              = "CONVERGENCE_FAILED"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string) *AppError {
	return New(CodeDatabaseError, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

// IOError reports an unreadable or unwritable file, always naming the path
func IOError(path string, cause error) *AppError {
	return &AppError{
		Code:    CodeIOError,
		Message: fmt.Sprintf("cannot access %s", path),
		Cause:   cause,
	}
}

// Classify maps a domain error onto an AppError code so boundaries (HTTP, CLI)
// can report the violated contract without inspecting messages.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr.Code != CodeInternalError {
		return appErr.Code
	}
	switch {
	case stderrors.Is(err, core.ErrMissingColumn):
		return CodeMissingColumn
	case stderrors.Is(err, core.ErrSchema):
		return CodeSchemaError
	case stderrors.Is(err, core.ErrInsufficientGroups):
		return CodeInsufficientGroups
	case stderrors.Is(err, core.ErrDegenerateStratification):
		return CodeDegenerateStratification
	case stderrors.Is(err, core.ErrInsufficientData):
		return CodeInsufficientData
	case stderrors.Is(err, core.ErrConvergence):
		return CodeConvergence
	case stderrors.Is(err, core.ErrValidation):
		return CodeInvalidInput
	}
	return GetCode(err)
}
