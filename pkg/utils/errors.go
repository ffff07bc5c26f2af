package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies application errors. Per-file error types never abort
// a batch; only validation errors abort the whole invocation.
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"  // bad CLI arguments or config, aborts the invocation
	ErrorTypeIO          ErrorType = "io"          // filesystem read/write failures
	ErrorTypeConversion  ErrorType = "conversion"  // the conversion library failed on a file
	ErrorTypeOCR         ErrorType = "ocr"         // OCR inference failed on a file
	ErrorTypeModelLoad   ErrorType = "model_load"  // OCR model could not be loaded, fatal for the run
	ErrorTypeDevice      ErrorType = "device"      // requested device unavailable, recovered by CPU fallback
	ErrorTypeUnsupported ErrorType = "unsupported" // no processor claims the extension
	ErrorTypeTimeout     ErrorType = "timeout"     // per-file wall-clock limit exceeded
	ErrorTypeTempFile    ErrorType = "temp_file"   // temp namespace cleanup failed
	ErrorTypeSystem      ErrorType = "system"
)

// AppError represents an application-specific error with context
type AppError struct {
	Type        ErrorType
	Message     string
	Cause       error
	Recoverable bool
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target by type
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Type == t.Type
	}
	return false
}

// NewError creates a new application error
func NewError(errorType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string, cause error) *AppError {
	return NewError(ErrorTypeValidation, message, cause)
}

// NewIOError creates an I/O error
func NewIOError(message string, cause error) *AppError {
	return NewError(ErrorTypeIO, message, cause)
}

// NewConversionError creates a conversion error
func NewConversionError(message string, cause error) *AppError {
	return NewError(ErrorTypeConversion, message, cause)
}

// NewOCRError creates an OCR inference error
func NewOCRError(message string, cause error) *AppError {
	return NewError(ErrorTypeOCR, message, cause)
}

// NewModelLoadError creates a model load error, fatal for the whole OCR run
func NewModelLoadError(message string, cause error) *AppError {
	return NewError(ErrorTypeModelLoad, message, cause)
}

// NewDeviceError creates a device unavailability error. It is marked
// recoverable since the engine falls back to CPU.
func NewDeviceError(message string, cause error) *AppError {
	err := NewError(ErrorTypeDevice, message, cause)
	err.Recoverable = true
	return err
}

// NewUnsupportedError creates an unsupported format error
func NewUnsupportedError(message string, cause error) *AppError {
	return NewError(ErrorTypeUnsupported, message, cause)
}

// NewTimeoutError creates a per-file timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return NewError(ErrorTypeTimeout, message, cause)
}

// NewTempFileError creates a temp cleanup error
func NewTempFileError(message string, cause error) *AppError {
	return NewError(ErrorTypeTempFile, message, cause)
}

// WrapError wraps an existing error with additional context. When errorType
// is empty the original AppError type is preserved, otherwise the error is
// classified from its content.
func WrapError(err error, errorType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok && errorType == "" {
		return &AppError{
			Type:        appErr.Type,
			Message:     message + ": " + appErr.Message,
			Cause:       appErr.Cause,
			Recoverable: appErr.Recoverable,
		}
	}

	if errorType == "" {
		errorType = classifyError(err)
	}

	return &AppError{
		Type:    errorType,
		Message: message,
		Cause:   err,
	}
}

// classifyError automatically classifies an error based on its content
func classifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeSystem
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return ErrorTypeTimeout
	case strings.Contains(errStr, "unsupported"):
		return ErrorTypeUnsupported
	case strings.Contains(errStr, "no such file") || strings.Contains(errStr, "permission denied"):
		return ErrorTypeIO
	case strings.Contains(errStr, "cuda") || strings.Contains(errStr, "opencl") || strings.Contains(errStr, "gpu"):
		return ErrorTypeDevice
	case strings.Contains(errStr, "ocr") || strings.Contains(errStr, "recogni"):
		return ErrorTypeOCR
	case strings.Contains(errStr, "convert") || strings.Contains(errStr, "parsing"):
		return ErrorTypeConversion
	case strings.Contains(errStr, "invalid"):
		return ErrorTypeValidation
	default:
		return ErrorTypeSystem
	}
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Recoverable
	}
	switch classifyError(err) {
	case ErrorTypeDevice:
		return true
	default:
		return false
	}
}

// GetErrorType extracts the error type from an error
func GetErrorType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return classifyError(err)
}

// IsFatal reports whether an error should abort the whole invocation rather
// than be recorded per-file.
func IsFatal(err error) bool {
	switch GetErrorType(err) {
	case ErrorTypeValidation, ErrorTypeModelLoad:
		return true
	default:
		return false
	}
}

// WithRetry executes a function, retrying on recoverable errors
func WithRetry(fn func() error, maxAttempts int) error {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsRecoverable(err) {
			return err
		}
	}

	return WrapError(lastErr, "", fmt.Sprintf("operation failed after %d attempts", maxAttempts))
}
