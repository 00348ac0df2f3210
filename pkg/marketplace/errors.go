package marketplace

import (
	"context"
	"errors"
	"fmt"
)

// Domain-level error values returned by the façade and its collaborators.
var (
	ErrExtensionNotFound    = errors.New("extension not found")
	ErrNotConnected         = errors.New("wallet not connected")
	ErrConnectionFailed     = errors.New("wallet connection failed")
	ErrConnectInProgress    = errors.New("wallet connection in progress")
	ErrSigningFailed        = errors.New("signing failed")
	ErrInvalidInput         = errors.New("invalid input")
	ErrSubmissionFailed     = errors.New("submission failed")
	ErrStorageUnavailable   = errors.New("storage unavailable")
	ErrTimeout              = errors.New("timeout")
	ErrNFTNotFound          = errors.New("nft not found")
	ErrInvalidServiceConfig = errors.New("invalid service config")
)

// Stable error kinds reported in OperationResult.ErrorKind.
const (
	KindExtensionNotFound  = "extension_not_found"
	KindNotConnected       = "not_connected"
	KindConnectionFailed   = "connection_failed"
	KindConnectInProgress  = "connect_in_progress"
	KindSigningFailed      = "signing_failed"
	KindInvalidInput       = "invalid_input"
	KindSubmissionFailed   = "submission_failed"
	KindStorageUnavailable = "storage_unavailable"
	KindTimeout            = "timeout"
	KindNotFound           = "not_found"
	KindInternal           = "internal"
)

// ErrorKind maps an error onto its stable kind. A nil error has no kind.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrExtensionNotFound):
		return KindExtensionNotFound
	case errors.Is(err, ErrNotConnected):
		return KindNotConnected
	case errors.Is(err, ErrConnectInProgress):
		return KindConnectInProgress
	case errors.Is(err, ErrConnectionFailed):
		return KindConnectionFailed
	case errors.Is(err, ErrSigningFailed):
		return KindSigningFailed
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrSubmissionFailed):
		return KindSubmissionFailed
	case errors.Is(err, ErrStorageUnavailable):
		return KindStorageUnavailable
	case errors.Is(err, ErrNFTNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
