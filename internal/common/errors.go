package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Stable AppError codes.
const (
	CodeConfig          = "CONFIG_ERROR"
	CodeCorpusInvalid   = "CORPUS_INVALID"
	CodeUnreadableImage = "UNREADABLE_IMAGE"
	CodeOCRFailed       = "OCR_FAILED"
	CodeStorage         = "STORAGE_FAILED"
	CodeNotFound        = "NOT_FOUND"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// GRPCStatus lets status.FromError and status.Code understand AppError.
func (e *AppError) GRPCStatus() *status.Status {
	return status.New(grpcCode(e.Code), e.Error())
}

// Common application errors
var (
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrDatabase        = errors.New("database error")
	ErrUnreadableImage = errors.New("unreadable image")
	ErrOCRFailed       = errors.New("ocr failed")
	ErrCorpusInvalid   = errors.New("corpus invalid")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func grpcCode(code string) codes.Code {
	switch code {
	case CodeConfig, CodeCorpusInvalid:
		return codes.InvalidArgument
	case CodeUnreadableImage:
		return codes.FailedPrecondition
	case CodeNotFound:
		return codes.NotFound
	case CodeOCRFailed:
		return codes.Unavailable
	case CodeStorage:
		return codes.Internal
	default:
		return codes.Unknown
	}
}

// ExitCode maps an error to a process exit status for the command line tools.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch status.Code(err) {
	case codes.InvalidArgument:
		return 2
	case codes.NotFound:
		return 3
	case codes.Unavailable, codes.FailedPrecondition:
		return 4
	case codes.Internal:
		return 5
	default:
		return 1
	}
}
