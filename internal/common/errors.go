package common

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorKind groups failures by the part of the pipeline that produced them.
type ErrorKind string

const (
	KindFile       ErrorKind = "file"
	KindDocument   ErrorKind = "document"
	KindImage      ErrorKind = "image"
	KindEngine     ErrorKind = "engine"
	KindValidation ErrorKind = "validation"
	KindInternal   ErrorKind = "internal"
	KindCanceled   ErrorKind = "canceled"
)

// AppError represents application-specific errors
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Details map[string]any
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

// Common application errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInternal          = errors.New("internal error")
	ErrDatabase          = errors.New("database error")
	ErrValidation        = errors.New("validation failed")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrCorrupted         = errors.New("document corrupted")
	ErrPasswordProtected = errors.New("document is password protected")
	ErrEmptyDocument     = errors.New("document has no pages")
	ErrImageDecode       = errors.New("image could not be decoded")
	ErrEngineNotFound    = errors.New("ocr engine not found")
	ErrEngineUnavailable = errors.New("ocr engine unavailable")
	ErrRecognition       = errors.New("recognition failed")
	ErrCanceled          = errors.New("operation canceled")
	ErrDeadlineExceeded  = errors.New("operation deadline exceeded")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Kind:    kindForCause(cause),
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func NewFileNotFound(path string) *AppError {
	return &AppError{
		Kind:    KindFile,
		Code:    "FILE_NOT_FOUND",
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
		Cause:   ErrNotFound,
	}
}

func NewUnsupportedFormat(path, ext string) *AppError {
	return &AppError{
		Kind:    KindFile,
		Code:    "UNSUPPORTED_FORMAT",
		Message: fmt.Sprintf("unsupported file type %q", ext),
		Details: map[string]any{"path": path, "extension": ext},
		Cause:   ErrUnsupportedFormat,
	}
}

// NewDocumentError builds a document-kind error around one of the document sentinels.
func NewDocumentError(sentinel error, path string, cause error) *AppError {
	code := "DOCUMENT_ERROR"
	switch sentinel {
	case ErrCorrupted:
		code = "DOCUMENT_CORRUPTED"
	case ErrPasswordProtected:
		code = "DOCUMENT_PASSWORD_PROTECTED"
	case ErrEmptyDocument:
		code = "DOCUMENT_EMPTY"
	case ErrNotFound:
		return NewFileNotFound(path)
	}
	msg := sentinel.Error()
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &AppError{
		Kind:    KindDocument,
		Code:    code,
		Message: msg,
		Details: map[string]any{"path": path},
		Cause:   sentinel,
	}
}

func NewImageDecodeError(path string, cause error) *AppError {
	msg := fmt.Sprintf("cannot decode image %s", path)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &AppError{
		Kind:    KindImage,
		Code:    "IMAGE_DECODE_FAILED",
		Message: msg,
		Details: map[string]any{"path": path},
		Cause:   ErrImageDecode,
	}
}

// NewEngineNotFound reports an unknown or unconstructible engine together with the names that are registered.
func NewEngineNotFound(requested string, available []string, cause error) *AppError {
	names := append([]string(nil), available...)
	sort.Strings(names)
	msg := fmt.Sprintf("ocr engine %q not found; available: %v", requested, names)
	wrapped := ErrEngineNotFound
	if cause != nil {
		msg = fmt.Sprintf("failed to create ocr engine %q: %v", requested, cause)
		wrapped = fmt.Errorf("%w: %w", ErrEngineNotFound, cause)
	}
	return &AppError{
		Kind:    KindEngine,
		Code:    "ENGINE_NOT_FOUND",
		Message: msg,
		Details: map[string]any{
			"requested_engine":  requested,
			"available_engines": names,
		},
		Cause: wrapped,
	}
}

func NewEngineUnavailable(engine string, cause error) *AppError {
	msg := fmt.Sprintf("ocr engine %q is not available", engine)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &AppError{
		Kind:    KindEngine,
		Code:    "ENGINE_UNAVAILABLE",
		Message: msg,
		Details: map[string]any{"engine": engine},
		Cause:   ErrEngineUnavailable,
	}
}

func NewRecognitionError(engine string, cause error) *AppError {
	return &AppError{
		Kind:    KindEngine,
		Code:    "RECOGNITION_FAILED",
		Message: fmt.Sprintf("ocr engine %q failed: %v", engine, cause),
		Details: map[string]any{"engine": engine},
		Cause:   ErrRecognition,
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Code:    "VALIDATION_ERROR",
		Message: message,
		Cause:   ErrValidation,
	}
}

// NewCanceled reports an operation stopped by its context. The context error
// stays in the chain.
func NewCanceled(err error, op string) *AppError {
	sentinel, code := ErrCanceled, "CANCELED"
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrDeadlineExceeded) {
		sentinel, code = ErrDeadlineExceeded, "DEADLINE_EXCEEDED"
	}
	return &AppError{
		Kind:    KindCanceled,
		Code:    code,
		Message: fmt.Sprintf("%s: %v", op, err),
		Cause:   fmt.Errorf("%w: %w", sentinel, err),
	}
}

// Internal wraps an unexpected error as an internal-kind error. Known AppErrors
// pass through and context errors become canceled-kind errors.
func Internal(err error, op string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	if isContextErr(err) {
		return NewCanceled(err, op)
	}
	return &AppError{
		Kind:    KindInternal,
		Code:    "INTERNAL",
		Message: fmt.Sprintf("%s: %v", op, err),
		Cause:   ErrInternal,
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// KindOf returns the kind carried by err. Foreign errors are internal unless
// they come from a context.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Kind != "" {
		return appErr.Kind
	}
	if isContextErr(err) {
		return KindCanceled
	}
	return KindInternal
}

// AvailableEngines extracts the registered engine names from an engine-not-found error.
func AvailableEngines(err error) []string {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Details == nil {
		return nil
	}
	names, _ := appErr.Details["available_engines"].([]string)
	return names
}

func kindForCause(cause error) ErrorKind {
	switch {
	case cause == nil:
		return KindInternal
	case errors.Is(cause, ErrNotFound), errors.Is(cause, ErrUnsupportedFormat):
		return KindFile
	case errors.Is(cause, ErrCorrupted), errors.Is(cause, ErrPasswordProtected), errors.Is(cause, ErrEmptyDocument):
		return KindDocument
	case errors.Is(cause, ErrImageDecode):
		return KindImage
	case errors.Is(cause, ErrEngineNotFound), errors.Is(cause, ErrEngineUnavailable), errors.Is(cause, ErrRecognition):
		return KindEngine
	case errors.Is(cause, ErrInvalidInput), errors.Is(cause, ErrValidation):
		return KindValidation
	case errors.Is(cause, ErrCanceled), errors.Is(cause, ErrDeadlineExceeded), isContextErr(cause):
		return KindCanceled
	}
	return KindInternal
}

// ToStatus maps an error onto a gRPC status error.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch KindOf(err) {
	case KindValidation:
		return InvalidArgumentError(err.Error())
	case KindFile:
		if errors.Is(err, ErrNotFound) {
			return NotFoundError(err.Error())
		}
		return InvalidArgumentError(err.Error())
	case KindDocument, KindImage:
		return status.Error(codes.FailedPrecondition, err.Error())
	case KindEngine:
		if errors.Is(err, ErrEngineNotFound) {
			return NotFoundError(err.Error())
		}
		return status.Error(codes.Unavailable, err.Error())
	case KindCanceled:
		if errors.Is(err, ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			return status.Error(codes.DeadlineExceeded, err.Error())
		}
		return status.Error(codes.Canceled, err.Error())
	}
	return InternalError(err.Error())
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}
