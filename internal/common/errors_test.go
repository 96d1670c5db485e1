package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestNewEngineNotFoundListsAvailableEngines(t *testing.T) {
	err := NewEngineNotFound("abbyy", []string{"tesseract", "gosseract"}, nil)
	if !errors.Is(err, ErrEngineNotFound) {
		t.Fatalf("expected ErrEngineNotFound, got %v", err)
	}
	if KindOf(err) != KindEngine {
		t.Fatalf("kind = %q, want engine", KindOf(err))
	}
	names := AvailableEngines(fmt.Errorf("wrapped: %w", err))
	if len(names) != 2 || names[0] != "gosseract" || names[1] != "tesseract" {
		t.Fatalf("available engines = %v", names)
	}
	if err.Details["requested_engine"] != "abbyy" {
		t.Fatalf("requested_engine detail = %v", err.Details["requested_engine"])
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"file", NewFileNotFound("/x.pdf"), KindFile},
		{"document", NewDocumentError(ErrPasswordProtected, "/x.pdf", nil), KindDocument},
		{"image", NewImageDecodeError("/x.png", nil), KindImage},
		{"validation", NewValidationError("bad"), KindValidation},
		{"foreign", errors.New("boom"), KindInternal},
		{"config", NewAppError("CONFIG_ERROR", "x", ErrInvalidInput), KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Fatalf("KindOf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInternalPassesThroughKnownErrors(t *testing.T) {
	known := NewFileNotFound("/a")
	if got := Internal(known, "ctx"); got != error(known) {
		t.Fatalf("known error should pass through, got %v", got)
	}
	wrapped := Internal(errors.New("disk on fire"), "saving")
	if KindOf(wrapped) != KindInternal || !errors.Is(wrapped, ErrInternal) {
		t.Fatalf("unexpected wrap: %v", wrapped)
	}
	if Internal(nil, "x") != nil {
		t.Fatalf("nil should stay nil")
	}
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{NewFileNotFound("/a"), codes.NotFound},
		{NewUnsupportedFormat("/a.doc", "doc"), codes.InvalidArgument},
		{NewDocumentError(ErrCorrupted, "/a", nil), codes.FailedPrecondition},
		{NewEngineNotFound("x", nil, nil), codes.NotFound},
		{NewEngineUnavailable("tesseract", nil), codes.Unavailable},
		{NewValidationError("bad"), codes.InvalidArgument},
		{errors.New("boom"), codes.Internal},
		{Internal(context.Canceled, "process"), codes.Canceled},
		{Internal(fmt.Errorf("page 3: %w", context.DeadlineExceeded), "process"), codes.DeadlineExceeded},
		{context.Canceled, codes.Canceled},
	}
	for _, tt := range tests {
		st, _ := status.FromError(ToStatus(tt.err))
		if st.Code() != tt.want {
			t.Fatalf("ToStatus(%v) code = %v, want %v", tt.err, st.Code(), tt.want)
		}
	}
}

func TestContextErrorsAreCanceledKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		code     string
	}{
		{"canceled", context.Canceled, ErrCanceled, "CANCELED"},
		{"deadline", context.DeadlineExceeded, ErrDeadlineExceeded, "DEADLINE_EXCEEDED"},
		{"wrapped deadline", fmt.Errorf("ocr: %w", context.DeadlineExceeded), ErrDeadlineExceeded, "DEADLINE_EXCEEDED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Internal(tt.err, "process /a.pdf")
			if KindOf(err) != KindCanceled {
				t.Fatalf("kind = %q", KindOf(err))
			}
			if !errors.Is(err, tt.sentinel) || !errors.Is(err, tt.err) {
				t.Fatalf("chain lost: %v", err)
			}
			var appErr *AppError
			if !errors.As(err, &appErr) || appErr.Code != tt.code {
				t.Fatalf("code = %v", appErr)
			}
			if errors.Is(err, ErrInternal) {
				t.Fatalf("context error reported as internal")
			}
		})
	}
	if KindOf(NewAppError("X", "stopped", context.Canceled)) != KindCanceled {
		t.Fatalf("NewAppError should derive canceled kind")
	}
}
