package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExtraction     = errors.New("extraction error")
	ErrNoStream       = errors.New("no stream available")
	ErrRetrieval      = errors.New("retrieval error")
	ErrMerge          = errors.New("merge error")
	ErrTimeout        = errors.New("timeout")
	ErrCanceled       = errors.New("canceled")
	ErrInvalidRequest = errors.New("invalid request")
	// ErrCleanup marks best-effort cleanup failures. It is only ever logged.
	ErrCleanup = errors.New("cleanup warning")
)

// Error kinds reported in failure records.
const (
	KindExtraction     = "extraction_error"
	KindNoStream       = "no_stream_available"
	KindRetrieval      = "retrieval_error"
	KindMerge          = "merge_error"
	KindTimeout        = "timeout"
	KindCanceled       = "canceled"
	KindInvalidRequest = "invalid_request"
	KindInternal       = "internal_error"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrRetrieval
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// WrapContext tags err with ErrTimeout or ErrCanceled when the context ended,
// and with fallback otherwise.
func WrapContext(ctx context.Context, fallback error, stage, operation, message string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(ErrTimeout, stage, operation, message, err)
	case ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		return Wrap(ErrTimeout, stage, operation, message, err)
	case errors.Is(err, context.Canceled), ctx != nil && errors.Is(ctx.Err(), context.Canceled):
		return Wrap(ErrCanceled, stage, operation, message, err)
	default:
		return Wrap(fallback, stage, operation, message, err)
	}
}

// Kind maps an error to the machine-readable kind emitted in failure records.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrCanceled):
		return KindCanceled
	case errors.Is(err, ErrExtraction):
		return KindExtraction
	case errors.Is(err, ErrNoStream):
		return KindNoStream
	case errors.Is(err, ErrRetrieval):
		return KindRetrieval
	case errors.Is(err, ErrMerge):
		return KindMerge
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	default:
		return KindInternal
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "run failure"
	}
	return strings.Join(parts, ": ")
}
