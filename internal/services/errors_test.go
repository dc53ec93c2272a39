package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"fetchmedia/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrMerge, "engine", "copy", "ffmpeg exited 1", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrMerge) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"engine", "copy", "ffmpeg exited 1", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutDetail(t *testing.T) {
	err := services.Wrap(services.ErrNoStream, "", "", "", nil)
	if err.Error() != "no stream available: run failure" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestKindMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"extraction", services.Wrap(services.ErrExtraction, "catalog", "resolve", "", errors.New("x")), services.KindExtraction},
		{"no stream", services.Wrap(services.ErrNoStream, "select", "", "", nil), services.KindNoStream},
		{"retrieval", services.Wrap(services.ErrRetrieval, "retrieve", "video", "", nil), services.KindRetrieval},
		{"merge", services.Wrap(services.ErrMerge, "engine", "", "", nil), services.KindMerge},
		{"timeout", services.Wrap(services.ErrTimeout, "engine", "", "", nil), services.KindTimeout},
		{"canceled", services.Wrap(services.ErrCanceled, "retrieve", "", "", nil), services.KindCanceled},
		{"invalid", services.Wrap(services.ErrInvalidRequest, "", "", "missing url", nil), services.KindInvalidRequest},
		{"plain", fmt.Errorf("something else"), services.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.Kind(tt.err); got != tt.want {
				t.Fatalf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapContextClassifiesDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()

	err := services.WrapContext(ctx, services.ErrRetrieval, "retrieve", "video", "", errors.New("read failed"))
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}

	canceled, stop := context.WithCancel(context.Background())
	stop()
	err = services.WrapContext(canceled, services.ErrRetrieval, "retrieve", "audio", "", context.Canceled)
	if !errors.Is(err, services.ErrCanceled) {
		t.Fatalf("expected canceled marker, got %v", err)
	}

	err = services.WrapContext(context.Background(), services.ErrRetrieval, "retrieve", "audio", "", errors.New("403"))
	if !errors.Is(err, services.ErrRetrieval) {
		t.Fatalf("expected retrieval marker, got %v", err)
	}
}
