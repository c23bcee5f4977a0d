package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"petsync/internal/queue"
	"petsync/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrNetwork, "backend", "submit_story", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrNetwork) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"backend", "submit_story", "request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToUnknown(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrUnknown) {
		t.Fatalf("expected unknown marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want queue.ErrorKind
	}{
		{"nil", nil, ""},
		{"network", services.Wrap(services.ErrNetwork, "backend", "attempt", "timeout", nil), queue.ErrorKindNetwork},
		{"rejected", services.Wrap(services.ErrServerRejected, "backend", "attempt", "400", nil), queue.ErrorKindServerRejected},
		{"validation", fmt.Errorf("decode: %w", services.ErrValidation), queue.ErrorKindServerRejected},
		{"plain", errors.New("weird"), queue.ErrorKindUnknown},
		{"canceled", context.Canceled, queue.ErrorKindUnknown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Classify(tc.err); got != tc.want {
				t.Fatalf("Classify(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	if got := services.Message(nil); got != "" {
		t.Fatalf("expected empty message for nil, got %q", got)
	}
	if got := services.Message(errors.New("  ")); got != "unknown failure" {
		t.Fatalf("expected fallback message, got %q", got)
	}
	if got := services.Message(errors.New("server said no")); got != "server said no" {
		t.Fatalf("unexpected message %q", got)
	}
}
