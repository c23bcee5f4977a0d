package services_test

import (
	"context"
	"testing"

	"petsync/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithActionID(ctx, "a-42")
	ctx = services.WithActionType(ctx, "submit_story")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.ActionIDFromContext(ctx); !ok || id != "a-42" {
		t.Fatalf("unexpected action id: %v %v", id, ok)
	}
	if typ, ok := services.ActionTypeFromContext(ctx); !ok || typ != "submit_story" {
		t.Fatalf("unexpected action type: %v %v", typ, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithActionType(ctx, "")
	ctx = services.WithActionID(ctx, "")
	if _, ok := services.ActionTypeFromContext(ctx); ok {
		t.Fatal("expected no action type value")
	}
	if _, ok := services.ActionIDFromContext(ctx); ok {
		t.Fatal("expected no action id value")
	}
}
