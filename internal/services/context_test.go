package services_test

import (
	"context"
	"testing"

	"plexconverter/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, 42)
	ctx = services.WithWorkerID(ctx, "worker-1")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected job id: %v %v", id, ok)
	}
	if worker, ok := services.WorkerIDFromContext(ctx); !ok || worker != "worker-1" {
		t.Fatalf("unexpected worker id: %v %v", worker, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankWorkerPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithWorkerID(ctx, "")
	if _, ok := services.WorkerIDFromContext(ctx); ok {
		t.Fatal("expected no worker value")
	}
}
