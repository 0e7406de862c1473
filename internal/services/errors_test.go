package services_test

import (
	"errors"
	"strings"
	"testing"

	"plexconverter/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrStorage, "queue", "enqueue", "shift positions", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"queue", "enqueue", "shift positions"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestKindClassification(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrNotFound, "workers", "status", "unknown worker", nil), "not_found"},
		{services.Wrap(services.ErrValidation, "workers", "register", "hostname required", nil), "invalid_input"},
		{services.Wrap(services.ErrConflict, "queue", "complete", "job not processing", nil), "conflict"},
		{errors.New("disk I/O error"), "storage"},
	}
	for _, tt := range tests {
		if got := services.Kind(tt.err); got != tt.want {
			t.Fatalf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
