package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"liepavoice/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "extract", "encode", "ffmpeg failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"extract", "encode", "ffmpeg failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutMarkerDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestFailureKindMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrConfiguration, "extract", "manifest", "missing", nil), "configuration"},
		{services.Wrap(services.ErrAuth, "publish", "whoami", "rejected", nil), "auth"},
		{services.Wrap(services.ErrValidation, "assemble", "split", "empty", nil), "validation"},
		{services.Wrap(services.ErrNotFound, "assemble", "load", "missing", nil), "not_found"},
		{fmt.Errorf("outer: %w", services.Wrap(services.ErrExternalTool, "extract", "decode", "", nil)), "external_tool"},
		{services.Wrap(nil, "publish", "commit", "retry later", nil), "transient"},
		{errors.New("plain"), "failed"},
	}
	for _, tc := range cases {
		if got := services.FailureKind(tc.err); got != tc.want {
			t.Fatalf("FailureKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
