package utils

import (
	"errors"
	"testing"
)

func TestWrapNilPassesThrough(t *testing.T) {
	if got := Wrap(nil, "context"); got != nil {
		t.Fatalf("expected Wrap(nil, ...) to return nil, got %v", got)
	}
}

func TestWrapPreservesUnwrap(t *testing.T) {
	cause := errors.New("boom")
	wrapped := Wrap(cause, "doing a thing")
	if !errors.Is(wrapped, cause) {
		t.Fatalf("expected errors.Is to find the wrapped cause")
	}
	if wrapped.Error() != "doing a thing: boom" {
		t.Fatalf("unexpected error message: %s", wrapped.Error())
	}
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("CKB_TEST_ENV_VAR", "set-value")
	if got := EnvOrDefault("CKB_TEST_ENV_VAR", "fallback"); got != "set-value" {
		t.Fatalf("expected set environment value, got %q", got)
	}
	if got := EnvOrDefault("CKB_TEST_ENV_VAR_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback value, got %q", got)
	}
}
