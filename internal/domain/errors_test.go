package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := Errorf(CodeNotFound, "lobby %s not found", "x")
	wrapped := fmt.Errorf("join: %w", err)

	if !errors.Is(wrapped, ErrNotFound) {
		t.Fatalf("expected wrapped error to match ErrNotFound")
	}
	if errors.Is(wrapped, ErrConflict) {
		t.Fatalf("did not expect match with ErrConflict")
	}
	if CodeOf(wrapped) != CodeNotFound {
		t.Fatalf("unexpected code %q", CodeOf(wrapped))
	}
}

func TestCodeOfNonDomainError(t *testing.T) {
	if got := CodeOf(errors.New("boom")); got != CodeInternal {
		t.Fatalf("expected internal, got %q", got)
	}
	if got := CodeOf(nil); got != "" {
		t.Fatalf("expected empty code for nil, got %q", got)
	}
}

func TestErrorEventHidesInternalDetails(t *testing.T) {
	ev := ErrorEvent("lobby", errors.New("sql: connection refused"))
	if ev.Error.Code != CodeInternal || ev.Error.Message != "internal error" {
		t.Fatalf("unexpected error payload: %+v", ev.Error)
	}

	ev = ErrorEvent("chat", Errorf(CodeInvalidArgument, "message too long"))
	if ev.Namespace != "chat" || ev.Error.Code != CodeInvalidArgument {
		t.Fatalf("unexpected event: %+v", ev)
	}
}
