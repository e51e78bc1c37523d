package diag

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorUnwrapsToSentinel(t *testing.T) {
	err := fmt.Errorf("compile app: %w", Unbound("foo"))
	if !errors.Is(err, ErrUnboundSymbol) {
		t.Fatalf("expected ErrUnboundSymbol in chain, got %v", err)
	}
	if errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("unexpected ErrTypeMismatch match")
	}
	if got := CodeOf(err); got != UnboundSymbol {
		t.Fatalf("CodeOf = %v, want UnboundSymbol", got)
	}
}

func TestErrorKeepsCause(t *testing.T) {
	cause := errors.New("mmap failed")
	err := Wrap(RegionExhausted, "g", cause)
	if !errors.Is(err, cause) || !errors.Is(err, ErrRegionExhausted) {
		t.Fatalf("wrapped error lost part of its chain: %v", err)
	}
	want := `global data region exhausted "g": mmap failed`
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestCodeString(t *testing.T) {
	if got := TypeMismatch.String(); got != "[TYP2001]: Type mismatch" {
		t.Fatalf("unexpected code string %q", got)
	}
	if got := Code(9999).Title(); got != "Unknown error" {
		t.Fatalf("unexpected title %q", got)
	}
}
