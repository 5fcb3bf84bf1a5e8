package apperr

import (
	"errors"
	"fmt"
	"testing"
)

// TestCodeOf verifies codes survive wrapping and unclassified errors are internal.
func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"direct", New(NotFound, "user %s missing", "u1"), NotFound},
		{"wrapped", fmt.Errorf("handler: %w", New(InvalidArgument, "bad")), InvalidArgument},
		{"plain", errors.New("boom"), Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestInternalKeepsCause verifies internal errors expose the underlying cause text.
func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(Internal, cause, "generating reply")

	if got := err.Error(); got != "generating reply: connection refused" {
		t.Errorf("Error() = %q", got)
	}
	if got := MessageOf(err); got != "generating reply: connection refused" {
		t.Errorf("MessageOf = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find the cause")
	}
}

// TestMessageOfClassified verifies non-internal errors report only their message.
func TestMessageOfClassified(t *testing.T) {
	err := Wrap(NotFound, errors.New("no rows"), "user profile not found")
	if got := MessageOf(err); got != "user profile not found" {
		t.Errorf("MessageOf = %q", got)
	}
}
