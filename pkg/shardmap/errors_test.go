package shardmap

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Is(t *testing.T) {
	detailed := ErrAlreadyExists.WithDetails("key 7")
	if !errors.Is(detailed, ErrAlreadyExists) {
		t.Error("errors.Is should match on code regardless of details")
	}
	if errors.Is(detailed, ErrOutOfMemory) {
		t.Error("errors.Is matched a different code")
	}

	wrapped := fmt.Errorf("bench: %w", ErrOutOfMemory)
	if !errors.Is(wrapped, ErrOutOfMemory) {
		t.Error("errors.Is should see through fmt wrapping")
	}
	if got := Code(wrapped); got != "SM-MAP-5070" {
		t.Errorf("Code() = %q, want SM-MAP-5070", got)
	}
	if got := Code(errors.New("plain")); got != "" {
		t.Errorf("Code(plain) = %q, want empty", got)
	}
}

func TestError_Message(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{ErrDoesNotExist, "[SM-MAP-4040] key does not exist"},
		{ErrInvalidBucketCount.WithDetails("got 0"), "[SM-MAP-4000] bucket count must be positive: got 0"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestError_Cause(t *testing.T) {
	cause := errors.New("boom")
	err := ErrInvalidConfig.WithCause(cause)
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable through Unwrap")
	}
	if ErrInvalidConfig.Cause != nil {
		t.Error("WithCause mutated the sentinel")
	}
}
