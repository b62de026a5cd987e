package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
	}{
		{"navigation", ErrNavigation{URL: "https://shoob.gg/cards", Err: cause}},
		{"timeout", ErrTimeout{Err: cause}},
		{"evaluate", ErrEvaluate{Err: cause}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, cause) {
				t.Errorf("%v should unwrap to its cause", tt.err)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	wrapped := fmt.Errorf("navigate: %w", context.DeadlineExceeded)

	var timeout ErrTimeout
	if classified := classifyError(wrapped); !errors.As(classified, &timeout) {
		t.Errorf("deadline exceeded should classify as a timeout, got %T", classified)
	}

	plain := errors.New("boom")
	if classified := classifyError(plain); classified != plain {
		t.Errorf("unrelated errors should pass through, got %v", classified)
	}

	if classifyError(nil) != nil {
		t.Error("nil should stay nil")
	}
}

func TestErrorTypeLabel(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil", nil, "unknown"},
		{"timeout", ErrTimeout{Err: cause}, "timeout"},
		{"evaluate", ErrEvaluate{Err: cause}, "evaluate"},
		{"navigation", ErrNavigation{URL: "https://shoob.gg", Err: cause}, "navigation"},
		{"timeout wrapping navigation cause", ErrTimeout{Err: ErrNavigation{URL: "x", Err: cause}}, "timeout"},
		{"plain", cause, "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTypeLabel(tt.err); got != tt.expected {
				t.Errorf("errorTypeLabel(%v) = %q, want %q", tt.err, got, tt.expected)
			}
		})
	}
}
