package scraper

import (
	"context"
	"errors"
	"fmt"
)

// ErrNavigation indicates the browser failed to drive the page to a URL.
type ErrNavigation struct {
	URL string
	Err error
}

func (e ErrNavigation) Error() string {
	return fmt.Errorf("navigation %s: %w", e.URL, e.Err).Error()
}

func (e ErrNavigation) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates a wait operation exceeded its budget.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrEvaluate indicates an in-page script evaluation failed.
type ErrEvaluate struct {
	Err error
}

func (e ErrEvaluate) Error() string {
	return fmt.Errorf("evaluate: %w", e.Err).Error()
}

func (e ErrEvaluate) Unwrap() error {
	return e.Err
}

func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	return err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var evaluate ErrEvaluate
	if errors.As(err, &evaluate) {
		return "evaluate"
	}
	var navigation ErrNavigation
	if errors.As(err, &navigation) {
		return "navigation"
	}
	return "other"
}
