// Package browser defines the narrow page-rendering surface the crawl
// consumes, plus a headless-browser implementation of it.
package browser

import (
	"context"
	"time"
)

// WaitCondition selects how long Navigate blocks after the navigation
// request is issued.
type WaitCondition int

const (
	// WaitLoad returns once the document load event fires.
	WaitLoad WaitCondition = iota
	// WaitNetworkIdle additionally waits for the page to stop mutating,
	// which on script-heavy listings approximates network idle.
	WaitNetworkIdle
)

// Session is the single shared navigation context for one crawl run. The
// page lister and card fetcher own it exclusively for the duration of their
// calls; nothing navigates concurrently.
type Session interface {
	// Navigate drives the page to url and blocks per cond. A timeout or
	// network failure is returned as an error, recoverable by the caller's
	// retry policy.
	Navigate(ctx context.Context, url string, cond WaitCondition, timeout time.Duration) error

	// WaitForElement reports whether an element matching selector appeared
	// before the timeout. It never returns an error; absence is a normal
	// outcome.
	WaitForElement(selector string, timeout time.Duration) bool

	// CountElements returns how many elements currently match selector.
	CountElements(selector string) int

	// AttributeAll returns attr for every element matching selector,
	// skipping elements without the attribute.
	AttributeAll(selector, attr string) []string

	// Evaluate runs script in the page and returns its object result as a
	// string map. Used to batch-read all meta tags and the document title
	// in one round trip.
	Evaluate(script string) (map[string]string, error)

	// HTML returns the full page markup for extraction strategies that
	// need structural context beyond meta tags.
	HTML() (string, error)

	Close() error
}
