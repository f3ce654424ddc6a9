// Package browser provides the rendering backends the harvesting pipeline
// drives: a headless Chrome session and a static HTTP fallback.
package browser

import (
	"context"
	"errors"
)

// ErrNotLoaded is returned by page queries before any successful Navigate
var ErrNotLoaded = errors.New("browser: no page loaded")

// ErrUnsupported is returned when a backend cannot perform an action
var ErrUnsupported = errors.New("browser: action not supported by backend")

// Page is one navigable page context. It is shared sequentially across
// categories so cookies, consent state and locale overrides persist.
type Page interface {
	// Navigate loads url and returns once the DOM is ready
	Navigate(ctx context.Context, url string) error

	// WaitIdle waits for network activity to settle. Callers bound it with ctx.
	WaitIdle(ctx context.Context) error

	// URL returns the landed URL after redirects
	URL(ctx context.Context) (string, error)

	// ClickFirst clicks the first visible button or link whose text matches
	// pattern case-insensitively. Patterns use Go regexp syntax.
	// It reports whether anything was clicked.
	ClickFirst(ctx context.Context, pattern string) (bool, error)

	// Count returns the number of elements matching a CSS selector
	Count(ctx context.Context, selector string) (int, error)

	// RevealMore scrolls to trigger lazy loading
	RevealMore(ctx context.Context) error

	// HTML returns the serialized markup of the current document
	HTML(ctx context.Context) (string, error)

	// Screenshot returns a PNG capture of the page
	Screenshot(ctx context.Context) ([]byte, error)

	Close() error
}
