// Rendering capability consumed by the scrapers.
// Selectors carry an engine prefix ("css=" or "xpath="); CSS is assumed when none is given.

package browser

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrTimeout is returned by WaitForElement when the selector never matched.
	ErrTimeout = errors.New("timed out waiting for element")
	// ErrClosed is returned when a page is used after Close.
	ErrClosed = errors.New("page is closed")
)

// Element is a single node of a rendered page.
type Element interface {
	// Text returns the visible text of the element, trimmed.
	Text() (string, error)
	// Attribute returns the named attribute and whether it was present.
	Attribute(name string) (string, bool, error)
}

// Page is one rendered tab. It is not safe for concurrent use.
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL() string
	WaitForElement(selector string, timeout time.Duration) error
	FindElement(selector string) (Element, bool, error)
	FindElements(selector string) ([]Element, error)
	ExecuteScript(script string) error
	Title() (string, error)
	Close() error
}

// Session owns the underlying browser process (or HTTP client) and hands out pages.
type Session interface {
	NewPage() (Page, error)
	Close() error
}

// Screenshotter is implemented by pages that can capture themselves.
type Screenshotter interface {
	Screenshot(path string) error
}

const (
	engineCSS   = "css"
	engineXPath = "xpath"
)

// splitSelector separates the engine prefix from the query.
func splitSelector(selector string) (engine, query string) {
	switch {
	case strings.HasPrefix(selector, "xpath="):
		return engineXPath, strings.TrimPrefix(selector, "xpath=")
	case strings.HasPrefix(selector, "css="):
		return engineCSS, strings.TrimPrefix(selector, "css=")
	case strings.HasPrefix(selector, "//"), strings.HasPrefix(selector, "(//"):
		return engineXPath, selector
	}
	return engineCSS, selector
}

// collapseSpace trims s and folds runs of whitespace into single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
