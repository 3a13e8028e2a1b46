// Package browser defines the browser session capability used by a check-in
// run and provides its Playwright implementation.
//
// A Session is owned by exactly one attempt. It is never reused: the next
// attempt launches a fresh one so no DOM or cookie state carries over.
package browser

import "context"

// Element is a located page element.
type Element interface {
	// Type sends text to the element one key at a time.
	Type(text string) error

	// Click activates the element.
	Click() error

	// Text returns the rendered text of the element.
	Text() (string, error)
}

// Session is a live browser page.
type Session interface {
	// Navigate loads url and waits for the load event.
	Navigate(url string) error

	// Locate waits for the first element matching selector to be attached.
	// A missing element fails with ErrInteraction.
	Locate(selector string) (Element, error)

	// Exists reports whether selector matches anything right now, without waiting.
	Exists(selector string) (bool, error)

	// CaptureBody returns the current page HTML.
	CaptureBody() (string, error)

	// CaptureScreenshot returns a full-page PNG.
	CaptureScreenshot() ([]byte, error)

	// ResizeViewport sets the viewport size in pixels.
	ResizeViewport(width, height int) error

	// PendingRequests is the number of network requests still in flight.
	PendingRequests() int

	// Close releases the page, context and browser. Safe to call twice.
	Close() error
}

// Launcher creates fresh sessions.
type Launcher interface {
	// Launch starts a new, isolated browser session.
	Launch(ctx context.Context) (Session, error)
}
