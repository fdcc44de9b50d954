// Package browser defines the browser-automation capability consumed by the
// branch-driven site engines, plus its rod-backed implementation.
package browser

import (
	"context"
	"time"
)

// Browser manages isolated browsing sessions.
type Browser interface {
	// NewSession creates a session with its own cookie/state scope. Session
	// isolation is a correctness requirement: a branch selected in one
	// session must not leak into the next.
	NewSession(ctx context.Context) (Session, error)
	Close() error
}

// Session is the port implemented by browser runtime adapters.
type Session interface {
	// Navigate opens a URL and waits for the load event.
	Navigate(url string) error

	// ClickByText clicks the nth element matching selector whose visible
	// text contains text.
	ClickByText(selector, text string, nth int) error

	// CountByText counts elements matching selector whose visible text
	// contains text.
	CountByText(selector, text string) (int, error)

	// SelectOption sets a form control's value and dispatches a bubbling
	// change event, triggering the site's own dependent-option refresh.
	SelectOption(selector, value string) error

	// Click clicks the nth element matching selector.
	Click(selector string, nth int) error

	// HTML returns the full current page markup.
	HTML() (string, error)

	// Sleep suspends for a fixed duration. The sites populate dependent
	// controls asynchronously with no observable completion signal, so
	// fixed settle delays are the only synchronization available.
	Sleep(d time.Duration)

	Close() error
}
