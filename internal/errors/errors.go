// Package errors provides centralized error handling for checkin.
//
// This package defines the sentinel errors used to classify failures of a
// check-in run. All error types can be checked using errors.Is() or errors.As().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
var (
	// ErrConfiguration indicates a fatal pre-flight problem: missing traveler
	// identity, an out-of-range retry count, or a missing required tool.
	// Runs that fail with this error never touch the browser.
	ErrConfiguration = errors.New("configuration error")

	// ErrInteraction indicates a driver-level fault while locating or operating
	// on page elements (element not found, click intercepted, browser crashed).
	ErrInteraction = errors.New("browser interaction failed")

	// ErrTimeout indicates that a bounded wait expired before the page settled.
	ErrTimeout = errors.New("timed out waiting for page")

	// ErrSiteReported indicates that the website itself rejected the check-in
	// with an error banner (too early, reservation not found, and so on).
	ErrSiteReported = errors.New("site reported error")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrValueOutOfRange indicates that a value is outside the allowed range.
	ErrValueOutOfRange = errors.New("value out of range")

	// ErrMissingRequiredTools indicates that a required external binary is not on PATH.
	ErrMissingRequiredTools = errors.New("required tools are missing")

	// ErrNoSession indicates an operation needed a browser session but none is open.
	ErrNoSession = errors.New("no active browser session")

	// ErrInvalidTransition indicates an attempt to finalize a run twice or
	// otherwise move the run state backwards.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrNotificationFailed indicates the notification transport returned an error.
	ErrNotificationFailed = errors.New("notification send failed")

	// ErrRunFailed indicates the run finished with a failed outcome.
	// The CLI uses it to exit non-zero without printing a second error message.
	ErrRunFailed = errors.New("check-in run failed")

	// ErrRecordNotFound indicates the requested run summary file does not exist.
	ErrRecordNotFound = errors.New("run record not found")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")
)

// SiteReportedError carries the message text extracted from the error banner
// on the check-in page. It unwraps to ErrSiteReported.
type SiteReportedError struct {
	Message string
}

// NewSiteReportedError creates a SiteReportedError with the given banner text.
func NewSiteReportedError(message string) *SiteReportedError {
	return &SiteReportedError{Message: message}
}

// Error implements the error interface.
func (e *SiteReportedError) Error() string {
	if e.Message == "" {
		return ErrSiteReported.Error()
	}
	return fmt.Sprintf("%s: %s", ErrSiteReported, e.Message)
}

// Unwrap returns ErrSiteReported so errors.Is works on the sentinel.
func (e *SiteReportedError) Unwrap() error {
	return ErrSiteReported
}

// Kind is the runtime classification of a failed attempt.
type Kind string

const (
	// KindSiteReported is a business-level rejection surfaced by the website.
	KindSiteReported Kind = "site_reported"

	// KindInteraction is a technical fault operating the browser.
	KindInteraction Kind = "interaction"

	// KindTimeout is an expired bounded wait.
	KindTimeout Kind = "timeout"
)

// Kinds returns every runtime failure kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindSiteReported, KindInteraction, KindTimeout}
}

// KindOf classifies err. Site-reported errors win over timeouts, and anything
// that is neither is treated as an interaction failure. Returns "" for nil.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSiteReported):
		return KindSiteReported
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	default:
		return KindInteraction
	}
}

// SiteMessage returns the banner text carried by a SiteReportedError in err's
// chain, or "" when there is none.
func SiteMessage(err error) string {
	var siteErr *SiteReportedError
	if errors.As(err, &siteErr) {
		return siteErr.Message
	}
	return ""
}

// Interaction wraps err with ErrInteraction unless it already carries a
// classification. Nil stays nil.
func Interaction(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrSiteReported) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrInteraction) {
		return Wrap(err, msg)
	}
	return fmt.Errorf("%s: %w: %w", msg, ErrInteraction, err)
}
