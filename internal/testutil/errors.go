// Package testutil provides testing utilities for checkin.
//
// This package contains mock errors and fakes for the browser and mail
// capabilities. It should only be imported by test files (*_test.go).
package testutil

import "errors"

// Mock errors for testing purposes.
var (
	// ErrMockDriver simulates a driver-level crash.
	ErrMockDriver = errors.New("driver crashed")

	// ErrMockLaunch simulates a browser that fails to start.
	ErrMockLaunch = errors.New("browser failed to launch")

	// ErrMockCapture simulates a failing screenshot or content read.
	ErrMockCapture = errors.New("capture failed")

	// ErrMockSMTP simulates a rejected mail submission.
	ErrMockSMTP = errors.New("smtp rejected message")
)
