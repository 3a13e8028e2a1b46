package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	checkinerrors "github.com/mrz1836/checkin/internal/errors"
)

// Outcome is the final result of a run.
type Outcome string

const (
	// OutcomePending is the outcome of a run that has not finished.
	OutcomePending Outcome = "pending"

	// OutcomeSuccess indicates the check-in completed.
	OutcomeSuccess Outcome = "success"

	// OutcomeFailed indicates every attempt failed or the run stopped early.
	OutcomeFailed Outcome = "failed"
)

// String returns the outcome value.
func (o Outcome) String() string {
	return string(o)
}

// NewRunID returns a timestamp-derived run identifier of the form
// run-YYYYMMDD-HHMMSS-xxxxxx. The random suffix keeps two runs started in
// the same second apart, so artifact names never collide.
func NewRunID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("run-%s-%s", now.UTC().Format("20060102-150405"), suffix)
}

// RunContext is the state of one run. Attempt starts at 1 and grows by one
// per retry; Outcome moves from pending to a final value exactly once.
//
// Example JSON representation:
//
//	{
//	    "run_id": "run-20261014-101500-a1b2c3",
//	    "traveler": "Ada",
//	    "attempt": 3,
//	    "max_attempts": 3,
//	    "outcome": "failed",
//	    "started_at": "2026-10-14T10:15:00Z",
//	    "finished_at": "2026-10-14T10:16:12Z",
//	    "last_error": "site reported error: too early"
//	}
type RunContext struct {
	RunID       string    `json:"run_id"`
	Traveler    string    `json:"traveler"`
	Attempt     int       `json:"attempt"`
	MaxAttempts int       `json:"max_attempts"`
	Outcome     Outcome   `json:"outcome"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`

	// LastError is the message of the error that ended the last failed attempt.
	// It is kept on successful runs too when an earlier attempt failed.
	LastError string `json:"last_error,omitempty"`

	// LastErrorKind classifies LastError.
	LastErrorKind checkinerrors.Kind `json:"last_error_kind,omitempty"`

	// SiteMessage is the banner text of the last site-reported rejection.
	SiteMessage string `json:"site_message,omitempty"`
}

// NewRunContext creates a pending run positioned at attempt 1.
// maxAttempts below 1 is rejected with ErrConfiguration.
func NewRunContext(runID string, maxAttempts int, startedAt time.Time) (*RunContext, error) {
	if maxAttempts < 1 {
		return nil, checkinerrors.Wrapf(checkinerrors.ErrConfiguration,
			"max attempts must be at least 1, got %d", maxAttempts)
	}
	return &RunContext{
		RunID:       runID,
		Attempt:     1,
		MaxAttempts: maxAttempts,
		Outcome:     OutcomePending,
		StartedAt:   startedAt,
	}, nil
}

// CanRetry reports whether another attempt fits in the budget.
func (r *RunContext) CanRetry() bool {
	return r.Attempt < r.MaxAttempts
}

// NextAttempt advances to the next attempt number.
func (r *RunContext) NextAttempt() error {
	if r.Outcome != OutcomePending {
		return checkinerrors.Wrapf(checkinerrors.ErrInvalidTransition,
			"cannot retry a finished run (%s)", r.Outcome)
	}
	if !r.CanRetry() {
		return checkinerrors.Wrapf(checkinerrors.ErrValueOutOfRange,
			"attempt %d is the last of %d", r.Attempt, r.MaxAttempts)
	}
	r.Attempt++
	return nil
}

// RecordFailure remembers err as the most recent attempt failure.
func (r *RunContext) RecordFailure(err error) {
	if err == nil {
		return
	}
	r.LastError = err.Error()
	r.LastErrorKind = checkinerrors.KindOf(err)
	if msg := checkinerrors.SiteMessage(err); msg != "" {
		r.SiteMessage = msg
	}
}

// Finalize sets the outcome. It may only be called once per run.
func (r *RunContext) Finalize(outcome Outcome, finishedAt time.Time) error {
	if r.Outcome != OutcomePending {
		return checkinerrors.Wrapf(checkinerrors.ErrInvalidTransition,
			"run already finalized as %s", r.Outcome)
	}
	if outcome == OutcomePending {
		return checkinerrors.Wrap(checkinerrors.ErrInvalidTransition, "cannot finalize as pending")
	}
	r.Outcome = outcome
	r.FinishedAt = finishedAt
	return nil
}

// Succeeded reports whether the run finished with OutcomeSuccess.
func (r *RunContext) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}
