// Package engine runs a check-in: a bounded retry loop around the step
// sequence with artifact capture on every attempt and a single report at
// the end, whatever the outcome.
//
// A run moves through these states:
//
//	idle → attempting → succeeded
//	                  → retrying → attempting
//	                  → exhausted
//
// Retrying is a pass-through; succeeded and exhausted are terminal.
package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mrz1836/checkin/internal/browser"
	"github.com/mrz1836/checkin/internal/clock"
	"github.com/mrz1836/checkin/internal/ctxutil"
	"github.com/mrz1836/checkin/internal/domain"
	checkinerrors "github.com/mrz1836/checkin/internal/errors"
)

// StepSequence is the unit of work executed once per attempt.
type StepSequence interface {
	Execute(ctx context.Context, session browser.Session, cred domain.Credential) error
}

// State is a position in the run state machine.
type State string

// Run states.
const (
	StateIdle       State = "idle"
	StateAttempting State = "attempting"
	StateRetrying   State = "retrying"
	StateSucceeded  State = "succeeded"
	StateExhausted  State = "exhausted"
)

// AttemptStatus is the typed result of one attempt.
type AttemptStatus string

// Attempt statuses.
const (
	AttemptSuccess   AttemptStatus = "success"
	AttemptRetryable AttemptStatus = "retryable"
	AttemptTerminal  AttemptStatus = "terminal"
)

// AttemptResult is what one pass through the step sequence produced.
type AttemptResult struct {
	Attempt int
	Status  AttemptStatus
	Kind    checkinerrors.Kind
	Err     error
}

// Config configures an Orchestrator.
type Config struct {
	// Policy is the retry policy.
	Policy RetryPolicy

	// Viewport is applied to every fresh session before the steps run.
	Viewport browser.Viewport

	// ScratchDir receives the per-attempt artifacts.
	ScratchDir string

	// RunID names the run; empty generates one from the clock.
	RunID string

	// LogPath is the run log, attached last. Empty attaches no log.
	LogPath string
}

// RunResult is the outcome of a run.
type RunResult struct {
	Run       *domain.RunContext
	State     State
	Attempts  []AttemptResult
	Artifacts []domain.Artifact
	Report    domain.NotificationMessage
	Notified  bool
}

// Err returns the error of the final attempt, nil when the run succeeded.
func (r *RunResult) Err() error {
	if r == nil || len(r.Attempts) == 0 {
		return nil
	}
	return r.Attempts[len(r.Attempts)-1].Err
}

// Orchestrator drives runs.
type Orchestrator struct {
	cfg      Config
	launcher browser.Launcher
	steps    StepSequence
	reporter *Reporter
	clock    clock.Clock
	logger   zerolog.Logger
}

// New validates cfg and creates an Orchestrator. An attempt budget below one
// is a configuration error, reported before any browser is launched.
func New(cfg Config, launcher browser.Launcher, steps StepSequence, reporter *Reporter, clk clock.Clock, logger zerolog.Logger) (*Orchestrator, error) {
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	if launcher == nil {
		return nil, checkinerrors.Wrap(checkinerrors.ErrConfiguration, "browser launcher is required")
	}
	if steps == nil {
		return nil, checkinerrors.Wrap(checkinerrors.ErrConfiguration, "step sequence is required")
	}
	if reporter == nil {
		reporter = NewReporter(nil, logger)
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Orchestrator{
		cfg:      cfg,
		launcher: launcher,
		steps:    steps,
		reporter: reporter,
		clock:    clk,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
	}, nil
}

// run is the mutable state of one Run call.
type run struct {
	ctx       *domain.RunContext
	state     State
	session   browser.Session
	collector *Collector
	attempts  []AttemptResult
	logger    zerolog.Logger
}

// Run performs the check-in for cred. It only returns an error for problems
// found before the first attempt; attempt failures are reported through the
// result and the notification, never as an error.
func (o *Orchestrator) Run(ctx context.Context, cred domain.Credential) (result *RunResult, err error) {
	cred, err = domain.NewCredential(cred.ConfirmationCode, cred.FirstName, cred.LastName)
	if err != nil {
		return nil, err
	}

	runID := o.cfg.RunID
	if runID == "" {
		runID = domain.NewRunID(o.clock.Now())
	}
	runCtx, err := domain.NewRunContext(runID, o.cfg.Policy.MaxAttempts, o.clock.Now())
	if err != nil {
		return nil, err
	}
	runCtx.Traveler = cred.FirstName

	r := &run{
		ctx:       runCtx,
		state:     StateIdle,
		collector: NewCollector(o.cfg.ScratchDir, runID, o.clock, o.logger),
		logger:    o.logger.With().Str("run_id", runID).Logger(),
	}

	result = &RunResult{Run: runCtx}
	defer o.finish(ctx, r, result)

	for {
		r.transition(StateAttempting)
		res := o.attempt(ctx, r, cred)
		r.attempts = append(r.attempts, res)

		switch res.Status {
		case AttemptSuccess:
			r.transition(StateSucceeded)
			return result, nil
		case AttemptTerminal:
			r.transition(StateExhausted)
			return result, nil
		case AttemptRetryable:
			r.transition(StateRetrying)
			o.prepareRetry(r)
		}
	}
}

// attempt runs the step sequence once on a fresh session.
func (o *Orchestrator) attempt(ctx context.Context, r *run, cred domain.Credential) AttemptResult {
	n := r.ctx.Attempt
	r.logger.Info().Int("attempt", n).Int("max_attempts", r.ctx.MaxAttempts).Msg("starting execution")

	err := o.openSession(ctx, r)
	if err == nil {
		err = o.execute(ctx, r.session, cred)
	}
	if err == nil {
		r.logger.Info().Int("attempt", n).Msg("check-in complete")
		return AttemptResult{Attempt: n, Status: AttemptSuccess}
	}

	kind := checkinerrors.KindOf(err)
	r.ctx.RecordFailure(err)
	r.logger.Error().Err(err).Int("attempt", n).Str("kind", string(kind)).Msg("attempt failed")

	status := AttemptTerminal
	switch {
	case !r.ctx.CanRetry():
		r.logger.Warn().Int("attempt", n).Msg("no attempts left")
	case !o.cfg.Policy.ShouldRetry(kind):
		r.logger.Warn().Str("kind", string(kind)).Msg("failure kind is not retryable")
	default:
		status = AttemptRetryable
	}

	return AttemptResult{Attempt: n, Status: status, Kind: kind, Err: err}
}

// openSession launches a fresh browser and sizes its viewport. The form is
// hidden below a minimum width, so a failed resize fails the attempt.
func (o *Orchestrator) openSession(ctx context.Context, r *run) error {
	session, err := o.launcher.Launch(ctx)
	if err != nil {
		return checkinerrors.Interaction(err, "failed to launch browser")
	}
	r.session = session

	w, h := o.cfg.Viewport.Width, o.cfg.Viewport.Height
	if w > 0 && h > 0 {
		r.logger.Debug().Int("width", w).Int("height", h).Msg("resizing window")
		if err := session.ResizeViewport(w, h); err != nil {
			return err
		}
	}
	return nil
}

// execute runs the steps, turning a panic into an interaction failure.
func (o *Orchestrator) execute(ctx context.Context, session browser.Session, cred domain.Credential) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = checkinerrors.Interaction(fmt.Errorf("panic: %v", p), "step sequence aborted")
		}
	}()
	return o.steps.Execute(ctx, session, cred)
}

// prepareRetry captures the failed attempt, backs off, discards the session
// and moves to the next attempt number.
func (o *Orchestrator) prepareRetry(r *run) {
	n := r.ctx.Attempt
	r.collector.CaptureAttempt(r.session, n)

	delay := o.cfg.Policy.Backoff(n)
	r.logger.Info().Int("attempt", n).Dur("delay", delay).Msg("backing off before retry")
	o.clock.Sleep(delay)

	o.closeSession(r)
	if err := r.ctx.NextAttempt(); err != nil {
		// attempt() only returns retryable while CanRetry holds.
		r.logger.Error().Err(err).Msg("cannot advance attempt")
	}
}

func (o *Orchestrator) closeSession(r *run) {
	if r.session == nil {
		return
	}
	r.logger.Info().Msg("closing driver")
	if err := r.session.Close(); err != nil {
		r.logger.Warn().Err(err).Msg("error closing browser session")
	}
	r.session = nil
}

// finish is the unconditional cleanup of a run: capture the last attempt,
// close the session, settle the outcome, attach the log and report once.
// It runs on every exit path of Run, panics included. The report goes out on
// a detached context so a caller deadline that expired mid-run cannot
// suppress it.
func (o *Orchestrator) finish(ctx context.Context, r *run, result *RunResult) {
	p := recover()
	if p != nil {
		err := checkinerrors.Interaction(fmt.Errorf("panic: %v", p), "run aborted")
		r.ctx.RecordFailure(err)
		r.attempts = append(r.attempts, AttemptResult{
			Attempt: r.ctx.Attempt, Status: AttemptTerminal, Kind: checkinerrors.KindInteraction, Err: err,
		})
		r.logger.Error().Err(err).Msg("unexpected error during run")
		r.transition(StateExhausted)
	}

	r.collector.CaptureAttempt(r.session, r.ctx.Attempt)
	o.closeSession(r)

	outcome := domain.OutcomeFailed
	if r.state == StateSucceeded {
		outcome = domain.OutcomeSuccess
	}
	if err := r.ctx.Finalize(outcome, o.clock.Now()); err != nil {
		r.logger.Error().Err(err).Msg("failed to finalize run")
	}
	r.logger.Info().
		Str("outcome", r.ctx.Outcome.String()).
		Int("attempts", r.ctx.Attempt).
		Msg("run finished")

	r.collector.AddLog(o.cfg.LogPath, r.ctx.Attempt)

	result.State = r.state
	result.Attempts = r.attempts
	result.Artifacts = r.collector.Artifacts()
	result.Report, result.Notified = o.reporter.Report(ctxutil.Detached(ctx), r.ctx, result.Artifacts)
}

func (r *run) transition(to State) {
	r.logger.Debug().Str("from", string(r.state)).Str("to", string(to)).Msg("state transition")
	r.state = to
}
