package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mrz1836/checkin/internal/domain"
	checkinerrors "github.com/mrz1836/checkin/internal/errors"
	"github.com/mrz1836/checkin/internal/notify"
)

// bodyPreamble opens every report.
const bodyPreamble = "This email was generated automatically by a bot\nPlease see attached results\n\n"

// Reporter builds the end-of-run report and hands it to a Sender.
type Reporter struct {
	sender notify.Sender
	logger zerolog.Logger
	title  cases.Caser
}

// NewReporter creates a reporter. A nil sender disables delivery.
func NewReporter(sender notify.Sender, logger zerolog.Logger) *Reporter {
	if sender == nil {
		sender = notify.Nop{}
	}
	return &Reporter{
		sender: sender,
		logger: logger.With().Str("component", "reporter").Logger(),
		title:  cases.Title(language.English),
	}
}

// Subject returns the subject line for run.
func (r *Reporter) Subject(run *domain.RunContext) string {
	name := r.displayName(run.Traveler)
	if run.Succeeded() {
		return fmt.Sprintf("Southwest Check In Completed for %s", name)
	}
	return fmt.Sprintf("Southwest Check In Failed for %s", name)
}

// displayName trims name and keeps its casing. Only an all-lowercase name
// gets its first letter capitalized, so McKenzie and DeShawn stay intact.
func (r *Reporter) displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name != strings.ToLower(name) {
		return name
	}
	return r.title.String(name)
}

// Finalize builds the report message. Attachments keep the order they were
// collected in: attempt artifacts first, the run log last.
func (r *Reporter) Finalize(run *domain.RunContext, artifacts []domain.Artifact) domain.NotificationMessage {
	var body strings.Builder
	body.WriteString(bodyPreamble)
	fmt.Fprintf(&body, "Run: %s\n", run.RunID)
	fmt.Fprintf(&body, "Outcome: %s\n", run.Outcome)
	fmt.Fprintf(&body, "Attempts: %d of %d\n", run.Attempt, run.MaxAttempts)

	if !run.Succeeded() && run.LastError != "" {
		fmt.Fprintf(&body, "Last error (%s): %s\n", run.LastErrorKind, run.LastError)
	}
	if run.SiteMessage != "" {
		fmt.Fprintf(&body, "Southwest said: %s\n", run.SiteMessage)
	}

	attachments := make([]domain.Artifact, len(artifacts))
	copy(attachments, artifacts)

	return domain.NotificationMessage{
		Subject:     r.Subject(run),
		Body:        body.String(),
		Attachments: attachments,
	}
}

// Report finalizes and sends the report. An unconfigured sender is a silent
// no-op. Send failures are logged and never returned: reporting does not
// decide whether the run succeeded. It reports whether a send was made.
func (r *Reporter) Report(ctx context.Context, run *domain.RunContext, artifacts []domain.Artifact) (domain.NotificationMessage, bool) {
	msg := r.Finalize(run, artifacts)

	if !r.sender.Configured() {
		r.logger.Debug().Msg("notification transport not configured, skipping report")
		return msg, false
	}

	out := notify.Message{
		Subject:     msg.Subject,
		Body:        msg.Body,
		Attachments: make([]notify.Attachment, 0, len(msg.Attachments)),
	}
	for _, a := range msg.Attachments {
		out.Attachments = append(out.Attachments, notify.Attachment{
			Name: filepath.Base(a.Path),
			Path: a.Path,
		})
	}

	r.logger.Info().
		Str("subject", msg.Subject).
		Int("attachments", len(out.Attachments)).
		Msg("sending report")

	if err := r.sender.Send(ctx, out); err != nil {
		r.logger.Error().Err(checkinerrors.Wrap(err, "report not delivered")).Msg("failed to send report")
	}
	return msg, true
}
