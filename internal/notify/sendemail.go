package notify

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/checkin/internal/constants"
	checkinerrors "github.com/mrz1836/checkin/internal/errors"
)

// Runner executes an external command and returns its trimmed stdout.
type Runner func(ctx context.Context, name string, args ...string) (string, error)

// ExecRunner runs name through os/exec. Failures carry the command's stderr.
func ExecRunner(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...) //#nosec G204 -- binary and args come from checkin configuration
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if stderr.Len() > 0 {
			return "", fmt.Errorf("%s failed: %s: %w", name, strings.TrimSpace(stderr.String()), err)
		}
		return "", fmt.Errorf("%s failed: %w", name, err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// SendEmailConfig holds the SMTP settings for the sendemail transport.
type SendEmailConfig struct {
	// Server is the SMTP host, optionally with :port.
	Server string

	// User is both the SMTP login and the sender address.
	User string

	// Password is the SMTP password.
	Password string

	// Recipients receive the report.
	Recipients []string

	// SenderName is the display name on the From header.
	SenderName string

	// Binary is the sendemail executable. Empty means "sendemail" on PATH.
	Binary string

	// TLS toggles "-o tls=yes".
	TLS bool

	// Timeout bounds one invocation when positive.
	Timeout time.Duration
}

// SendEmail delivers reports by shelling out to the sendemail CLI.
type SendEmail struct {
	cfg    SendEmailConfig
	run    Runner
	logger zerolog.Logger
}

// NewSendEmail creates the transport. A nil runner uses ExecRunner.
func NewSendEmail(cfg SendEmailConfig, run Runner, logger zerolog.Logger) *SendEmail {
	if cfg.Binary == "" {
		cfg.Binary = constants.SendEmailBinary
	}
	if cfg.SenderName == "" {
		cfg.SenderName = constants.DefaultSenderName
	}
	if run == nil {
		run = ExecRunner
	}
	return &SendEmail{
		cfg:    cfg,
		run:    run,
		logger: logger.With().Str("component", "sendemail").Logger(),
	}
}

// Configured reports whether server, user, password and at least one
// recipient are all set.
func (s *SendEmail) Configured() bool {
	return s.cfg.Server != "" && s.cfg.User != "" && s.cfg.Password != "" && len(s.recipients()) > 0
}

// Args returns the sendemail argument list for msg, attachments in order.
func (s *SendEmail) Args(msg Message) []string {
	args := []string{"-f", fmt.Sprintf("%s <%s>", s.cfg.SenderName, s.cfg.User)}
	args = append(args, "-t")
	args = append(args, s.recipients()...)
	args = append(args, "-u", msg.Subject, "-m", msg.Body)
	if s.cfg.TLS {
		args = append(args, "-o", "tls=yes")
	}
	args = append(args, "-s", s.cfg.Server, "-xu", s.cfg.User, "-xp", s.cfg.Password)
	for _, a := range msg.Attachments {
		args = append(args, "-a", a.Path)
	}
	return args
}

// Send runs sendemail for msg. Errors wrap ErrNotificationFailed.
func (s *SendEmail) Send(ctx context.Context, msg Message) error {
	if !s.Configured() {
		return checkinerrors.Wrap(checkinerrors.ErrNotificationFailed, "sendemail is not configured")
	}

	s.logger.Debug().
		Str("server", s.cfg.Server).
		Strs("recipients", s.recipients()).
		Int("attachments", len(msg.Attachments)).
		Msg("sending email")

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	out, err := s.run(ctx, s.cfg.Binary, s.Args(msg)...)
	if err != nil {
		return fmt.Errorf("%w: %w", checkinerrors.ErrNotificationFailed, err)
	}
	if out != "" {
		s.logger.Debug().Str("output", out).Msg("sendemail output")
	}
	s.logger.Info().Msg("email sent")
	return nil
}

// recipients drops blanks and splits comma or space separated entries.
func (s *SendEmail) recipients() []string {
	var out []string
	for _, r := range s.cfg.Recipients {
		out = append(out, SplitRecipients(r)...)
	}
	return out
}

// SplitRecipients splits a comma or whitespace separated address list.
func SplitRecipients(list string) []string {
	return strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == ';'
	})
}

var _ Sender = (*SendEmail)(nil)
