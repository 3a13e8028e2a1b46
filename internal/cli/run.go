package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrz1836/checkin/internal/browser"
	"github.com/mrz1836/checkin/internal/clock"
	"github.com/mrz1836/checkin/internal/config"
	"github.com/mrz1836/checkin/internal/ctxutil"
	"github.com/mrz1836/checkin/internal/domain"
	"github.com/mrz1836/checkin/internal/engine"
	"github.com/mrz1836/checkin/internal/errors"
	"github.com/mrz1836/checkin/internal/flock"
	"github.com/mrz1836/checkin/internal/logging"
	"github.com/mrz1836/checkin/internal/notify"
	"github.com/mrz1836/checkin/internal/record"
	"github.com/mrz1836/checkin/internal/steps"
)

// RunFlags holds flags specific to the run command. Traveler and retry
// flags override the same settings from the environment and config files.
type RunFlags struct {
	Confirmation string
	Name         string
	FirstName    string
	LastName     string
	MaxAttempts  int
	ScratchDir   string
	URL          string
	Headless     bool
	Install      bool
	Output       string
}

// runDeps are the collaborators a run is built from. Tests swap them for
// fakes; production uses defaultRunDeps.
type runDeps struct {
	clock       clock.Clock
	newLauncher func(browser.Options, zerolog.Logger) browser.Launcher
	runner      notify.Runner
	lookPath    config.LookPathFunc
	console     io.Writer
	loadOptions func(*GlobalFlags, *cobra.Command) config.LoadOptions
}

func defaultRunDeps() runDeps {
	return runDeps{
		clock: clock.RealClock{},
		newLauncher: func(opts browser.Options, logger zerolog.Logger) browser.Launcher {
			return browser.NewPlaywrightLauncher(opts, logger)
		},
		console:     selectOutput(),
		loadOptions: loadOptionsFor,
	}
}

// loadOptionsFor maps the global flags and the command's flag set to config sources.
func loadOptionsFor(flags *GlobalFlags, cmd *cobra.Command) config.LoadOptions {
	return config.LoadOptions{
		ConfigFile: flags.ConfigFile,
		EnvFile:    flags.EnvFile,
		Flags:      cmd.Flags(),
	}
}

// addRunFlags registers the run flags on cmd.
func addRunFlags(cmd *cobra.Command, flags *RunFlags) {
	fs := cmd.Flags()
	fs.StringVar(&flags.Confirmation, "confirmation", "", "reservation confirmation code (env SWA_CONFIRMATION)")
	fs.StringVar(&flags.Name, "name", "", `traveler full name, "First Last" (env SWA_NAME)`)
	fs.StringVar(&flags.FirstName, "first-name", "", "traveler first name, overrides --name")
	fs.StringVar(&flags.LastName, "last-name", "", "traveler last name, overrides --name")
	fs.IntVar(&flags.MaxAttempts, "max-attempts", 0, "attempts before giving up (default 3)")
	fs.StringVar(&flags.ScratchDir, "scratch-dir", "", "directory for artifacts and the run log (default /tmp)")
	fs.StringVar(&flags.URL, "url", "", "check-in site URL")
	fs.BoolVar(&flags.Headless, "headless", true, "run the browser without a window")
	fs.BoolVar(&flags.Install, "install", false, "download the Playwright browser before launching")
	fs.StringVarP(&flags.Output, "output", "o", OutputText, "summary output format (text|json)")
}

// AddRunCommand adds the run command to the root command.
func AddRunCommand(root *cobra.Command, flags *GlobalFlags) {
	runFlags := &RunFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Check in (the default when no command is given)",
		Long: `Check in one traveler: fill and submit the check-in form, retrying up to
retry.max_attempts times with a linear backoff, and mail one report with every
attempt's snapshot and screenshot plus the run log.

Examples:
  checkin run --confirmation ABC123 --name "Ada Lovelace"
  SWA_CONFIRMATION=ABC123 SWA_NAME="Ada Lovelace" checkin
  checkin run --env-file ~/trips/lisbon.env -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheckin(cmd.Context(), cmd, flags, runFlags)
		},
		SilenceUsage: true,
	}
	addRunFlags(cmd, runFlags)
	root.AddCommand(cmd)
}

func runCheckin(ctx context.Context, cmd *cobra.Command, flags *GlobalFlags, runFlags *RunFlags) error {
	return runCheckinWith(ctx, cmd, flags, runFlags, defaultRunDeps())
}

// runCheckinWith performs one check-in. Configuration problems are returned
// before any browser starts; a failed run returns ErrRunFailed after the
// report has gone out.
func runCheckinWith(ctx context.Context, cmd *cobra.Command, flags *GlobalFlags, runFlags *RunFlags, deps runDeps) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	if err := validFormat(runFlags.Output, OutputText, OutputJSON); err != nil {
		return err
	}

	logger := GetLogger()
	cfg, err := config.Load(logger.WithContext(ctx), deps.loadOptions(flags, cmd))
	if err != nil {
		return err
	}
	logging.Register(cfg.Notification.Password)

	cred, err := credentialFrom(cfg.Traveler)
	if err != nil {
		return err
	}
	policy := retryPolicyFrom(cfg.Retry)
	if err := policy.Validate(); err != nil {
		return err
	}
	if _, err := config.CheckTools(ctx, config.RequiredTools(cfg), deps.lookPath); err != nil {
		return err
	}

	lock, err := flock.Acquire(flock.Path(cfg.Artifacts.ScratchDir, cred.ConfirmationCode))
	if err != nil {
		return errors.Wrapf(err, "check-in for %s already in progress", cred.ConfirmationCode)
	}
	defer func() { _ = lock.Release() }()

	runID := domain.NewRunID(deps.clock.Now())
	logs, err := OpenRunLogs(cfg, runID, selectLevel(flags.Verbose, flags.Quiet), deps.console)
	if err != nil {
		return errors.Wrap(err, "failed to open run log")
	}
	defer func() { _ = logs.Close() }()
	runLogger := logs.Logger

	runLogger.Info().
		Str("confirmation", cred.ConfirmationCode).
		Str("first_name", cred.FirstName).
		Str("last_name", cred.LastName).
		Str("run_log", logs.RunLogPath).
		Msg("starting check-in")

	launcher := deps.newLauncher(browserOptionsFrom(cfg.Browser), runLogger)
	if s, ok := launcher.(interface{ Shutdown() error }); ok {
		defer func() {
			if err := s.Shutdown(); err != nil {
				runLogger.Warn().Err(err).Msg("failed to stop browser driver")
			}
		}()
	}

	sender := notify.NewSendEmail(sendEmailConfigFrom(cfg.Notification), deps.runner, runLogger)
	orch, err := engine.New(engine.Config{
		Policy:     policy,
		Viewport:   browser.Viewport{Width: cfg.Browser.Viewport.Width, Height: cfg.Browser.Viewport.Height},
		ScratchDir: cfg.Artifacts.ScratchDir,
		RunID:      runID,
		LogPath:    logs.RunLogPath,
	}, launcher, steps.NewSouthwest(stepsOptionsFrom(cfg.Steps), deps.clock, runLogger),
		engine.NewReporter(sender, runLogger), deps.clock, runLogger)
	if err != nil {
		return err
	}

	result, err := orch.Run(ctx, cred)
	if err != nil {
		return err
	}

	summary := record.FromResult(result, deps.clock.Now())
	summaryPath, err := record.Save(cfg.Artifacts.ScratchDir, summary)
	if err != nil {
		runLogger.Error().Err(err).Msg("failed to save run summary")
	}

	if err := printRunSummary(cmd.OutOrStdout(), runFlags.Output, summary, summaryPath); err != nil {
		return err
	}

	if !result.Run.Succeeded() {
		return errors.Wrapf(errors.ErrRunFailed, "%s after %d attempt(s): %s",
			result.Run.RunID, result.Run.Attempt, result.Run.LastError)
	}
	return nil
}

// credentialFrom builds the traveler credential, splitting the full name
// when first or last name is not given separately.
func credentialFrom(t config.TravelerConfig) (domain.Credential, error) {
	first, last := t.FirstName, t.LastName
	if first == "" || last == "" {
		parsedFirst, parsedLast := domain.ParseFullName(t.Name)
		if first == "" {
			first = parsedFirst
		}
		if last == "" {
			last = parsedLast
		}
	}
	return domain.NewCredential(t.Confirmation, first, last)
}

func retryPolicyFrom(cfg config.RetryConfig) engine.RetryPolicy {
	policy := engine.RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		MaxDelay:    cfg.MaxDelay,
	}
	if len(cfg.NonRetryable) > 0 {
		policy.Retryable = make(map[errors.Kind]bool, len(cfg.NonRetryable))
		for _, k := range cfg.NonRetryable {
			policy.Retryable[errors.Kind(k)] = false
		}
	}
	return policy
}

func browserOptionsFrom(cfg config.BrowserConfig) browser.Options {
	return browser.Options{
		Headless:       cfg.Headless,
		Install:        cfg.Install,
		ExecutablePath: cfg.ExecutablePath,
		Viewport:       browser.Viewport{Width: cfg.Viewport.Width, Height: cfg.Viewport.Height},
		ActionTimeout:  cfg.ActionTimeout,
		UserAgent:      cfg.UserAgent,
	}
}

func stepsOptionsFrom(cfg config.StepsConfig) steps.Options {
	return steps.Options{
		URL: cfg.URL,
		Selectors: steps.Selectors{
			CheckInTab:   cfg.Selectors.CheckInTab,
			Confirmation: cfg.Selectors.Confirmation,
			FirstName:    cfg.Selectors.FirstName,
			LastName:     cfg.Selectors.LastName,
			Submit:       cfg.Selectors.Submit,
			ErrorBanner:  cfg.Selectors.ErrorBanner,
			Confirm:      cfg.Selectors.Confirm,
		},
		SettleMode:    steps.SettleMode(cfg.SettleMode),
		SettleDwell:   cfg.SettleDwell,
		SettleTimeout: cfg.SettleTimeout,
		PollInterval:  cfg.PollInterval,
	}
}

func sendEmailConfigFrom(cfg config.NotificationConfig) notify.SendEmailConfig {
	return notify.SendEmailConfig{
		Server:     cfg.Server,
		User:       cfg.User,
		Password:   cfg.Password,
		Recipients: cfg.Recipients,
		SenderName: cfg.SenderName,
		Binary:     cfg.Binary,
		TLS:        cfg.TLS,
		Timeout:    cfg.Timeout,
	}
}

// printRunSummary writes the outcome of a run to w.
func printRunSummary(w io.Writer, format string, s *record.Summary, path string) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	_, _ = fmt.Fprintf(w, "%s\n", s.Subject)
	_, _ = fmt.Fprintf(w, "Run:      %s\n", s.Run.RunID)
	_, _ = fmt.Fprintf(w, "Outcome:  %s\n", s.Run.Outcome)
	_, _ = fmt.Fprintf(w, "Attempts: %d of %d\n", s.Run.Attempt, s.Run.MaxAttempts)
	if s.Run.SiteMessage != "" {
		_, _ = fmt.Fprintf(w, "Southwest said: %s\n", s.Run.SiteMessage)
	}
	_, _ = fmt.Fprintf(w, "Notified: %t\n", s.Notified)
	_, _ = fmt.Fprintf(w, "Artifacts:\n")
	for _, a := range s.Artifacts {
		_, _ = fmt.Fprintf(w, "  %-13s attempt %d  %s\n", a.Kind, a.Attempt, a.Path)
	}
	if path != "" {
		_, _ = fmt.Fprintf(w, "Summary:  %s\n", path)
	}
	return nil
}
