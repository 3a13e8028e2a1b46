// Package cli provides the command-line interface for checkin.
package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrz1836/checkin/internal/errors"
)

// BuildInfo contains version information set at build time via ldflags.
type BuildInfo struct {
	// Version is the semantic version (e.g., "1.0.0").
	Version string
	// Commit is the git commit hash.
	Commit string
	// Date is the build date.
	Date string
}

// globalLogger stores the initialized logger for use by subcommands.
// This is set during PersistentPreRunE and should be accessed via GetLogger.
var (
	globalLogger   zerolog.Logger //nolint:gochecknoglobals // CLI logger requires global access
	globalLoggerMu sync.RWMutex   //nolint:gochecknoglobals // Protects globalLogger
)

// GetLogger returns the initialized logger for use by subcommands.
//
// IMPORTANT: This function MUST only be called after the root command's
// PersistentPreRunE has executed. Calling it before initialization will
// return a zero-value logger that discards all log output.
func GetLogger() zerolog.Logger {
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	return globalLogger
}

func setLogger(logger zerolog.Logger) {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	globalLogger = logger
}

// newRootCmd creates and returns the root command for the checkin CLI.
// Invoked without a subcommand it performs a check-in, like "checkin run".
func newRootCmd(flags *GlobalFlags, info BuildInfo) *cobra.Command {
	runFlags := &RunFlags{}

	cmd := &cobra.Command{
		Use:   "checkin",
		Short: "Automated Southwest check-in",
		Long: `checkin performs one online check-in for one traveler using a headless browser.

Each attempt runs in a fresh browser. A page snapshot and a screenshot are kept
for every attempt, and one email with all of them and the run log is sent at
the end, whatever the outcome.

The traveler and mail settings are read from flags, CHECKIN_* or the legacy
SWA_* environment variables, a .env file, --config, or ~/.checkin/config.yaml.`,
		Version: formatVersion(info),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheckin(cmd.Context(), cmd, flags, runFlags)
		},
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			setLogger(InitLogger(flags.Verbose, flags.Quiet))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	AddGlobalFlags(cmd, flags)
	addRunFlags(cmd, runFlags)

	AddRunCommand(cmd, flags)
	AddConfigCommand(cmd, flags)
	AddRunsCommand(cmd, flags)

	return cmd
}

// formatVersion creates the version string from build info.
func formatVersion(info BuildInfo) string {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}

// Execute runs the root command with the provided context and build info.
func Execute(ctx context.Context, info BuildInfo) error {
	flags := &GlobalFlags{}
	//nolint:contextcheck // Cobra command pattern uses cmd.Context() internally
	cmd := newRootCmd(flags, info)
	err := cmd.ExecuteContext(ctx)
	printError(cmd.ErrOrStderr(), err)
	return err
}

// printError writes err to w, followed by the user-facing explanation and
// suggested action when the error is one checkin knows about.
func printError(w io.Writer, err error) {
	if err == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	msg, action := errors.Actionable(err)
	if msg != err.Error() {
		_, _ = fmt.Fprintln(w, msg)
	}
	if action != "" {
		_, _ = fmt.Fprintf(w, "Action: %s\n", action)
	}
}
