package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/checkin/internal/config"
	"github.com/mrz1836/checkin/internal/ctxutil"
	"github.com/mrz1836/checkin/internal/logging"
)

// ConfigShowFlags holds flags specific to the config show command.
type ConfigShowFlags struct {
	// OutputFormat specifies the output format (yaml or json).
	OutputFormat string
}

// AddConfigCommand adds the config command group to the root command.
func AddConfigCommand(root *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect checkin configuration",
	}
	showFlags := &ConfigShowFlags{}
	cmd.AddCommand(newConfigShowCmd(flags, showFlags))
	root.AddCommand(cmd)
}

// newConfigShowCmd creates the 'config show' subcommand for displaying configuration.
func newConfigShowCmd(gflags *GlobalFlags, flags *ConfigShowFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration",
		Long: `Display the effective configuration after every source is merged:
flags, CHECKIN_* and SWA_* environment variables, the .env file, --config,
~/.checkin/config.yaml and the built-in defaults.

The SMTP password is masked in the output.

Examples:
  checkin config show
  checkin config show --env-file trip.env -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd.Context(), cmd.OutOrStdout(), config.LoadOptions{
				ConfigFile: gflags.ConfigFile,
				EnvFile:    gflags.EnvFile,
			}, flags)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&flags.OutputFormat, "output", "o", OutputYAML, "output format (yaml or json)")
	return cmd
}

// runConfigShow executes the config show command.
func runConfigShow(ctx context.Context, w io.Writer, opts config.LoadOptions, flags *ConfigShowFlags) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	if err := validFormat(flags.OutputFormat, OutputYAML, OutputJSON); err != nil {
		return err
	}

	cfg, err := config.Load(GetLogger().WithContext(ctx), opts)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	view := configView(cfg)
	if flags.OutputFormat == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(view); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return enc.Close()
}

// configView renders cfg with durations as strings and the password masked.
func configView(cfg *config.Config) map[string]any {
	sel := cfg.Steps.Selectors
	return map[string]any{
		"traveler": map[string]any{
			"confirmation": cfg.Traveler.Confirmation,
			"name":         cfg.Traveler.Name,
			"first_name":   cfg.Traveler.FirstName,
			"last_name":    cfg.Traveler.LastName,
		},
		"retry": map[string]any{
			"max_attempts":  cfg.Retry.MaxAttempts,
			"base_delay":    cfg.Retry.BaseDelay.String(),
			"max_delay":     cfg.Retry.MaxDelay.String(),
			"non_retryable": nonNil(cfg.Retry.NonRetryable),
		},
		"browser": map[string]any{
			"headless":        cfg.Browser.Headless,
			"install":         cfg.Browser.Install,
			"executable_path": cfg.Browser.ExecutablePath,
			"user_agent":      cfg.Browser.UserAgent,
			"viewport": map[string]any{
				"width":  cfg.Browser.Viewport.Width,
				"height": cfg.Browser.Viewport.Height,
			},
			"action_timeout": cfg.Browser.ActionTimeout.String(),
		},
		"steps": map[string]any{
			"url":            cfg.Steps.URL,
			"settle_mode":    cfg.Steps.SettleMode,
			"settle_dwell":   cfg.Steps.SettleDwell.String(),
			"settle_timeout": cfg.Steps.SettleTimeout.String(),
			"poll_interval":  cfg.Steps.PollInterval.String(),
			"selectors": map[string]any{
				"check_in_tab": sel.CheckInTab,
				"confirmation": sel.Confirmation,
				"first_name":   sel.FirstName,
				"last_name":    sel.LastName,
				"submit":       sel.Submit,
				"error_banner": sel.ErrorBanner,
				"confirm":      sel.Confirm,
			},
		},
		"notification": map[string]any{
			"configured":  cfg.Notification.Configured(),
			"server":      cfg.Notification.Server,
			"user":        cfg.Notification.User,
			"password":    logging.Mask(cfg.Notification.Password),
			"recipients":  nonNil(cfg.Notification.Recipients),
			"sender_name": cfg.Notification.SenderName,
			"tls":         cfg.Notification.TLS,
			"binary":      cfg.Notification.Binary,
			"timeout":     cfg.Notification.Timeout.String(),
		},
		"artifacts": map[string]any{
			"scratch_dir": cfg.Artifacts.ScratchDir,
		},
		"logging": map[string]any{
			"history":      cfg.Logging.History,
			"history_file": cfg.Logging.HistoryFile,
		},
	}
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
