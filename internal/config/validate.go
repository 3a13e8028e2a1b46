package config

import (
	"slices"

	"github.com/mrz1836/checkin/internal/constants"
	"github.com/mrz1836/checkin/internal/errors"
)

// settleModes are the accepted steps.settle_mode values.
//
//nolint:gochecknoglobals // read-only lookup table
var settleModes = []string{"dwell", "network_idle"}

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error wrapping ErrConfiguration for the first failure found.
//
// Validation rules:
//   - retry.max_attempts must be at least 1
//   - retry delays cannot be negative
//   - retry.non_retryable entries must be known failure kinds
//   - timeouts and the poll interval must be positive
//   - the viewport must be at least the minimum width the form renders in
//   - steps.settle_mode must be dwell or network_idle
//   - artifacts.scratch_dir must not be empty
//
// Traveler identity is checked when the credential is built, so commands
// that do not run a check-in can still load the config.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}

	if err := validateRetryConfig(&cfg.Retry); err != nil {
		return err
	}
	if err := validateBrowserConfig(&cfg.Browser); err != nil {
		return err
	}
	if err := validateStepsConfig(&cfg.Steps); err != nil {
		return err
	}
	if cfg.Notification.Timeout <= 0 {
		return errors.Wrapf(errors.ErrConfiguration,
			"notification.timeout must be positive, got %s", cfg.Notification.Timeout)
	}
	if cfg.Artifacts.ScratchDir == "" {
		return errors.Wrap(errors.ErrConfiguration, "artifacts.scratch_dir must not be empty")
	}
	return nil
}

func validateRetryConfig(cfg *RetryConfig) error {
	if cfg.MaxAttempts < 1 {
		return errors.Wrapf(errors.ErrConfiguration,
			"retry.max_attempts must be at least 1, got %d", cfg.MaxAttempts)
	}
	if cfg.BaseDelay < 0 {
		return errors.Wrapf(errors.ErrConfiguration,
			"retry.base_delay cannot be negative, got %s", cfg.BaseDelay)
	}
	if cfg.MaxDelay < 0 {
		return errors.Wrapf(errors.ErrConfiguration,
			"retry.max_delay cannot be negative, got %s", cfg.MaxDelay)
	}
	for _, k := range cfg.NonRetryable {
		if !slices.Contains(errors.Kinds(), errors.Kind(k)) {
			return errors.Wrapf(errors.ErrConfiguration,
				"retry.non_retryable: unknown failure kind %q (want one of %v)", k, errors.Kinds())
		}
	}
	return nil
}

func validateBrowserConfig(cfg *BrowserConfig) error {
	if cfg.ActionTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfiguration,
			"browser.action_timeout must be positive, got %s", cfg.ActionTimeout)
	}
	if cfg.Viewport.Width < constants.MinViewportWidth {
		return errors.Wrapf(errors.ErrConfiguration,
			"browser.viewport.width must be at least %d, got %d", constants.MinViewportWidth, cfg.Viewport.Width)
	}
	if cfg.Viewport.Height <= 0 {
		return errors.Wrapf(errors.ErrConfiguration,
			"browser.viewport.height must be positive, got %d", cfg.Viewport.Height)
	}
	return nil
}

func validateStepsConfig(cfg *StepsConfig) error {
	if cfg.URL == "" {
		return errors.Wrap(errors.ErrConfiguration, "steps.url must not be empty")
	}
	if !slices.Contains(settleModes, cfg.SettleMode) {
		return errors.Wrapf(errors.ErrConfiguration,
			"steps.settle_mode must be one of %v, got %q", settleModes, cfg.SettleMode)
	}
	if cfg.SettleDwell < 0 {
		return errors.Wrapf(errors.ErrConfiguration,
			"steps.settle_dwell cannot be negative, got %s", cfg.SettleDwell)
	}
	if cfg.SettleTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfiguration,
			"steps.settle_timeout must be positive, got %s", cfg.SettleTimeout)
	}
	if cfg.PollInterval <= 0 {
		return errors.Wrapf(errors.ErrConfiguration,
			"steps.poll_interval must be positive, got %s", cfg.PollInterval)
	}
	return nil
}
