// Package config provides configuration management for checkin with layered precedence.
//
// Configuration sources are loaded in the following order (highest precedence first):
//  1. CLI flags (bound through LoadOptions.Flags)
//  2. Environment variables (CHECKIN_* names and the legacy SWA_* names)
//  3. The dotenv file (--env-file, or .env in the working directory)
//  4. The config file given with --config
//  5. Global config (~/.checkin/config.yaml)
//  6. Built-in defaults
//
// IMPORTANT: This package may import internal/constants and internal/errors,
// but MUST NOT import internal/domain or other internal packages.
package config

import "time"

// Config is the root configuration structure for checkin.
type Config struct {
	// Traveler identifies the reservation to check in.
	Traveler TravelerConfig `yaml:"traveler" mapstructure:"traveler"`

	// Retry controls the attempt budget and backoff.
	Retry RetryConfig `yaml:"retry" mapstructure:"retry"`

	// Browser configures the headless browser.
	Browser BrowserConfig `yaml:"browser" mapstructure:"browser"`

	// Steps configures the site interaction.
	Steps StepsConfig `yaml:"steps" mapstructure:"steps"`

	// Notification configures the end-of-run email.
	Notification NotificationConfig `yaml:"notification" mapstructure:"notification"`

	// Artifacts configures where per-run files go.
	Artifacts ArtifactsConfig `yaml:"artifacts" mapstructure:"artifacts"`

	// Logging configures the persistent history log.
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// TravelerConfig holds the reservation identity.
type TravelerConfig struct {
	// Confirmation is the reservation confirmation code.
	Confirmation string `yaml:"confirmation" mapstructure:"confirmation"`

	// Name is the traveler's full name. It is split into first and last name
	// when FirstName or LastName is not set.
	Name string `yaml:"name" mapstructure:"name"`

	// FirstName overrides the first word of Name.
	FirstName string `yaml:"first_name" mapstructure:"first_name"`

	// LastName overrides the rest of Name.
	LastName string `yaml:"last_name" mapstructure:"last_name"`
}

// RetryConfig controls attempts and backoff.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts. Default: 3
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`

	// BaseDelay is multiplied by the attempt number for the backoff. Default: 5s
	BaseDelay time.Duration `yaml:"base_delay" mapstructure:"base_delay"`

	// MaxDelay caps the backoff. Zero means uncapped.
	MaxDelay time.Duration `yaml:"max_delay" mapstructure:"max_delay"`

	// NonRetryable lists failure kinds that end a run immediately
	// (site_reported, interaction, timeout). Default: none.
	NonRetryable []string `yaml:"non_retryable" mapstructure:"non_retryable"`
}

// BrowserConfig configures the Playwright driven browser.
type BrowserConfig struct {
	// Headless runs Chromium without a window. Default: true
	Headless bool `yaml:"headless" mapstructure:"headless"`

	// Install downloads the Playwright Chromium build before launching.
	Install bool `yaml:"install" mapstructure:"install"`

	// ExecutablePath points at a Chromium binary to use instead of the
	// Playwright build.
	ExecutablePath string `yaml:"executable_path" mapstructure:"executable_path"`

	// UserAgent overrides the browser user agent.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// Viewport is applied to every session. Default: 1600x1280
	Viewport ViewportConfig `yaml:"viewport" mapstructure:"viewport"`

	// ActionTimeout bounds each driver call. Default: 30s
	ActionTimeout time.Duration `yaml:"action_timeout" mapstructure:"action_timeout"`
}

// ViewportConfig is a width and height in pixels.
type ViewportConfig struct {
	Width  int `yaml:"width" mapstructure:"width"`
	Height int `yaml:"height" mapstructure:"height"`
}

// StepsConfig configures the check-in interaction.
type StepsConfig struct {
	// URL is the landing page. Default: https://southwest.com
	URL string `yaml:"url" mapstructure:"url"`

	// SettleMode is "dwell" or "network_idle". Default: dwell
	SettleMode string `yaml:"settle_mode" mapstructure:"settle_mode"`

	// SettleDwell is the fixed wait after confirming. Default: 3s
	SettleDwell time.Duration `yaml:"settle_dwell" mapstructure:"settle_dwell"`

	// SettleTimeout bounds the bounded waits. Default: 20s
	SettleTimeout time.Duration `yaml:"settle_timeout" mapstructure:"settle_timeout"`

	// PollInterval is the polling period of the bounded waits. Default: 250ms
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`

	// Selectors override individual DOM selectors. Empty entries keep the
	// built-in selector.
	Selectors SelectorsConfig `yaml:"selectors" mapstructure:"selectors"`
}

// SelectorsConfig mirrors the selectors of the check-in sequence.
type SelectorsConfig struct {
	CheckInTab   string `yaml:"check_in_tab" mapstructure:"check_in_tab"`
	Confirmation string `yaml:"confirmation" mapstructure:"confirmation"`
	FirstName    string `yaml:"first_name" mapstructure:"first_name"`
	LastName     string `yaml:"last_name" mapstructure:"last_name"`
	Submit       string `yaml:"submit" mapstructure:"submit"`
	ErrorBanner  string `yaml:"error_banner" mapstructure:"error_banner"`
	Confirm      string `yaml:"confirm" mapstructure:"confirm"`
}

// NotificationConfig configures the sendemail transport. Mail is sent only
// when Server, User, Password and Recipients are all set.
type NotificationConfig struct {
	// Server is the SMTP server, host[:port].
	Server string `yaml:"server" mapstructure:"server"`

	// User is the SMTP login and sender address.
	User string `yaml:"user" mapstructure:"user"`

	// Password is the SMTP password. Never printed unmasked.
	Password string `yaml:"password" mapstructure:"password"`

	// Recipients receive the report. A comma separated string is accepted.
	Recipients []string `yaml:"recipients" mapstructure:"recipients"`

	// SenderName is the From display name. Default: SWA Check In Script
	SenderName string `yaml:"sender_name" mapstructure:"sender_name"`

	// TLS enables STARTTLS. Default: true
	TLS bool `yaml:"tls" mapstructure:"tls"`

	// Binary is the sendemail executable. Default: sendemail
	Binary string `yaml:"binary" mapstructure:"binary"`

	// Timeout bounds one send. Default: 2m
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Configured reports whether every mail credential is present.
func (n NotificationConfig) Configured() bool {
	return n.Server != "" && n.User != "" && n.Password != "" && len(n.Recipients) > 0
}

// ArtifactsConfig configures artifact output.
type ArtifactsConfig struct {
	// ScratchDir receives screenshots, snapshots, the run log and the run
	// summary. Default: /tmp
	ScratchDir string `yaml:"scratch_dir" mapstructure:"scratch_dir"`
}

// LoggingConfig configures the history log.
type LoggingConfig struct {
	// History enables the rotating log under ~/.checkin/logs. Default: true
	History bool `yaml:"history" mapstructure:"history"`

	// HistoryFile overrides the history log path.
	HistoryFile string `yaml:"history_file" mapstructure:"history_file"`
}
