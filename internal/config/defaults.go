package config

import (
	"github.com/mrz1836/checkin/internal/constants"
)

// DefaultConfig returns a new Config with the built-in default values.
// These defaults are the base layer that config files, the dotenv file,
// environment variables and CLI flags override.
func DefaultConfig() *Config {
	return &Config{
		Retry: RetryConfig{
			MaxAttempts: constants.DefaultMaxAttempts,
			BaseDelay:   constants.DefaultBaseDelay,
		},
		Browser: BrowserConfig{
			Headless: true,
			Viewport: ViewportConfig{
				Width:  constants.DefaultViewportWidth,
				Height: constants.DefaultViewportHeight,
			},
			ActionTimeout: constants.DefaultActionTimeout,
		},
		Steps: StepsConfig{
			URL:           constants.DefaultTargetURL,
			SettleMode:    "dwell",
			SettleDwell:   constants.DefaultSettleDwell,
			SettleTimeout: constants.DefaultSettleTimeout,
			PollInterval:  constants.DefaultSettlePollInterval,
		},
		Notification: NotificationConfig{
			SenderName: constants.DefaultSenderName,
			TLS:        true,
			Binary:     constants.SendEmailBinary,
			Timeout:    constants.DefaultSendTimeout,
		},
		Artifacts: ArtifactsConfig{
			ScratchDir: constants.DefaultScratchDir,
		},
		Logging: LoggingConfig{
			History: true,
		},
	}
}
