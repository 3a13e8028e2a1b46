package browser

import (
	"time"

	"github.com/mrz1836/checkin/internal/constants"
)

// Options configures the Playwright launcher.
type Options struct {
	// Headless runs the browser without a window. Cron runs always want this.
	Headless bool

	// Install downloads the Chromium build Playwright needs before the first
	// launch. Leave false when the browser is provisioned separately.
	Install bool

	// ExecutablePath overrides the Chromium binary. Empty uses Playwright's build.
	ExecutablePath string

	// Viewport is the initial viewport size.
	Viewport Viewport

	// ActionTimeout bounds each locate, click and type call.
	ActionTimeout time.Duration

	// UserAgent overrides the browser user agent when set.
	UserAgent string
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int `yaml:"width" mapstructure:"width"`
	Height int `yaml:"height" mapstructure:"height"`
}

// DefaultOptions returns headless options with the default viewport and timeout.
func DefaultOptions() Options {
	return Options{
		Headless: true,
		Viewport: Viewport{
			Width:  constants.DefaultViewportWidth,
			Height: constants.DefaultViewportHeight,
		},
		ActionTimeout: constants.DefaultActionTimeout,
	}
}

// timeoutMillis converts a duration to the float milliseconds Playwright expects.
func timeoutMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
