// Package steps implements the site-specific interaction that one attempt of
// a check-in run performs.
//
// Everything volatile about the target site lives here: the URL, the DOM
// selectors and the settle policy. The retry engine only sees Execute.
package steps

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/checkin/internal/browser"
	"github.com/mrz1836/checkin/internal/clock"
	"github.com/mrz1836/checkin/internal/constants"
	"github.com/mrz1836/checkin/internal/domain"
	checkinerrors "github.com/mrz1836/checkin/internal/errors"
)

// SettleMode selects how the final wait after confirmation is performed.
type SettleMode string

const (
	// SettleDwell waits a fixed duration.
	SettleDwell SettleMode = "dwell"

	// SettleNetworkIdle polls until no requests are in flight.
	SettleNetworkIdle SettleMode = "network_idle"
)

// Selectors holds every DOM selector the sequence touches.
type Selectors struct {
	CheckInTab   string `yaml:"check_in_tab" mapstructure:"check_in_tab"`
	Confirmation string `yaml:"confirmation" mapstructure:"confirmation"`
	FirstName    string `yaml:"first_name" mapstructure:"first_name"`
	LastName     string `yaml:"last_name" mapstructure:"last_name"`
	Submit       string `yaml:"submit" mapstructure:"submit"`
	ErrorBanner  string `yaml:"error_banner" mapstructure:"error_banner"`
	Confirm      string `yaml:"confirm" mapstructure:"confirm"`
}

// DefaultSelectors returns the selectors of the current southwest.com landing page.
func DefaultSelectors() Selectors {
	return Selectors{
		CheckInTab:   "#TabbedArea_4-tab-4",
		Confirmation: "#LandingPageAirReservationForm_confirmationNumber_check-in",
		FirstName:    "#LandingPageAirReservationForm_passengerFirstName_check-in",
		LastName:     "#LandingPageAirReservationForm_passengerLastName_check-in",
		Submit:       "#LandingPageAirReservationForm_submit-button_check-in",
		ErrorBanner:  ".message_error",
		// No id on this button; it is the only submit-button class on the page.
		Confirm: ".form-mixin--submit-button",
	}
}

// withDefaults fills empty selectors from DefaultSelectors.
func (s Selectors) withDefaults() Selectors {
	d := DefaultSelectors()
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&s.CheckInTab, d.CheckInTab)
	fill(&s.Confirmation, d.Confirmation)
	fill(&s.FirstName, d.FirstName)
	fill(&s.LastName, d.LastName)
	fill(&s.Submit, d.Submit)
	fill(&s.ErrorBanner, d.ErrorBanner)
	fill(&s.Confirm, d.Confirm)
	return s
}

// Options configures a Southwest sequence.
type Options struct {
	URL       string
	Selectors Selectors

	// SettleMode picks between a fixed dwell and network-idle polling.
	SettleMode SettleMode

	// SettleDwell is the fixed wait used by SettleDwell mode.
	SettleDwell time.Duration

	// SettleTimeout bounds network-idle polling and the wait for the page
	// that follows the first submit.
	SettleTimeout time.Duration

	// PollInterval is the polling period for both bounded waits.
	PollInterval time.Duration
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		URL:           constants.DefaultTargetURL,
		Selectors:     DefaultSelectors(),
		SettleMode:    SettleDwell,
		SettleDwell:   constants.DefaultSettleDwell,
		SettleTimeout: constants.DefaultSettleTimeout,
		PollInterval:  constants.DefaultSettlePollInterval,
	}
}

// Southwest drives the southwest.com check-in form.
type Southwest struct {
	opts   Options
	clock  clock.Clock
	logger zerolog.Logger
}

// NewSouthwest creates the sequence. Zero option fields take their defaults.
func NewSouthwest(opts Options, clk clock.Clock, logger zerolog.Logger) *Southwest {
	d := DefaultOptions()
	if opts.URL == "" {
		opts.URL = d.URL
	}
	if opts.SettleMode == "" {
		opts.SettleMode = d.SettleMode
	}
	if opts.SettleDwell <= 0 {
		opts.SettleDwell = d.SettleDwell
	}
	if opts.SettleTimeout <= 0 {
		opts.SettleTimeout = d.SettleTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = d.PollInterval
	}
	opts.Selectors = opts.Selectors.withDefaults()
	if clk == nil {
		clk = clock.RealClock{}
	}

	return &Southwest{
		opts:   opts,
		clock:  clk,
		logger: logger.With().Str("component", "steps").Logger(),
	}
}

// Execute visits the site, fills and submits the check-in form, fails with a
// SiteReportedError when the response carries an error banner, and otherwise
// confirms and waits for the page to settle.
func (s *Southwest) Execute(_ context.Context, session browser.Session, cred domain.Credential) error {
	sel := s.opts.Selectors

	s.logger.Info().Str("url", s.opts.URL).Msg("visiting check-in site")
	if err := session.Navigate(s.opts.URL); err != nil {
		return err
	}

	s.logger.Debug().Msg("clicking check-in tab")
	if err := s.click(session, sel.CheckInTab); err != nil {
		return err
	}

	s.logger.Debug().Msg("filling out flight info")
	fields := []struct {
		selector string
		value    string
	}{
		{sel.Confirmation, cred.ConfirmationCode},
		{sel.FirstName, cred.FirstName},
		{sel.LastName, cred.LastName},
	}
	for _, f := range fields {
		if err := s.typeInto(session, f.selector, f.value); err != nil {
			return err
		}
	}

	if err := s.click(session, sel.Submit); err != nil {
		return err
	}

	if err := s.checkForSiteError(session); err != nil {
		return err
	}

	s.logger.Debug().Msg("confirming check-in")
	if err := s.click(session, sel.Confirm); err != nil {
		return err
	}

	return s.settle(session)
}

func (s *Southwest) click(session browser.Session, selector string) error {
	el, err := session.Locate(selector)
	if err != nil {
		return err
	}
	return el.Click()
}

func (s *Southwest) typeInto(session browser.Session, selector, value string) error {
	el, err := session.Locate(selector)
	if err != nil {
		return err
	}
	return el.Type(value)
}

// checkForSiteError waits for the page after submit to show either the error
// banner or the confirmation control. The banner wins; a page with neither
// is left for the confirmation locate to report. Lookup errors while the page
// is still loading count as "not yet"; the last one is returned only once
// the settle timeout has passed.
func (s *Southwest) checkForSiteError(session browser.Session) error {
	sel := s.opts.Selectors
	deadline := s.clock.Now().Add(s.opts.SettleTimeout)

	for {
		hasError, errBanner := session.Exists(sel.ErrorBanner)
		if errBanner == nil && hasError {
			return s.siteError(session)
		}

		ready, errConfirm := session.Exists(sel.Confirm)
		lastErr := errBanner
		if errConfirm != nil {
			lastErr = errConfirm
		}
		if lastErr == nil && ready {
			return nil
		}
		if !s.clock.Now().Before(deadline) {
			return lastErr
		}
		s.clock.Sleep(s.opts.PollInterval)
	}
}

// siteError extracts the first line of the error banner.
func (s *Southwest) siteError(session browser.Session) error {
	el, err := session.Locate(s.opts.Selectors.ErrorBanner)
	if err != nil {
		return checkinerrors.NewSiteReportedError("unknown")
	}
	text, err := el.Text()
	if err != nil {
		return checkinerrors.NewSiteReportedError("unknown")
	}
	msg := firstLine(text)
	if msg == "" {
		msg = "unknown"
	}
	s.logger.Warn().Str("site_message", msg).Msg("site reported an error")
	return checkinerrors.NewSiteReportedError(msg)
}

// settle performs the final bounded wait.
func (s *Southwest) settle(session browser.Session) error {
	if s.opts.SettleMode != SettleNetworkIdle {
		s.logger.Debug().Dur("dwell", s.opts.SettleDwell).Msg("waiting for check-in to settle")
		s.clock.Sleep(s.opts.SettleDwell)
		return nil
	}

	deadline := s.clock.Now().Add(s.opts.SettleTimeout)
	for {
		pending := session.PendingRequests()
		if pending == 0 {
			return nil
		}
		if !s.clock.Now().Before(deadline) {
			return checkinerrors.Wrapf(checkinerrors.ErrTimeout,
				"%d requests still pending after %s", pending, s.opts.SettleTimeout)
		}
		s.clock.Sleep(s.opts.PollInterval)
	}
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
