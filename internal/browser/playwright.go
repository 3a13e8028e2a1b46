package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	checkinerrors "github.com/mrz1836/checkin/internal/errors"
)

// PlaywrightLauncher launches headless Chromium sessions through Playwright.
// The Playwright driver is started on the first Launch and kept until Shutdown;
// every Launch gets its own browser process and context.
type PlaywrightLauncher struct {
	mu      sync.Mutex
	opts    Options
	logger  zerolog.Logger
	pw      *playwright.Playwright
	started bool
}

// NewPlaywrightLauncher creates a launcher with the given options.
func NewPlaywrightLauncher(opts Options, logger zerolog.Logger) *PlaywrightLauncher {
	return &PlaywrightLauncher{
		opts:   opts,
		logger: logger.With().Str("component", "browser").Logger(),
	}
}

// start installs (optionally) and runs the Playwright driver.
func (l *PlaywrightLauncher) start() error {
	if l.started {
		return nil
	}

	// Driver output would interleave with the run log, so discard it.
	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if l.opts.Install {
		l.logger.Debug().Msg("installing playwright browsers")
		if err := playwright.Install(runOpts); err != nil {
			return checkinerrors.Interaction(err, "failed to install playwright")
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return checkinerrors.Interaction(err, "failed to start playwright")
	}

	l.pw = pw
	l.started = true
	return nil
}

// Launch starts a new Chromium browser with an isolated context and page.
func (l *PlaywrightLauncher) Launch(_ context.Context) (Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.start(); err != nil {
		return nil, err
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.opts.Headless),
	}
	if l.opts.ExecutablePath != "" {
		launchOpts.ExecutablePath = playwright.String(l.opts.ExecutablePath)
	}

	l.logger.Debug().Bool("headless", l.opts.Headless).Msg("creating driver")
	b, err := l.pw.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, checkinerrors.Interaction(err, "failed to launch browser")
	}

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  l.opts.Viewport.Width,
			Height: l.opts.Viewport.Height,
		},
	}
	if l.opts.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(l.opts.UserAgent)
	}

	bctx, err := b.NewContext(contextOpts)
	if err != nil {
		_ = b.Close()
		return nil, checkinerrors.Interaction(err, "failed to create browser context")
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = b.Close()
		return nil, checkinerrors.Interaction(err, "failed to create page")
	}

	if l.opts.ActionTimeout > 0 {
		page.SetDefaultTimeout(timeoutMillis(l.opts.ActionTimeout))
	}

	s := &playwrightSession{
		browser: b,
		context: bctx,
		page:    page,
		opts:    l.opts,
	}
	s.trackRequests()
	return s, nil
}

// Shutdown stops the Playwright driver. Sessions must be closed first.
func (l *PlaywrightLauncher) Shutdown() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.started || l.pw == nil {
		return nil
	}
	l.started = false
	if err := l.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

// playwrightSession is a Session backed by one Playwright page.
type playwrightSession struct {
	mu      sync.Mutex
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	opts    Options
	pending atomic.Int64
	closed  bool
}

// trackRequests keeps a count of in-flight requests for settle polling.
func (s *playwrightSession) trackRequests() {
	s.page.OnRequest(func(playwright.Request) {
		s.pending.Add(1)
	})
	done := func(playwright.Request) {
		if s.pending.Add(-1) < 0 {
			s.pending.Store(0)
		}
	}
	s.page.OnRequestFinished(done)
	s.page.OnRequestFailed(done)
}

func (s *playwrightSession) livePage() (playwright.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.page == nil {
		return nil, checkinerrors.ErrNoSession
	}
	return s.page, nil
}

// Navigate loads url.
func (s *playwrightSession) Navigate(url string) error {
	page, err := s.livePage()
	if err != nil {
		return err
	}
	_, err = page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	if err != nil {
		return classify(err, fmt.Sprintf("navigation to %s failed", url), checkinerrors.ErrTimeout)
	}
	return nil
}

// Locate waits for selector to be attached and returns the first match.
func (s *playwrightSession) Locate(selector string) (Element, error) {
	page, err := s.livePage()
	if err != nil {
		return nil, err
	}
	opts := playwright.PageWaitForSelectorOptions{
		State: playwright.WaitForSelectorStateAttached,
	}
	if s.opts.ActionTimeout > 0 {
		opts.Timeout = playwright.Float(timeoutMillis(s.opts.ActionTimeout))
	}
	handle, err := page.WaitForSelector(selector, opts)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("element %q not found", selector), checkinerrors.ErrInteraction)
	}
	if handle == nil {
		return nil, checkinerrors.Wrapf(checkinerrors.ErrInteraction, "element %q not found", selector)
	}
	return &playwrightElement{handle: handle, selector: selector}, nil
}

// Exists checks selector without waiting.
func (s *playwrightSession) Exists(selector string) (bool, error) {
	page, err := s.livePage()
	if err != nil {
		return false, err
	}
	handle, err := page.QuerySelector(selector)
	if err != nil {
		return false, classify(err, fmt.Sprintf("query %q failed", selector), checkinerrors.ErrInteraction)
	}
	return handle != nil, nil
}

// CaptureBody returns the page HTML.
func (s *playwrightSession) CaptureBody() (string, error) {
	page, err := s.livePage()
	if err != nil {
		return "", err
	}
	body, err := page.Content()
	if err != nil {
		return "", classify(err, "failed to read page content", checkinerrors.ErrInteraction)
	}
	return body, nil
}

// CaptureScreenshot returns a full-page PNG.
func (s *playwrightSession) CaptureScreenshot() ([]byte, error) {
	page, err := s.livePage()
	if err != nil {
		return nil, err
	}
	data, err := page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return nil, classify(err, "failed to capture screenshot", checkinerrors.ErrInteraction)
	}
	return data, nil
}

// ResizeViewport sets the viewport size.
func (s *playwrightSession) ResizeViewport(width, height int) error {
	page, err := s.livePage()
	if err != nil {
		return err
	}
	if err := page.SetViewportSize(width, height); err != nil {
		return classify(err, fmt.Sprintf("failed to resize viewport to %dx%d", width, height), checkinerrors.ErrInteraction)
	}
	return nil
}

// PendingRequests returns the in-flight request count.
func (s *playwrightSession) PendingRequests() int {
	return int(s.pending.Load())
}

// Close releases all Playwright resources for the session.
func (s *playwrightSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing session: %w", errors.Join(errs...))
	}
	return nil
}

// playwrightElement is an Element backed by an element handle.
type playwrightElement struct {
	handle   playwright.ElementHandle
	selector string
}

// Type sends keystrokes to the element.
func (e *playwrightElement) Type(text string) error {
	if err := e.handle.Type(text); err != nil {
		return classify(err, fmt.Sprintf("failed to type into %q", e.selector), checkinerrors.ErrInteraction)
	}
	return nil
}

// Click clicks the element.
func (e *playwrightElement) Click() error {
	if err := e.handle.Click(); err != nil {
		return classify(err, fmt.Sprintf("failed to click %q", e.selector), checkinerrors.ErrInteraction)
	}
	return nil
}

// Text returns the element's rendered text.
func (e *playwrightElement) Text() (string, error) {
	text, err := e.handle.InnerText()
	if err != nil {
		return "", classify(err, fmt.Sprintf("failed to read text of %q", e.selector), checkinerrors.ErrInteraction)
	}
	return text, nil
}

// classify maps a Playwright error onto the run error taxonomy. Driver
// timeouts become onTimeout so callers decide whether an expired wait means
// "element missing" or "page never settled".
func classify(err error, msg string, onTimeout error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%s: %w: %w", msg, onTimeout, err)
	}
	return checkinerrors.Interaction(err, msg)
}

// Compile-time interface checks.
var (
	_ Launcher = (*PlaywrightLauncher)(nil)
	_ Session  = (*playwrightSession)(nil)
	_ Element  = (*playwrightElement)(nil)
)
