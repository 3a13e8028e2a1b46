package testutil

import (
	"context"
	"sync"

	"github.com/mrz1836/checkin/internal/browser"
	checkinerrors "github.com/mrz1836/checkin/internal/errors"
)

// FakeElement is a scripted browser.Element.
type FakeElement struct {
	Selector string
	text     string
	session  *FakeSession

	// ClickErr and TypeErr are returned by Click and Type when set.
	ClickErr error
	TypeErr  error
}

// Type records text against the element's selector.
func (e *FakeElement) Type(text string) error {
	if e.TypeErr != nil {
		return e.TypeErr
	}
	e.session.mu.Lock()
	defer e.session.mu.Unlock()
	e.session.Typed[e.Selector] += text
	return nil
}

// Click records the click and runs any OnClick hook for the selector.
func (e *FakeElement) Click() error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.session.mu.Lock()
	e.session.Clicks = append(e.session.Clicks, e.Selector)
	hook := e.session.OnClick[e.Selector]
	e.session.mu.Unlock()
	if hook != nil {
		hook(e.session)
	}
	return nil
}

// Text returns the scripted element text.
func (e *FakeElement) Text() (string, error) {
	return e.text, nil
}

// FakeSession is a scripted browser.Session that records every call.
type FakeSession struct {
	mu sync.Mutex

	elements map[string]*FakeElement

	// Body and Screenshot are returned by the capture methods.
	Body       string
	Screenshot []byte

	// Errors injected into the corresponding calls.
	NavigateErr   error
	BodyErr       error
	ScreenshotErr error
	ResizeErr     error

	// Pending is the scripted in-flight request count; PendingSequence, when
	// non-empty, is consumed one value per PendingRequests call first.
	Pending         int
	PendingSequence []int

	// ExistsErrs is consumed one value per Exists call; a nil entry lets
	// that call through.
	ExistsErrs []error

	// OnClick runs after a click on the keyed selector.
	OnClick map[string]func(*FakeSession)

	Navigated  []string
	Typed      map[string]string
	Clicks     []string
	Viewport   [2]int
	CloseCalls int
}

// NewFakeSession creates an empty fake session.
func NewFakeSession() *FakeSession {
	return &FakeSession{
		elements:   make(map[string]*FakeElement),
		Typed:      make(map[string]string),
		OnClick:    make(map[string]func(*FakeSession)),
		Body:       "<html><body>fake</body></html>",
		Screenshot: []byte("\x89PNG fake"),
	}
}

// AddElement makes selector locatable with the given text.
func (s *FakeSession) AddElement(selector, text string) *FakeElement {
	s.mu.Lock()
	defer s.mu.Unlock()
	el := &FakeElement{Selector: selector, text: text, session: s}
	s.elements[selector] = el
	return el
}

// RemoveElement makes selector unlocatable.
func (s *FakeSession) RemoveElement(selector string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.elements, selector)
}

// Navigate records url.
func (s *FakeSession) Navigate(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CloseCalls > 0 {
		return checkinerrors.ErrNoSession
	}
	if s.NavigateErr != nil {
		return s.NavigateErr
	}
	s.Navigated = append(s.Navigated, url)
	return nil
}

// Locate returns the element registered for selector.
func (s *FakeSession) Locate(selector string) (browser.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CloseCalls > 0 {
		return nil, checkinerrors.ErrNoSession
	}
	el, ok := s.elements[selector]
	if !ok {
		return nil, checkinerrors.Wrapf(checkinerrors.ErrInteraction, "element %q not found", selector)
	}
	return el, nil
}

// Exists reports whether selector is registered.
func (s *FakeSession) Exists(selector string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ExistsErrs) > 0 {
		err := s.ExistsErrs[0]
		s.ExistsErrs = s.ExistsErrs[1:]
		if err != nil {
			return false, err
		}
	}
	_, ok := s.elements[selector]
	return ok, nil
}

// CaptureBody returns Body or BodyErr.
func (s *FakeSession) CaptureBody() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CloseCalls > 0 {
		return "", checkinerrors.ErrNoSession
	}
	return s.Body, s.BodyErr
}

// CaptureScreenshot returns Screenshot or ScreenshotErr.
func (s *FakeSession) CaptureScreenshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CloseCalls > 0 {
		return nil, checkinerrors.ErrNoSession
	}
	if s.ScreenshotErr != nil {
		return nil, s.ScreenshotErr
	}
	return s.Screenshot, nil
}

// ResizeViewport records the requested size.
func (s *FakeSession) ResizeViewport(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ResizeErr != nil {
		return s.ResizeErr
	}
	s.Viewport = [2]int{width, height}
	return nil
}

// PendingRequests returns the next scripted value.
func (s *FakeSession) PendingRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.PendingSequence) > 0 {
		n := s.PendingSequence[0]
		s.PendingSequence = s.PendingSequence[1:]
		return n
	}
	return s.Pending
}

// Close counts calls.
func (s *FakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCalls++
	return nil
}

// Closed reports whether Close has been called at least once.
func (s *FakeSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CloseCalls > 0
}

// FakeLauncher hands out sessions built by NewSession, one per Launch.
type FakeLauncher struct {
	mu sync.Mutex

	// NewSession builds the session for the given 1-based launch number.
	// Nil uses NewFakeSession.
	NewSession func(n int) *FakeSession

	// LaunchErr fails every launch when set.
	LaunchErr error

	Sessions []*FakeSession
}

// Launch creates and records a new fake session.
func (l *FakeLauncher) Launch(_ context.Context) (browser.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}
	var s *FakeSession
	if l.NewSession != nil {
		s = l.NewSession(len(l.Sessions) + 1)
	} else {
		s = NewFakeSession()
	}
	l.Sessions = append(l.Sessions, s)
	return s, nil
}

// Launches returns the number of sessions launched.
func (l *FakeLauncher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Sessions)
}

// Compile-time interface checks.
var (
	_ browser.Session  = (*FakeSession)(nil)
	_ browser.Element  = (*FakeElement)(nil)
	_ browser.Launcher = (*FakeLauncher)(nil)
)
